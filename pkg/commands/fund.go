package commands

import (
	"context"
	"fmt"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"

	"github.com/nvitorovic/scaffold-eth-2/pkg/common"
)

// FundCommand tops up a single account through the network's faucet
var FundCommand = &cli.Command{
	Name:  "fund",
	Usage: "Funds an account using the faucet configured for the network",
	Flags: append([]cli.Flag{
		common.NetworkFlag,
		&cli.StringFlag{
			Name:  "address",
			Usage: "Account to fund (defaults to the deployer)",
		},
	}, common.GlobalFlags...),
	Action: FundAction,
}

func FundAction(cCtx *cli.Context) error {
	logger := common.LoggerFromContext(cCtx.Context)

	var target ethcommon.Address
	if raw := cCtx.String("address"); raw != "" {
		if !ethcommon.IsHexAddress(raw) {
			return fmt.Errorf("invalid address %q", raw)
		}
		target = ethcommon.HexToAddress(raw)
	}

	cfg, name, network, err := loadNetwork(cCtx)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cCtx.Context, network.Timeout)
	defer cancel()

	rt, err := newNetworkRuntime(ctx, cfg, name, network, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	if target == (ethcommon.Address{}) {
		target = rt.caller.Address()
	}

	if err := rt.funder.Fund(ctx, target); err != nil {
		return fmt.Errorf("failed to fund %s: %w", target.Hex(), err)
	}

	logger.Info("Funded %s on %s", target.Hex(), rt.name)
	return nil
}
