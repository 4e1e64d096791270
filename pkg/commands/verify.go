package commands

import (
	"context"
	"fmt"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"

	"github.com/nvitorovic/scaffold-eth-2/pkg/artifacts"
	"github.com/nvitorovic/scaffold-eth-2/pkg/common"
	"github.com/nvitorovic/scaffold-eth-2/pkg/verify"
)

// VerifyCommand publishes the source of one deployed contract to the verification service
var VerifyCommand = &cli.Command{
	Name:  "verify",
	Usage: "Verifies a deployed contract on Tenderly",
	Flags: append([]cli.Flag{
		common.NetworkFlag,
		&cli.StringFlag{
			Name:     "name",
			Usage:    "Contract artifact name to verify (e.g. ERC20Token)",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "address",
			Usage: "Deployed contract address (defaults to the recorded deployment of --name)",
		},
	}, common.GlobalFlags...),
	Action: VerifyAction,
}

// VerifyAction only dials the node when the address has to come from a deployment record.
func VerifyAction(cCtx *cli.Context) error {
	logger := common.LoggerFromContext(cCtx.Context)
	contractName := cCtx.String("name")

	raw := cCtx.String("address")
	if raw != "" && !ethcommon.IsHexAddress(raw) {
		return fmt.Errorf("invalid address %q", raw)
	}

	cfg, name, network, err := loadNetwork(cCtx)
	if err != nil {
		return err
	}
	if !cfg.Verification.Tenderly.Enabled() {
		return fmt.Errorf("verification is not configured; set TENDERLY_ACCESS_KEY, TENDERLY_ACCOUNT and TENDERLY_PROJECT")
	}

	ctx, cancel := context.WithTimeout(cCtx.Context, network.Timeout)
	defer cancel()

	contract := verify.Contract{Name: contractName, Address: ethcommon.HexToAddress(raw)}
	verifier := verify.New(cfg.Verification.Tenderly, network.ChainID, artifacts.NewLoader(cfg.Project.ArtifactsDir), logger)

	if raw == "" {
		rt, err := newNetworkRuntime(ctx, cfg, name, network, logger)
		if err != nil {
			return err
		}
		defer rt.Close()

		dep, err := rt.deployer.Get(ctx, contractName)
		if err != nil {
			return fmt.Errorf("no live deployment of %s on %s; pass --address: %w", contractName, name, err)
		}
		contract.Address = dep.Address
		verifier = rt.verifier
	}

	if err := verifier.Verify(ctx, contract); err != nil {
		return err
	}

	logger.Info("Verified %s at %s on %s", contract.Name, contract.Address.Hex(), name)
	return nil
}
