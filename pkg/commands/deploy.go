package commands

import (
	"context"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nvitorovic/scaffold-eth-2/pkg/common"
	"github.com/nvitorovic/scaffold-eth-2/pkg/scripts"
)

// DeployCommand runs the tagged deploy scripts against a network
var DeployCommand = &cli.Command{
	Name:  "deploy",
	Usage: "Runs the deploy scripts (all of them, or those matching --tags) against a network",
	Flags: append([]cli.Flag{
		common.NetworkFlag,
		&cli.StringSliceFlag{
			Name:  "tags",
			Usage: "Only run scripts carrying one of these tags: " + strings.Join(scripts.Tags(scripts.All()), ", "),
		},
		&cli.BoolFlag{
			Name:  "reset",
			Usage: "Ignore existing deployment records and redeploy every contract",
		},
	}, common.GlobalFlags...),
	Action: DeployAction,
}

func DeployAction(cCtx *cli.Context) error {
	logger := common.LoggerFromContext(cCtx.Context)
	progress := common.ProgressTrackerFromContext(cCtx.Context)
	startTime := time.Now()

	selected, err := scripts.SelectByTags(scripts.All(), cCtx.StringSlice("tags"))
	if err != nil {
		return err
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

	networkName := cases.Title(language.English).String(rt.name)
	logger.Info("Deploying to %s (chain %d) as %s", networkName, rt.network.ChainID, rt.caller.Address().Hex())

	env := rt.scriptEnv(cCtx.Bool("reset"), progress)
	if err := scripts.Run(ctx, env, selected); err != nil {
		return err
	}

	elapsed := time.Since(startTime).Round(time.Second)
	logger.Info("%s deployment completed in %s", networkName, elapsed)
	return nil
}
