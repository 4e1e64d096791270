package main

import (
	"context"
	"log"
	"os"

	"github.com/nvitorovic/scaffold-eth-2/pkg/commands"
	"github.com/nvitorovic/scaffold-eth-2/pkg/commands/keystore"
	"github.com/nvitorovic/scaffold-eth-2/pkg/common"
	"github.com/nvitorovic/scaffold-eth-2/pkg/common/logger"
	"github.com/nvitorovic/scaffold-eth-2/pkg/hooks"

	"github.com/urfave/cli/v2"
)

func main() {
	ctx := common.WithShutdown(context.Background())

	app := &cli.App{
		Name:  "se2deploy",
		Usage: "Deploys and bootstraps the token factory, SimpleAMM and PoolAndSwap contracts",
		Flags: common.GlobalFlags,
		Before: func(cCtx *cli.Context) error {
			err := hooks.LoadEnvFile(cCtx)
			if err != nil {
				return err
			}
			common.WithAppEnvironment(cCtx)

			// Get logger based on CLI context (handles verbosity internally)
			appLogger, tracker := common.GetLoggerFromCLIContext(cCtx)

			// Store logger and tracker in the context
			cCtx.Context = common.WithLogger(cCtx.Context, appLogger)
			cCtx.Context = common.WithProgressTracker(cCtx.Context, tracker)

			return nil
		},
		After: func(cCtx *cli.Context) error {
			if zl, ok := common.LoggerFromContext(cCtx.Context).(*logger.ZapLogger); ok {
				// stdout sync fails on some terminals; nothing to recover
				_ = zl.Sync()
			}
			return nil
		},
		Commands: []*cli.Command{
			commands.InitCommand,
			commands.DeployCommand,
			commands.FundCommand,
			commands.VerifyCommand,
			commands.DeploymentsCommand,
			commands.ConfigCommand,
			keystore.KeystoreCommand,
		},
		UseShortOptionHandling: true,
	}

	hooks.ApplyMiddleware(app.Commands, hooks.WithTelemetry)

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
