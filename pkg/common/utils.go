package common

import (
	"os"

	"github.com/nvitorovic/scaffold-eth-2/pkg/common/iface"
	"github.com/nvitorovic/scaffold-eth-2/pkg/common/logger"
	"github.com/nvitorovic/scaffold-eth-2/pkg/common/progress"

	"github.com/urfave/cli/v2"
)

// IsVerboseEnabled checks if the CLI --verbose flag is set
func IsVerboseEnabled(cCtx *cli.Context) bool {
	return cCtx.Bool("verbose")
}

// Get logger for the env we're in
func GetLogger(verbose bool) (iface.Logger, iface.ProgressTracker) {
	var log iface.Logger
	var tracker iface.ProgressTracker
	if progress.IsTTY() {
		log = logger.NewLogger(verbose)
		tracker = progress.NewTTYProgressTracker(10, os.Stdout)
	} else {
		log = logger.NewZapLogger(verbose)
		tracker = progress.NewLogProgressTracker(10, log)
	}

	return log, tracker
}

// GetLoggerFromCLIContext builds the logger and tracker for the verbosity requested on the command line
func GetLoggerFromCLIContext(cCtx *cli.Context) (iface.Logger, iface.ProgressTracker) {
	return GetLogger(IsVerboseEnabled(cCtx))
}
