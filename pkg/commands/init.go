package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/nvitorovic/scaffold-eth-2/config"
	"github.com/nvitorovic/scaffold-eth-2/pkg/common"
)

// InitCommand scaffolds config/config.yaml and .env in the working directory
var InitCommand = &cli.Command{
	Name:  "init",
	Usage: "Writes a default config/config.yaml and .env into the current directory",
	Flags: append([]cli.Flag{
		&cli.BoolFlag{
			Name:  "overwrite",
			Usage: "Replace existing files",
		},
	}, common.GlobalFlags...),
	Action: InitAction,
}

func InitAction(cCtx *cli.Context) error {
	logger := common.LoggerFromContext(cCtx.Context)
	overwrite := cCtx.Bool("overwrite")

	files := []struct {
		path    string
		content string
	}{
		{cCtx.String("config"), config.DefaultConfigYaml},
		{".env", config.EnvExample},
	}

	for _, f := range files {
		if _, err := os.Stat(f.path); err == nil && !overwrite {
			logger.Info("%s already exists, skipping (use --overwrite to replace)", f.path)
			continue
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to stat %s: %w", f.path, err)
		}

		if dir := filepath.Dir(f.path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create %s: %w", dir, err)
			}
		}
		if err := os.WriteFile(f.path, []byte(f.content), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.path, err)
		}
		logger.Info("Wrote %s", f.path)
	}

	for _, dir := range []string{common.DefaultDeploymentsDir, common.DefaultArtifactsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}
