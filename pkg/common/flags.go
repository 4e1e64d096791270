package common

import "github.com/urfave/cli/v2"

// GlobalFlags defines flags that apply to the entire application (global flags).
var GlobalFlags = []cli.Flag{
	&cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "Enable verbose logging",
	},
	&cli.StringFlag{
		Name:    "config",
		Usage:   "Path to the deployer config file",
		Value:   DefaultConfigPath,
		EnvVars: []string{"SE2_CONFIG"},
	},
}

// NetworkFlag selects the network entry from config.yaml.
var NetworkFlag = &cli.StringFlag{
	Name:    "network",
	Aliases: []string{"n"},
	Usage:   "Select the network to use in this command (defaults to project.default_network)",
	EnvVars: []string{"SE2_NETWORK"},
}
