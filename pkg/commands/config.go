package commands

import (
	"fmt"
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/nvitorovic/scaffold-eth-2/pkg/common"
)

var ConfigCommand = &cli.Command{
	Name:   "config",
	Usage:  "Displays the resolved deployer configuration (secrets redacted)",
	Flags:  common.GlobalFlags,
	Action: ConfigAction,
}

func ConfigAction(cCtx *cli.Context) error {
	cfg, err := common.LoadConfig(cCtx.String("config"))
	if err != nil {
		return err
	}

	fmt.Printf("Displaying current configuration... \n\n")
	fmt.Printf("telemetry enabled: %t \n", cfg.Telemetry.Enabled)
	fmt.Printf("verification enabled: %t \n", cfg.Verification.Tenderly.Enabled())
	fmt.Printf("Project: %s \n", cfg.Project.Name)
	fmt.Printf("Version: %s \n", cfg.Version)
	fmt.Printf("Default network: %s \n", cfg.Project.DefaultNetwork)
	fmt.Printf("Deployments dir: %s \n", cfg.Project.DeploymentsDir)
	fmt.Printf("Artifacts dir: %s \n\n", cfg.Project.ArtifactsDir)

	names := make([]string, 0, len(cfg.Networks))
	for name := range cfg.Networks {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("Networks: ")
	for _, name := range names {
		_, network, err := cfg.Network(name)
		if err != nil {
			fmt.Printf("  - %s: %v\n", name, err)
			continue
		}
		fmt.Printf("  - %s:\n", name)
		fmt.Printf("      RPC URL: %s\n", network.RPCURL)
		fmt.Printf("      Chain ID: %d\n", network.ChainID)
		fmt.Printf("      Deployer: %s\n", deployerSource(network))
		fmt.Printf("      Gas limit: %d\n", network.GasLimit)
		fmt.Printf("      Auto-mine: %t\n", network.AutoMineEnabled())
		fmt.Printf("      Faucet: %s\n", network.Faucet.Method)
		fmt.Printf("      Distribution concurrency: %d\n\n", network.Distribution.Concurrency)
	}

	return nil
}

func deployerSource(network common.NetworkConfig) string {
	if network.DeployerKeystore != nil {
		return "keystore " + network.DeployerKeystore.Path
	}
	return "private key (redacted)"
}
