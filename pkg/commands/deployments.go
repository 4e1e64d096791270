package commands

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/nvitorovic/scaffold-eth-2/pkg/common"
	"github.com/nvitorovic/scaffold-eth-2/pkg/deployments"
)

// DeploymentsCommand inspects the per-network deployment records
var DeploymentsCommand = &cli.Command{
	Name:  "deployments",
	Usage: "Inspects deployment records",
	Subcommands: []*cli.Command{
		{
			Name:   "list",
			Usage:  "Prints the recorded deployments of a network",
			Flags:  append([]cli.Flag{common.NetworkFlag}, common.GlobalFlags...),
			Action: ListDeploymentsAction,
		},
	},
}

func ListDeploymentsAction(cCtx *cli.Context) error {
	cfg, name, network, err := loadNetwork(cCtx)
	if err != nil {
		return err
	}

	store := deployments.NewStore(cfg.Project.DeploymentsDir, name, network.ChainID)
	records, err := store.List()
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Printf("No deployments recorded for %s\n", store.Network())
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tADDRESS\tBLOCK\tTX\tDEPLOYED")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			rec.Name, rec.Address.Hex(), rec.BlockNumber, rec.TxHash.Hex(), rec.DeployedAt.Format(time.RFC3339))
	}
	return w.Flush()
}
