package keystore

import "github.com/urfave/cli/v2"

// KeystoreCommand groups the deployer keystore helpers
var KeystoreCommand = &cli.Command{
	Name:  "keystore",
	Usage: "Creates or reads encrypted deployer keystores",
	Subcommands: []*cli.Command{
		CreateCommand,
		ReadCommand,
	},
}
