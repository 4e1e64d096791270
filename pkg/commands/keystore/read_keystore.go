package keystore

import (
	"fmt"
	"log"
	"os"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/urfave/cli/v2"

	"github.com/nvitorovic/scaffold-eth-2/pkg/common"
)

var ReadCommand = &cli.Command{
	Name:  "read",
	Usage: "Print the address and private key from a given keystore file, password",
	Flags: append([]cli.Flag{
		&cli.StringFlag{
			Name:     "path",
			Usage:    "Path to the keystore JSON",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "password",
			Usage:    "Password to decrypt the keystore file",
			Required: true,
		},
	}, common.GlobalFlags...),
	Action: func(cCtx *cli.Context) error {
		path := cCtx.String("path")
		password := cCtx.String("password")

		fileContent, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read keystore file: %w", err)
		}

		key, err := keystore.DecryptKey(fileContent, password)
		if err != nil {
			return fmt.Errorf("failed to decrypt ECDSA keystore: %w", err)
		}

		log.Println("✅ ECDSA Keystore decrypted successfully")
		log.Println("")
		log.Printf("    Address: %s\n", key.Address.Hex())
		log.Println("🔑 Save this ECDSA private key in a secure location:")
		log.Printf("    %s\n", hexutil.Encode(crypto.FromECDSA(key.PrivateKey)))
		log.Println("")

		return nil
	},
}
