package keystore

import (
	"crypto/ecdsa"
	"fmt"
	printlogger "log"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/nvitorovic/scaffold-eth-2/pkg/common"
)

var CreateCommand = &cli.Command{
	Name:  "create",
	Usage: "Generates an encrypted keystore JSON file for a deployer key",
	Flags: append([]cli.Flag{
		&cli.StringFlag{
			Name:  "key",
			Usage: "Hex encoded ECDSA private key; a fresh key is generated when omitted",
		},
		&cli.StringFlag{
			Name:     "path",
			Usage:    "Full path to save keystore file, including filename (e.g., ./keys/deployer.json)",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "password",
			Usage: `Password to encrypt the keystore file. Default password is "" `,
			Value: "",
		},
		&cli.BoolFlag{
			Name:  "light",
			Usage: "Use light scrypt parameters (faster, for throwaway test keys only)",
		},
	}, common.GlobalFlags...),
	Action: func(cCtx *cli.Context) error {
		log := common.LoggerFromContext(cCtx.Context)
		path := cCtx.String("path")
		password := cCtx.String("password")

		if len(path) < 6 || filepath.Ext(path) != ".json" {
			return fmt.Errorf("invalid path: must include full file name ending in .json")
		}

		privateKey, err := keyFromFlag(cCtx.String("key"))
		if err != nil {
			return err
		}

		scryptN, scryptP := keystore.StandardScryptN, keystore.StandardScryptP
		if cCtx.Bool("light") {
			scryptN, scryptP = keystore.LightScryptN, keystore.LightScryptP
		}

		key := &keystore.Key{
			Id:         uuid.New(),
			Address:    crypto.PubkeyToAddress(privateKey.PublicKey),
			PrivateKey: privateKey,
		}
		log.Debug("Encrypting keystore for %s", key.Address.Hex())

		data, err := keystore.EncryptKey(key, password, scryptN, scryptP)
		if err != nil {
			return fmt.Errorf("failed to create keystore: %w", err)
		}

		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create keystore dir: %w", err)
		}
		if err := os.WriteFile(path, data, 0600); err != nil {
			return fmt.Errorf("failed to write keystore: %w", err)
		}

		printlogger.Println("✅ Keystore generated successfully")
		printlogger.Println("")
		printlogger.Printf("🔑 Deployer address: %s\n", key.Address.Hex())
		printlogger.Printf("   Reference it from config.yaml under deployer_keystore.path: %s\n", path)
		printlogger.Println("")

		return nil
	},
}

func keyFromFlag(raw string) (*ecdsa.PrivateKey, error) {
	if raw == "" {
		return crypto.GenerateKey()
	}
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(raw, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return privateKey, nil
}
