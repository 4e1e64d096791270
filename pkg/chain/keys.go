package chain

import (
	"crypto/ecdsa"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/nvitorovic/scaffold-eth-2/pkg/common"
)

// LoadKey returns the signing key configured for a network. A hex key takes
// precedence over an encrypted keystore file.
func LoadKey(privateKeyHex string, ks *common.KeystoreConfig) (*ecdsa.PrivateKey, error) {
	if privateKeyHex != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid private key: %w", err)
		}
		return key, nil
	}
	if ks == nil || ks.Path == "" {
		return nil, fmt.Errorf("no private key or keystore configured")
	}

	data, err := os.ReadFile(ks.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keystore %s: %w", ks.Path, err)
	}
	key, err := keystore.DecryptKey(data, ks.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt keystore %s: %w", ks.Path, err)
	}
	return key.PrivateKey, nil
}

// NewEphemeralKey generates a throwaway account used as a transfer recipient or signer.
func NewEphemeralKey() (*ecdsa.PrivateKey, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return key, nil
}
