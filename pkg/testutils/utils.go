package testutils

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/urfave/cli/v2"

	devcommon "github.com/nvitorovic/scaffold-eth-2/pkg/common"
	"github.com/nvitorovic/scaffold-eth-2/pkg/common/logger"
)

// Runtime bytecode fixtures. StopInitCode deploys a contract whose code is a
// single STOP, InvalidInitCode one whose every call fails.
const (
	StopInitCode    = "0x600060005360016000f3"
	InvalidInitCode = "0x60fe60005360016000f3"
)

// SimulatedChainID is the chain id of go-ethereum's simulated backend.
const SimulatedChainID int64 = 1337

// SimulatedChain is an in-process chain with one pre-funded account.
type SimulatedChain struct {
	Backend *simulated.Backend
	Client  simulated.Client
	Key     *ecdsa.PrivateKey
	Address common.Address

	mineMu sync.Mutex
}

// NewSimulatedChain starts an in-process chain and funds a fresh key with 1e24 wei.
func NewSimulatedChain(t *testing.T) *SimulatedChain {
	t.Helper()

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	addr := crypto.PubkeyToAddress(key.PublicKey)
	balance, _ := new(big.Int).SetString("1000000000000000000000000", 10)

	backend := simulated.NewBackend(types.GenesisAlloc{
		addr: {Balance: balance},
	})
	t.Cleanup(func() { _ = backend.Close() })

	return &SimulatedChain{
		Backend: backend,
		Client:  backend.Client(),
		Key:     key,
		Address: addr,
	}
}

func (s *SimulatedChain) ChainID() *big.Int {
	return big.NewInt(SimulatedChainID)
}

// Mine seals the pending transactions into a block.
func (s *SimulatedChain) Mine(context.Context) error {
	s.mineMu.Lock()
	defer s.mineMu.Unlock()
	s.Backend.Commit()
	return nil
}

// WriteArtifact writes a minimal Hardhat artifact for name under dir and returns its path.
func WriteArtifact(t *testing.T, dir, name, abiJSON, bytecode string) string {
	t.Helper()

	contractDir := filepath.Join(dir, "contracts", name+".sol")
	if err := os.MkdirAll(contractDir, 0755); err != nil {
		t.Fatal(err)
	}
	artifact := map[string]any{
		"_format":      "hh-sol-artifact-1",
		"contractName": name,
		"sourceName":   "contracts/" + name + ".sol",
		"abi":          json.RawMessage(abiJSON),
		"bytecode":     bytecode,
	}
	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(contractDir, name+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// WriteBuildInfo writes a Hardhat build-info file compiling sources with solc
// 0.8.20 (optimizer on, 200 runs) and links the artifact of name to it.
func WriteBuildInfo(t *testing.T, dir, name string, sources map[string]string) string {
	t.Helper()

	input := map[string]any{}
	for path, content := range sources {
		input[path] = map[string]string{"content": content}
	}
	buildInfo := map[string]any{
		"_format":         "hh-sol-build-info-1",
		"solcVersion":     "0.8.20",
		"solcLongVersion": "0.8.20+commit.a1b79de6",
		"input": map[string]any{
			"language": "Solidity",
			"sources":  input,
			"settings": map[string]any{
				"optimizer":  map[string]any{"enabled": true, "runs": 200},
				"evmVersion": "paris",
			},
		},
	}
	data, err := json.MarshalIndent(buildInfo, "", "  ")
	if err != nil {
		t.Fatal(err)
	}

	buildInfoDir := filepath.Join(dir, "build-info")
	if err := os.MkdirAll(buildInfoDir, 0755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(buildInfoDir, strings.ToLower(name)+"-build.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	dbg := `{"_format":"hh-sol-dbg-1","buildInfo":"../../build-info/` + filepath.Base(path) + `"}`
	contractDir := filepath.Join(dir, "contracts", name+".sol")
	if err := os.MkdirAll(contractDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(contractDir, name+".dbg.json"), []byte(dbg), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// CreateTempProject creates a project dir holding config/config.yaml pointing
// at rpcURL, plus empty artifacts and deployments dirs.
func CreateTempProject(t *testing.T, rpcURL string, privateKey *ecdsa.PrivateKey) string {
	t.Helper()

	tempDir := t.TempDir()
	configDir := filepath.Join(tempDir, "config")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatal(err)
	}
	for _, dir := range []string{"artifacts", "deployments"} {
		if err := os.MkdirAll(filepath.Join(tempDir, dir), 0755); err != nil {
			t.Fatal(err)
		}
	}

	cfg := `version: 0.1.0
project:
  name: test-project
  default_network: localhost
  deployments_dir: ` + filepath.Join(tempDir, "deployments") + `
  artifacts_dir: ` + filepath.Join(tempDir, "artifacts") + `
networks:
  localhost:
    rpc_url: ` + rpcURL + `
    chain_id: 1337
    deployer_private_key: "` + hexutil.Encode(crypto.FromECDSA(privateKey)) + `"
    gas_limit: 8000000
    auto_mine: true
    faucet:
      method: none
    distribution:
      concurrency: 3
`
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}
	return tempDir
}

func FindSubcommandByName(name string, commands []*cli.Command) *cli.Command {
	for _, cmd := range commands {
		if cmd.Name == name {
			return cmd
		}
	}
	return nil
}

// WithTestLogger installs a non-verbose basic logger on the command context.
func WithTestLogger(cmd *cli.Command) *cli.Command {
	cmd.Before = func(cCtx *cli.Context) error {
		cCtx.Context = devcommon.WithLogger(cCtx.Context, logger.NewLogger(false))
		return nil
	}
	return cmd
}

func CaptureOutput(fn func()) (stdout string, stderr string) {
	log := logger.NewLogger(false)

	// Capture stdout
	origStdout := os.Stdout
	origStderr := os.Stderr
	rOut, wOut, _ := os.Pipe()
	rErr, wErr, _ := os.Pipe()
	os.Stdout = wOut
	os.Stderr = wErr

	outC := make(chan string)
	errC := make(chan string)

	go func() {
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(rOut); err != nil {
			log.Warn("failed to read stdout: %v", err)
		}
		outC <- buf.String()
	}()

	go func() {
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(rErr); err != nil {
			log.Warn("failed to read stderr: %v", err)
		}
		errC <- buf.String()
	}()

	// Run target code
	fn()

	// Restore
	wOut.Close()
	wErr.Close()
	os.Stdout = origStdout
	os.Stderr = origStderr

	stdout = <-outC
	stderr = <-errC

	return stdout, stderr
}
