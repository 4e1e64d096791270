package commands

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/nvitorovic/scaffold-eth-2/pkg/deployments"
	"github.com/nvitorovic/scaffold-eth-2/pkg/testutils"
)

type ethService struct {
	chainID int64
	code    map[ethcommon.Address]hexutil.Bytes
}

func (s *ethService) ChainId() *hexutil.Big {
	return (*hexutil.Big)(big.NewInt(s.chainID))
}

func (s *ethService) GetCode(addr ethcommon.Address, _ string) hexutil.Bytes {
	return s.code[addr]
}

type hardhatService struct {
	mu       sync.Mutex
	balances map[ethcommon.Address]*big.Int
}

func (s *hardhatService) SetBalance(addr ethcommon.Address, amount hexutil.Big) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[addr] = amount.ToInt()
	return nil
}

func (s *hardhatService) balance(addr ethcommon.Address) *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[addr]
}

// startFakeNode serves eth_chainId, eth_getCode and hardhat_setBalance over HTTP.
// Code is reported at each of withCode.
func startFakeNode(t *testing.T, chainID int64, withCode ...ethcommon.Address) (string, *hardhatService) {
	t.Helper()

	eth := &ethService{chainID: chainID, code: make(map[ethcommon.Address]hexutil.Bytes)}
	for _, addr := range withCode {
		eth.code[addr] = hexutil.Bytes{0x00}
	}
	hardhat := &hardhatService{balances: make(map[ethcommon.Address]*big.Int)}
	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("eth", eth))
	require.NoError(t, server.RegisterName("hardhat", hardhat))

	httpServer := httptest.NewServer(server)
	t.Cleanup(func() {
		httpServer.Close()
		server.Stop()
	})
	return httpServer.URL, hardhat
}

func newProject(t *testing.T, rpcURL string) (string, string) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	dir := testutils.CreateTempProject(t, rpcURL, key)
	return dir, filepath.Join(dir, "config", "config.yaml")
}

func appendConfig(t *testing.T, configPath, extra string) {
	t.Helper()
	f, err := os.OpenFile(configPath, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	defer f.Close()
	_, err = f.WriteString(extra)
	require.NoError(t, err)
}

func replaceInConfig(t *testing.T, configPath, old, new string) {
	t.Helper()
	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(configPath, []byte(strings.Replace(string(data), old, new, 1)), 0644))
}

func runApp(t *testing.T, args ...string) error {
	t.Helper()
	app := &cli.App{
		Name: "se2deploy",
		Commands: []*cli.Command{
			testutils.WithTestLogger(DeployCommand),
			testutils.WithTestLogger(FundCommand),
			testutils.WithTestLogger(VerifyCommand),
			DeploymentsCommand,
			ConfigCommand,
		},
	}
	return app.Run(append([]string{"se2deploy"}, args...))
}

func TestDeployCommand_UnknownTag(t *testing.T) {
	url, _ := startFakeNode(t, 1337)
	_, configPath := newProject(t, url)

	err := runApp(t, "deploy", "--config", configPath, "--tags", "Nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no deploy script tagged Nope")
}

func TestDeployCommand_UnknownNetwork(t *testing.T) {
	url, _ := startFakeNode(t, 1337)
	_, configPath := newProject(t, url)

	err := runApp(t, "deploy", "--config", configPath, "--network", "mainnet")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `network "mainnet" not found`)
}

func TestDeployCommand_ChainIDMismatch(t *testing.T) {
	url, _ := startFakeNode(t, 5)
	_, configPath := newProject(t, url)

	err := runApp(t, "deploy", "--config", configPath, "--tags", "DeployPool")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expects chain 1337")
}

func TestDeployCommand_MissingArtifactAbortsScript(t *testing.T) {
	url, _ := startFakeNode(t, 1337)
	dir, configPath := newProject(t, url)

	err := runApp(t, "deploy", "--config", configPath, "--tags", "DeployPool")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "01_deploy_pool")
	assert.Contains(t, err.Error(), "PoolAndSwap")

	// nothing was recorded
	entries, err := os.ReadDir(filepath.Join(dir, "deployments"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFundCommand_SetBalance(t *testing.T) {
	url, hardhat := startFakeNode(t, 1337)
	_, configPath := newProject(t, url)
	replaceInConfig(t, configPath, "method: none", "method: hardhat_setBalance\n      amount: \"5000\"")

	target := ethcommon.HexToAddress("0x00000000000000000000000000000000000000bb")
	require.NoError(t, runApp(t, "fund", "--config", configPath, "--address", target.Hex()))
	assert.Equal(t, big.NewInt(5000), hardhat.balance(target))
}

func TestFundCommand_DefaultsToDeployer(t *testing.T) {
	url, hardhat := startFakeNode(t, 1337)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	dir := testutils.CreateTempProject(t, url, key)
	configPath := filepath.Join(dir, "config", "config.yaml")
	replaceInConfig(t, configPath, "method: none", "method: hardhat_setBalance")

	require.NoError(t, runApp(t, "fund", "--config", configPath))
	assert.NotNil(t, hardhat.balance(crypto.PubkeyToAddress(key.PublicKey)))
}

func TestFundCommand_InvalidAddress(t *testing.T) {
	url, _ := startFakeNode(t, 1337)
	_, configPath := newProject(t, url)

	err := runApp(t, "fund", "--config", configPath, "--address", "0x1234")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid address")
}

// tenderlyProject points the project at a fake Tenderly API and writes a
// compiled ERC20Token with its sources. Uploaded requests are sent on the channel.
func tenderlyProject(t *testing.T, dir, configPath string) chan map[string]any {
	t.Helper()

	uploads := make(chan map[string]any, 4)
	tenderly := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/account/acme/project/tokens/contracts", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-Access-Key"))
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		uploads <- body
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(tenderly.Close)

	artifactsDir := filepath.Join(dir, "artifacts")
	testutils.WriteArtifact(t, artifactsDir, "ERC20Token", `[]`, testutils.StopInitCode)
	testutils.WriteBuildInfo(t, artifactsDir, "ERC20Token", map[string]string{
		"contracts/ERC20Token.sol": "contract ERC20Token {}",
	})

	appendConfig(t, configPath, "verification:\n  tenderly:\n    api_url: "+tenderly.URL+"\n")
	t.Setenv("TENDERLY_ACCOUNT", "acme")
	t.Setenv("TENDERLY_PROJECT", "tokens")
	t.Setenv("TENDERLY_ACCESS_KEY", "secret")
	return uploads
}

func uploadedContract(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	contracts, ok := body["contracts"].([]any)
	require.True(t, ok)
	require.NotEmpty(t, contracts)
	main, ok := contracts[0].(map[string]any)
	require.True(t, ok)
	return main
}

func TestVerifyCommand(t *testing.T) {
	dir, configPath := newProject(t, "http://127.0.0.1:1")
	uploads := tenderlyProject(t, dir, configPath)

	addr := "0x00000000000000000000000000000000000000CC"
	require.NoError(t, runApp(t, "verify", "--config", configPath, "--name", "ERC20Token", "--address", addr))

	main := uploadedContract(t, <-uploads)
	assert.Equal(t, "ERC20Token", main["contractName"])
	assert.Equal(t, "contracts/ERC20Token.sol", main["sourcePath"])
	assert.Equal(t, "contract ERC20Token {}", main["source"])
	networks := main["networks"].(map[string]any)
	assert.Equal(t, strings.ToLower(addr), networks["1337"].(map[string]any)["address"])
}

func TestVerifyCommand_AddressFromDeployment(t *testing.T) {
	addr := ethcommon.HexToAddress("0x00000000000000000000000000000000000000dd")
	url, _ := startFakeNode(t, 1337, addr)
	dir, configPath := newProject(t, url)
	uploads := tenderlyProject(t, dir, configPath)

	store := deployments.NewStore(filepath.Join(dir, "deployments"), "localhost", 1337)
	require.NoError(t, store.Save(&deployments.Record{Name: "ERC20Token", Address: addr, Args: json.RawMessage("[]"), ChainID: 1337}))

	require.NoError(t, runApp(t, "verify", "--config", configPath, "--name", "ERC20Token"))

	main := uploadedContract(t, <-uploads)
	networks := main["networks"].(map[string]any)
	assert.Equal(t, strings.ToLower(addr.Hex()), networks["1337"].(map[string]any)["address"])
}

func TestVerifyCommand_RecordWithoutCode(t *testing.T) {
	url, _ := startFakeNode(t, 1337)
	dir, configPath := newProject(t, url)
	tenderlyProject(t, dir, configPath)

	store := deployments.NewStore(filepath.Join(dir, "deployments"), "localhost", 1337)
	require.NoError(t, store.Save(&deployments.Record{
		Name:    "ERC20Token",
		Address: ethcommon.HexToAddress("0x00000000000000000000000000000000000000ee"),
		Args:    json.RawMessage("[]"),
		ChainID: 1337,
	}))

	err := runApp(t, "verify", "--config", configPath, "--name", "ERC20Token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no live deployment of ERC20Token")
	assert.True(t, errors.Is(err, deployments.ErrUnknownContract))
}

func TestVerifyCommand_NotConfigured(t *testing.T) {
	_, configPath := newProject(t, "http://127.0.0.1:1")
	t.Setenv("TENDERLY_ACCESS_KEY", "")

	err := runApp(t, "verify", "--config", configPath, "--name", "ERC20Token",
		"--address", "0x00000000000000000000000000000000000000cc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verification is not configured")
}

func TestDeploymentsList(t *testing.T) {
	dir, configPath := newProject(t, "http://127.0.0.1:1")

	store := deployments.NewStore(filepath.Join(dir, "deployments"), "localhost", 1337)
	require.NoError(t, store.Save(&deployments.Record{
		Name:        "ERC20TokenFactory",
		Address:     ethcommon.HexToAddress("0x00000000000000000000000000000000000000f1"),
		Args:        json.RawMessage("[]"),
		BlockNumber: 7,
		ChainID:     1337,
		DeployedAt:  time.Unix(0, 0).UTC(),
	}))

	var runErr error
	stdout, _ := testutils.CaptureOutput(func() {
		runErr = runApp(t, "deployments", "list", "--config", configPath)
	})
	require.NoError(t, runErr)
	assert.Contains(t, stdout, "ERC20TokenFactory")
	assert.Contains(t, stdout, ethcommon.HexToAddress("0x00000000000000000000000000000000000000f1").Hex())
	assert.Contains(t, stdout, "1970-01-01T00:00:00Z")
}

func TestDeploymentsList_Empty(t *testing.T) {
	_, configPath := newProject(t, "http://127.0.0.1:1")

	var runErr error
	stdout, _ := testutils.CaptureOutput(func() {
		runErr = runApp(t, "deployments", "list", "--config", configPath)
	})
	require.NoError(t, runErr)
	assert.Contains(t, stdout, "No deployments recorded for localhost")
}

func TestConfigCommand_RedactsKeys(t *testing.T) {
	_, configPath := newProject(t, "http://127.0.0.1:8545")

	var runErr error
	stdout, _ := testutils.CaptureOutput(func() {
		runErr = runApp(t, "config", "--config", configPath)
	})
	require.NoError(t, runErr)
	assert.Contains(t, stdout, "Project: test-project")
	assert.Contains(t, stdout, "RPC URL: http://127.0.0.1:8545")
	assert.Contains(t, stdout, "private key (redacted)")
	assert.Contains(t, stdout, "Auto-mine: true")
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()
	originalWD, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() {
		if err := os.Chdir(originalWD); err != nil {
			t.Logf("Failed to return to original directory: %v", err)
		}
	}()

	app := &cli.App{Name: "se2deploy", Commands: []*cli.Command{testutils.WithTestLogger(InitCommand)}}
	require.NoError(t, app.Run([]string{"se2deploy", "init"}))

	for _, path := range []string{"config/config.yaml", ".env", "deployments", "artifacts"} {
		_, err := os.Stat(filepath.Join(dir, path))
		assert.NoError(t, err, path)
	}

	// existing files are kept unless --overwrite
	require.NoError(t, os.WriteFile(".env", []byte("CUSTOM=1\n"), 0644))
	require.NoError(t, app.Run([]string{"se2deploy", "init"}))
	data, err := os.ReadFile(".env")
	require.NoError(t, err)
	assert.Equal(t, "CUSTOM=1\n", string(data))

	require.NoError(t, app.Run([]string{"se2deploy", "init", "--overwrite"}))
	data, err = os.ReadFile(".env")
	require.NoError(t, err)
	assert.NotEqual(t, "CUSTOM=1\n", string(data))
}
