package deployments

import (
	"context"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvitorovic/scaffold-eth-2/pkg/artifacts"
	"github.com/nvitorovic/scaffold-eth-2/pkg/chain"
	"github.com/nvitorovic/scaffold-eth-2/pkg/common/logger"
	"github.com/nvitorovic/scaffold-eth-2/pkg/testutils"
)

const ctorABI = `[{"type":"constructor","stateMutability":"nonpayable","inputs":[
  {"name":"tokenA","type":"address"},{"name":"tokenB","type":"address"}]}]`

type deployerFixture struct {
	sim      *testutils.SimulatedChain
	deployer *Deployer
	store    *Store
}

func newDeployerFixture(t *testing.T) deployerFixture {
	t.Helper()
	sim := testutils.NewSimulatedChain(t)
	artifactsDir := t.TempDir()
	testutils.WriteArtifact(t, artifactsDir, "PoolAndSwap", `[]`, testutils.StopInitCode)
	testutils.WriteArtifact(t, artifactsDir, "SimpleAMM", ctorABI, testutils.StopInitCode)
	testutils.WriteArtifact(t, artifactsDir, "IERC20", `[]`, "0x")

	log := logger.NewLogger(false)
	caller := chain.NewCaller(sim.Client, sim.Key, sim.ChainID(), chain.CallerOptions{Miner: sim, Logger: log})
	store := NewStore(t.TempDir(), "localhost", testutils.SimulatedChainID)
	return deployerFixture{
		sim:      sim,
		deployer: NewDeployer(caller, artifacts.NewLoader(artifactsDir), store, 0, log),
		store:    store,
	}
}

func (f deployerFixture) nonce(t *testing.T) uint64 {
	t.Helper()
	n, err := f.sim.Client.NonceAt(context.Background(), f.sim.Address, nil)
	require.NoError(t, err)
	return n
}

func TestDeploy_RecordsDeployment(t *testing.T) {
	f := newDeployerFixture(t)

	dep, err := f.deployer.Deploy(context.Background(), "PoolAndSwap", DeployOptions{Log: true})
	require.NoError(t, err)
	assert.False(t, dep.Reused)
	assert.NotEqual(t, common.Address{}, dep.Address)
	assert.Equal(t, testutils.SimulatedChainID, dep.ChainID)

	code, err := f.sim.Client.CodeAt(context.Background(), dep.Address, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, code)

	rec, err := f.store.Get("PoolAndSwap")
	require.NoError(t, err)
	assert.Equal(t, dep.Address, rec.Address)
	assert.Equal(t, dep.TxHash, rec.TxHash)

	chainID, err := os.ReadFile(filepath.Join(f.store.Dir(), ".chainId"))
	require.NoError(t, err)
	assert.Equal(t, "1337", string(chainID))
}

func TestDeploy_IsIdempotent(t *testing.T) {
	f := newDeployerFixture(t)

	first, err := f.deployer.Deploy(context.Background(), "PoolAndSwap", DeployOptions{})
	require.NoError(t, err)
	nonce := f.nonce(t)

	second, err := f.deployer.Deploy(context.Background(), "PoolAndSwap", DeployOptions{})
	require.NoError(t, err)
	assert.True(t, second.Reused)
	assert.Equal(t, first.Address, second.Address)
	assert.Equal(t, nonce, f.nonce(t), "no transaction is sent when reusing")
}

func TestDeploy_ResetRedeploys(t *testing.T) {
	f := newDeployerFixture(t)

	first, err := f.deployer.Deploy(context.Background(), "PoolAndSwap", DeployOptions{})
	require.NoError(t, err)

	second, err := f.deployer.Deploy(context.Background(), "PoolAndSwap", DeployOptions{Reset: true})
	require.NoError(t, err)
	assert.False(t, second.Reused)
	assert.NotEqual(t, first.Address, second.Address)

	rec, err := f.store.Get("PoolAndSwap")
	require.NoError(t, err)
	assert.Equal(t, second.Address, rec.Address)
}

func TestDeploy_ResetDropsRecordEvenWhenRedeployFails(t *testing.T) {
	f := newDeployerFixture(t)

	_, err := f.deployer.Deploy(context.Background(), "PoolAndSwap", DeployOptions{})
	require.NoError(t, err)

	// same store, but the artifact now reverts in its constructor
	revertingDir := t.TempDir()
	testutils.WriteArtifact(t, revertingDir, "PoolAndSwap", `[]`, "0x60006000fd")
	log := logger.NewLogger(false)
	caller := chain.NewCaller(f.sim.Client, f.sim.Key, f.sim.ChainID(), chain.CallerOptions{Miner: f.sim, Logger: log})
	reverting := NewDeployer(caller, artifacts.NewLoader(revertingDir), f.store, 0, log)

	_, err = reverting.Deploy(context.Background(), "PoolAndSwap", DeployOptions{Reset: true})
	require.Error(t, err)

	_, err = f.store.Get("PoolAndSwap")
	assert.True(t, errors.Is(err, ErrUnknownContract))
}

func TestDeploy_ChangedArgsRedeploy(t *testing.T) {
	f := newDeployerFixture(t)
	buz := common.HexToAddress("0x00000000000000000000000000000000000000b1")
	baz := common.HexToAddress("0x00000000000000000000000000000000000000b2")

	first, err := f.deployer.Deploy(context.Background(), "SimpleAMM", DeployOptions{Args: []interface{}{buz, baz}})
	require.NoError(t, err)

	same, err := f.deployer.Deploy(context.Background(), "SimpleAMM", DeployOptions{Args: []interface{}{buz, baz}})
	require.NoError(t, err)
	assert.True(t, same.Reused)

	changed, err := f.deployer.Deploy(context.Background(), "SimpleAMM", DeployOptions{Args: []interface{}{baz, buz}})
	require.NoError(t, err)
	assert.False(t, changed.Reused)
	assert.NotEqual(t, first.Address, changed.Address)
}

func TestDeploy_RecordWithoutCodeRedeploys(t *testing.T) {
	f := newDeployerFixture(t)
	require.NoError(t, f.store.Save(&Record{
		Name:    "PoolAndSwap",
		Address: common.HexToAddress("0x00000000000000000000000000000000000000ee"),
		Args:    []byte(`[]`),
		ChainID: testutils.SimulatedChainID,
	}))

	dep, err := f.deployer.Deploy(context.Background(), "PoolAndSwap", DeployOptions{})
	require.NoError(t, err)
	assert.False(t, dep.Reused)
	assert.NotEqual(t, common.HexToAddress("0xee"), dep.Address)
}

func TestDeploy_Errors(t *testing.T) {
	f := newDeployerFixture(t)

	_, err := f.deployer.Deploy(context.Background(), "Missing", DeployOptions{})
	assert.True(t, errors.Is(err, artifacts.ErrNotFound))

	_, err = f.deployer.Deploy(context.Background(), "IERC20", DeployOptions{})
	assert.ErrorContains(t, err, "has no bytecode")

	_, err = f.deployer.Deploy(context.Background(), "SimpleAMM", DeployOptions{Args: []interface{}{big.NewInt(1)}})
	assert.ErrorContains(t, err, "failed to deploy SimpleAMM")
}

func TestDeployer_Get(t *testing.T) {
	f := newDeployerFixture(t)

	_, err := f.deployer.Get(context.Background(), "PoolAndSwap")
	assert.True(t, errors.Is(err, ErrUnknownContract))

	dep, err := f.deployer.Deploy(context.Background(), "PoolAndSwap", DeployOptions{})
	require.NoError(t, err)

	got, err := f.deployer.Get(context.Background(), "PoolAndSwap")
	require.NoError(t, err)
	assert.Equal(t, dep.Address, got.Address)
}

func TestStore_ListAndChainGuard(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root, "localhost", 31337)

	records, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, records)

	for _, name := range []string{"SimpleAMM", "ERC20TokenFactory", "PoolAndSwap"} {
		require.NoError(t, store.Save(&Record{Name: name, Args: []byte(`[]`), ChainID: 31337}))
	}
	records, err = store.List()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "ERC20TokenFactory", records[0].Name)
	assert.Equal(t, "PoolAndSwap", records[1].Name)
	assert.Equal(t, "SimpleAMM", records[2].Name)

	require.NoError(t, store.Delete("PoolAndSwap"))
	require.NoError(t, store.Delete("PoolAndSwap"))
	_, err = store.Get("PoolAndSwap")
	assert.True(t, errors.Is(err, ErrUnknownContract))

	other := NewStore(root, "localhost", 1)
	_, err = other.Get("SimpleAMM")
	assert.ErrorContains(t, err, "belong to chain 31337")
	assert.Error(t, other.Save(&Record{Name: "X", Args: []byte(`[]`)}))
}
