package commands

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/urfave/cli/v2"

	"github.com/nvitorovic/scaffold-eth-2/pkg/artifacts"
	"github.com/nvitorovic/scaffold-eth-2/pkg/chain"
	"github.com/nvitorovic/scaffold-eth-2/pkg/common"
	"github.com/nvitorovic/scaffold-eth-2/pkg/common/devnet"
	"github.com/nvitorovic/scaffold-eth-2/pkg/common/iface"
	"github.com/nvitorovic/scaffold-eth-2/pkg/deployments"
	"github.com/nvitorovic/scaffold-eth-2/pkg/scripts"
	"github.com/nvitorovic/scaffold-eth-2/pkg/token"
	"github.com/nvitorovic/scaffold-eth-2/pkg/verify"
)

// networkRuntime is the set of clients a command needs for one network.
type networkRuntime struct {
	cfg     *common.Config
	name    string
	network common.NetworkConfig
	logger  iface.Logger

	conn     *chain.Conn
	caller   *chain.Caller
	deployer *deployments.Deployer
	funder   devnet.Funder
	verifier verify.Verifier
}

// loadNetwork reads the config file and resolves the network selected by --network.
// The returned copy carries env overrides and defaults.
func loadNetwork(cCtx *cli.Context) (*common.Config, string, common.NetworkConfig, error) {
	cfg, err := common.LoadConfig(cCtx.String("config"))
	if err != nil {
		return nil, "", common.NetworkConfig{}, err
	}
	name, network, err := cfg.Network(cCtx.String("network"))
	if err != nil {
		return nil, "", common.NetworkConfig{}, err
	}
	return cfg, name, network, nil
}

// newNetworkRuntime dials the resolved network and wires the signer, faucet,
// deployer and verifier for it.
func newNetworkRuntime(ctx context.Context, cfg *common.Config, name string, network common.NetworkConfig, logger iface.Logger) (*networkRuntime, error) {
	conn, err := chain.Dial(ctx, network.RPCURL)
	if err != nil {
		return nil, err
	}

	rt, err := wireRuntime(ctx, cfg, name, network, conn, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return rt, nil
}

func wireRuntime(ctx context.Context, cfg *common.Config, name string, network common.NetworkConfig, conn *chain.Conn, logger iface.Logger) (*networkRuntime, error) {
	chainID, err := conn.Eth.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}
	if network.ChainID == 0 {
		network.ChainID = chainID.Int64()
	} else if network.ChainID != chainID.Int64() {
		return nil, fmt.Errorf("network %s expects chain %d but %s serves chain %d", name, network.ChainID, network.RPCURL, chainID.Int64())
	}

	key, err := chain.LoadKey(network.DeployerPrivateKey, network.DeployerKeystore)
	if err != nil {
		return nil, fmt.Errorf("failed to load deployer key for %s: %w", name, err)
	}

	callerOpts := chain.CallerOptions{Logger: logger}
	if network.AutoMineEnabled() {
		callerOpts.Miner = devnet.NewRPCMiner(conn.RPC)
	}
	caller := chain.NewCaller(conn.Eth, key, big.NewInt(network.ChainID), callerOpts)

	deps := devnet.FunderDeps{RPC: conn.RPC, Balances: conn.Eth}
	if network.Faucet.FunderPrivateKey != "" {
		funderKey, err := chain.LoadKey(network.Faucet.FunderPrivateKey, nil)
		if err != nil {
			return nil, fmt.Errorf("invalid faucet funder key: %w", err)
		}
		// WithKey hands back caller itself when the funder is the deployer
		deps.Sender = caller.WithKey(funderKey)
	}
	funder, err := devnet.NewFunder(network.Faucet, deps, logger)
	if err != nil {
		return nil, err
	}

	loader := artifacts.NewLoader(cfg.Project.ArtifactsDir)
	store := deployments.NewStore(cfg.Project.DeploymentsDir, name, network.ChainID)
	deployer := deployments.NewDeployer(caller, loader, store, network.GasLimit, logger)

	return &networkRuntime{
		cfg:      cfg,
		name:     name,
		network:  network,
		logger:   logger,
		conn:     conn,
		caller:   caller,
		deployer: deployer,
		funder:   funder,
		verifier: verify.New(cfg.Verification.Tenderly, network.ChainID, loader, logger),
	}, nil
}

func (r *networkRuntime) Close() {
	r.conn.Close()
}

// scriptEnv exposes the runtime to deploy scripts.
func (r *networkRuntime) scriptEnv(reset bool, progress iface.ProgressTracker) *scripts.Env {
	return &scripts.Env{
		Network:       r.name,
		NetworkConfig: r.network,
		Operator:      r.caller,
		NewAccount: func(key *ecdsa.PrivateKey) token.Transactor {
			return r.caller.WithKey(key)
		},
		Deployer: r.deployer,
		Funder:   r.funder,
		Verifier: r.verifier,
		Reader:   r.conn.W3,
		Logger:   r.logger,
		Progress: progress,
		Reset:    reset,
	}
}
