package deployments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/nvitorovic/scaffold-eth-2/pkg/artifacts"
	"github.com/nvitorovic/scaffold-eth-2/pkg/chain"
	devcommon "github.com/nvitorovic/scaffold-eth-2/pkg/common"
	"github.com/nvitorovic/scaffold-eth-2/pkg/common/iface"
)

type DeployOptions struct {
	Args []interface{}
	// GasLimit overrides the network default when non-zero
	GasLimit uint64
	// Reset redeploys even when a live deployment is recorded
	Reset bool
	// Log prints the deployment line at info level instead of debug
	Log bool
}

// Deployment is a recorded contract together with its artifact.
type Deployment struct {
	Record
	Artifact *artifacts.Artifact
	// Reused is true when an existing deployment was returned without sending a transaction
	Reused bool
}

type Deployer struct {
	caller    *chain.Caller
	artifacts *artifacts.Loader
	store     *Store
	gasLimit  uint64
	logger    iface.Logger
}

func NewDeployer(caller *chain.Caller, loader *artifacts.Loader, store *Store, gasLimit uint64, logger iface.Logger) *Deployer {
	if gasLimit == 0 {
		gasLimit = devcommon.DefaultGasLimit
	}
	return &Deployer{caller: caller, artifacts: loader, store: store, gasLimit: gasLimit, logger: logger}
}

func (d *Deployer) Store() *Store { return d.store }

// Deploy deploys the named artifact unless a deployment with the same constructor
// arguments is recorded and its address still holds code.
func (d *Deployer) Deploy(ctx context.Context, name string, opts DeployOptions) (*Deployment, error) {
	artifact, err := d.artifacts.Load(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load artifact %s: %w", name, err)
	}
	if len(artifact.Bytecode) == 0 {
		return nil, fmt.Errorf("artifact %s has no bytecode (abstract contract or interface?)", name)
	}

	args := opts.Args
	if args == nil {
		args = []interface{}{}
	}
	encodedArgs, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s constructor args: %w", name, err)
	}

	if opts.Reset {
		if err := d.store.Delete(name); err != nil {
			return nil, err
		}
	} else {
		existing, reusable, err := d.reusable(ctx, name, encodedArgs)
		if err != nil {
			return nil, err
		}
		if reusable {
			d.log(opts.Log, "reusing \"%s\" at %s", name, existing.Address.Hex())
			return &Deployment{Record: *existing, Artifact: artifact, Reused: true}, nil
		}
	}

	gasLimit := opts.GasLimit
	if gasLimit == 0 {
		gasLimit = d.gasLimit
	}

	var pending *types.Transaction
	receipt, err := d.caller.SendAndWaitForTransaction(ctx, fmt.Sprintf("Deploy %s", name), func(txOpts *bind.TransactOpts) (*types.Transaction, error) {
		txOpts.GasLimit = gasLimit
		_, tx, _, err := bind.DeployContract(txOpts, artifact.ABI, artifact.Bytecode, d.caller.Backend(), args...)
		pending = tx
		return tx, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to deploy %s: %w", name, err)
	}

	rec := Record{
		Name:        name,
		Address:     receipt.ContractAddress,
		Args:        encodedArgs,
		TxHash:      pending.Hash(),
		BlockNumber: receipt.BlockNumber.Uint64(),
		ChainID:     d.caller.ChainID().Int64(),
		DeployedAt:  time.Now().UTC(),
	}
	if err := d.store.Save(&rec); err != nil {
		return nil, err
	}

	d.log(opts.Log, "deployed \"%s\" (tx: %s) at %s with %d gas", name, rec.TxHash.Hex(), rec.Address.Hex(), receipt.GasUsed)
	return &Deployment{Record: rec, Artifact: artifact}, nil
}

func (d *Deployer) reusable(ctx context.Context, name string, encodedArgs []byte) (*Record, bool, error) {
	existing, err := d.store.Get(name)
	if errors.Is(err, ErrUnknownContract) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if !bytes.Equal(compact(existing.Args), compact(encodedArgs)) {
		d.logger.Info("Constructor arguments of %s changed, redeploying", name)
		return nil, false, nil
	}

	ok, err := d.caller.HasCode(ctx, existing.Address)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		d.logger.Warn("Recorded %s at %s has no code (chain was reset?), redeploying", name, existing.Address.Hex())
		return nil, false, nil
	}
	return existing, true, nil
}

// Get returns a recorded deployment whose address still holds code.
func (d *Deployer) Get(ctx context.Context, name string) (*Deployment, error) {
	rec, err := d.store.Get(name)
	if err != nil {
		return nil, err
	}
	ok, err := d.caller.HasCode(ctx, rec.Address)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s at %s has no code: %w", name, rec.Address.Hex(), ErrUnknownContract)
	}
	artifact, err := d.artifacts.Load(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load artifact %s: %w", name, err)
	}
	return &Deployment{Record: *rec, Artifact: artifact, Reused: true}, nil
}

func (d *Deployer) log(info bool, msg string, args ...any) {
	if info {
		d.logger.Info(msg, args...)
		return
	}
	d.logger.Debug(msg, args...)
}

func compact(raw []byte) []byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}
