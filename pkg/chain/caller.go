package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"

	"github.com/nvitorovic/scaffold-eth-2/pkg/common/iface"
	"github.com/nvitorovic/scaffold-eth-2/pkg/common/logger"
)

// Backend is what a Caller needs from a node. *ethclient.Client and the
// simulated backend client both satisfy it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// Miner seals a block right after a transaction is submitted.
type Miner interface {
	Mine(ctx context.Context) error
}

type CallerOptions struct {
	// Miner is set on local networks with auto-mine enabled
	Miner  Miner
	Logger iface.Logger
}

// Caller signs and submits transactions for one account and waits for their receipts.
// Nonces are assigned locally under a mutex so concurrent sends never collide.
type Caller struct {
	backend    Backend
	privateKey *ecdsa.PrivateKey
	from       common.Address
	chainID    *big.Int
	miner      Miner
	logger     iface.Logger

	nonceMu   sync.Mutex
	nextNonce *uint64
}

func NewCaller(backend Backend, privateKey *ecdsa.PrivateKey, chainID *big.Int, opts CallerOptions) *Caller {
	log := opts.Logger
	if log == nil {
		log = logger.NewLogger(false)
	}
	return &Caller{
		backend:    backend,
		privateKey: privateKey,
		from:       crypto.PubkeyToAddress(privateKey.PublicKey),
		chainID:    chainID,
		miner:      opts.Miner,
		logger:     log,
	}
}

func (c *Caller) Address() common.Address { return c.from }

func (c *Caller) ChainID() *big.Int { return new(big.Int).Set(c.chainID) }

func (c *Caller) Backend() Backend { return c.backend }

// WithKey returns a caller for another account sharing the same backend and miner.
// A key for c's own account returns c, so both share one nonce sequence.
func (c *Caller) WithKey(privateKey *ecdsa.PrivateKey) *Caller {
	if crypto.PubkeyToAddress(privateKey.PublicKey) == c.from {
		return c
	}
	return NewCaller(c.backend, privateKey, c.chainID, CallerOptions{Miner: c.miner, Logger: c.logger})
}

func (c *Caller) buildTxOpts(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(c.privateKey, c.chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}

// reserveNonce must be called with nonceMu held.
func (c *Caller) reserveNonce(ctx context.Context) (uint64, error) {
	if c.nextNonce == nil {
		nonce, err := c.backend.PendingNonceAt(ctx, c.from)
		if err != nil {
			return 0, fmt.Errorf("failed to get nonce for %s: %w", c.from.Hex(), err)
		}
		c.nextNonce = &nonce
	}
	return *c.nextNonce, nil
}

// SendAndWaitForTransaction submits the transaction built by fn and blocks until it is mined.
// fn receives transact options with the nonce already assigned.
func (c *Caller) SendAndWaitForTransaction(
	ctx context.Context,
	txDescription string,
	fn func(opts *bind.TransactOpts) (*types.Transaction, error),
) (*types.Receipt, error) {
	tx, err := c.send(ctx, txDescription, fn)
	if err != nil {
		return nil, err
	}

	if c.miner != nil {
		if err := c.miner.Mine(ctx); err != nil {
			c.logger.Warn("Auto-mine after %s failed: %v", txDescription, err)
		}
	}

	receipt, err := bind.WaitMined(ctx, c.backend, tx)
	if err != nil {
		c.logger.Error("Waiting for %s transaction (hash: %s) failed: %v", txDescription, tx.Hash().Hex(), err)
		return nil, fmt.Errorf("waiting for %s transaction (hash: %s): %w", txDescription, tx.Hash().Hex(), err)
	}
	if receipt == nil {
		return nil, fmt.Errorf("%s transaction (hash: %s): %w", txDescription, tx.Hash().Hex(), ErrNoReceipt)
	}
	if receipt.Status == types.ReceiptStatusFailed {
		c.logger.Error("%s transaction (hash: %s) reverted", txDescription, tx.Hash().Hex())
		return receipt, fmt.Errorf("%s transaction (hash: %s): %w", txDescription, tx.Hash().Hex(), ErrReverted)
	}

	c.logger.Debug("%s mined in block %d (hash: %s)", txDescription, receipt.BlockNumber.Uint64(), tx.Hash().Hex())
	return receipt, nil
}

func (c *Caller) send(
	ctx context.Context,
	txDescription string,
	fn func(opts *bind.TransactOpts) (*types.Transaction, error),
) (*types.Transaction, error) {
	opts, err := c.buildTxOpts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build transaction options: %w", err)
	}

	c.nonceMu.Lock()
	defer c.nonceMu.Unlock()

	nonce, err := c.reserveNonce(ctx)
	if err != nil {
		return nil, err
	}
	opts.Nonce = new(big.Int).SetUint64(nonce)

	tx, err := fn(opts)
	if err != nil {
		// the node may have seen a different nonce; refetch on the next send
		c.nextNonce = nil
		c.logger.Error("%s failed during execution: %v", txDescription, err)
		return nil, fmt.Errorf("%s execution: %w", txDescription, err)
	}
	next := tx.Nonce() + 1
	c.nextNonce = &next

	return tx, nil
}

// Transact sends pre-encoded calldata to a contract.
func (c *Caller) Transact(ctx context.Context, txDescription string, to common.Address, calldata []byte) (*types.Receipt, error) {
	contract := bind.NewBoundContract(to, abi.ABI{}, c.backend, c.backend, c.backend)
	return c.SendAndWaitForTransaction(ctx, txDescription, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return contract.RawTransact(opts, calldata)
	})
}

// SendValue transfers wei to an account.
func (c *Caller) SendValue(ctx context.Context, to common.Address, value *big.Int) (*types.Receipt, error) {
	contract := bind.NewBoundContract(to, abi.ABI{}, c.backend, c.backend, c.backend)
	return c.SendAndWaitForTransaction(ctx, fmt.Sprintf("Transfer %s wei to %s", value.String(), to.Hex()), func(opts *bind.TransactOpts) (*types.Transaction, error) {
		opts.Value = value
		// plain transfers skip gas estimation, which requires code at the target
		opts.GasLimit = params.TxGas
		return contract.Transfer(opts)
	})
}

// BalanceAt reads the latest balance of an account.
func (c *Caller) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	return c.backend.BalanceAt(ctx, account, blockNumber)
}

// HasCode reports whether a contract is deployed at addr.
func (c *Caller) HasCode(ctx context.Context, addr common.Address) (bool, error) {
	code, err := c.backend.CodeAt(ctx, addr, nil)
	if err != nil {
		return false, fmt.Errorf("failed to get code at %s: %w", addr.Hex(), err)
	}
	return len(code) > 0, nil
}
