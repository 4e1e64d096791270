package devnet

import (
	"context"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	devcommon "github.com/nvitorovic/scaffold-eth-2/pkg/common"
	"github.com/nvitorovic/scaffold-eth-2/pkg/common/iface"
)

// RPCCaller is the subset of *rpc.Client used for node cheat-code calls.
type RPCCaller interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
}

// BalanceReader reads an account balance.
type BalanceReader interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// ValueSender sends plain value transfers from a funded key.
type ValueSender interface {
	SendValue(ctx context.Context, to common.Address, value *big.Int) (*types.Receipt, error)
}

// Funder tops up an address on a test network.
type Funder interface {
	Fund(ctx context.Context, addr common.Address) error
}

// NoopFunder is used when the network has no faucet.
type NoopFunder struct{}

func (NoopFunder) Fund(context.Context, common.Address) error { return nil }

// SetBalanceFunder overwrites balances with a node cheat-code such as
// hardhat_setBalance, anvil_setBalance or tenderly_setBalance.
type SetBalanceFunder struct {
	client RPCCaller
	method string
	amount *big.Int
	logger iface.Logger
}

func NewSetBalanceFunder(client RPCCaller, method string, amount *big.Int, logger iface.Logger) *SetBalanceFunder {
	return &SetBalanceFunder{client: client, method: method, amount: amount, logger: logger}
}

func (f *SetBalanceFunder) Fund(ctx context.Context, addr common.Address) error {
	f.logger.Info("💸 Funding %s with %s wei via %s", addr.Hex(), f.amount.String(), f.method)

	var err error
	value := (*hexutil.Big)(f.amount)
	if f.method == devcommon.FaucetTenderly {
		// Tenderly accepts a list of addresses
		err = f.client.CallContext(ctx, nil, f.method, []common.Address{addr}, value)
	} else {
		err = f.client.CallContext(ctx, nil, f.method, addr, value)
	}
	if err != nil {
		return fmt.Errorf("%s for %s: %w", f.method, addr.Hex(), err)
	}

	f.logger.Info("✅ Funded %s", addr.Hex())
	return nil
}

// TransferFunder sends value from a funded key, only when the target balance
// is below the configured amount.
type TransferFunder struct {
	balances BalanceReader
	sender   ValueSender
	amount   *big.Int
	logger   iface.Logger
}

func NewTransferFunder(balances BalanceReader, sender ValueSender, amount *big.Int, logger iface.Logger) *TransferFunder {
	return &TransferFunder{balances: balances, sender: sender, amount: amount, logger: logger}
}

func (f *TransferFunder) Fund(ctx context.Context, addr common.Address) error {
	balance, err := f.balances.BalanceAt(ctx, addr, nil)
	if err != nil {
		return fmt.Errorf("failed to get balance for account %s: %w", addr.Hex(), err)
	}
	if balance.Cmp(f.amount) >= 0 {
		f.logger.Info("✅ %s already has sufficient balance (%s wei)", addr.Hex(), balance.String())
		return nil
	}

	topUp := new(big.Int).Sub(f.amount, balance)
	f.logger.Info("💸 Funding %s with %s wei", addr.Hex(), topUp.String())
	if _, err := f.sender.SendValue(ctx, addr, topUp); err != nil {
		f.logger.Error("❌ Failed to fund %s: %v", addr.Hex(), err)
		return fmt.Errorf("fund %s: %w", addr.Hex(), err)
	}

	f.logger.Info("✅ Funded %s", addr.Hex())
	return nil
}

type skippingFunder struct {
	logger iface.Logger
}

func (f skippingFunder) Fund(_ context.Context, addr common.Address) error {
	f.logger.Info("🔧 Skipping funding of %s (%s=true)", addr.Hex(), SKIP_FUNDING_ENV)
	return nil
}

// FunderDeps carries the chain handles a faucet strategy may need.
type FunderDeps struct {
	RPC      RPCCaller
	Balances BalanceReader
	// Sender is only required by the transfer method
	Sender ValueSender
}

// NewFunder selects the funding strategy configured for a network.
func NewFunder(cfg devcommon.FaucetConfig, deps FunderDeps, logger iface.Logger) (Funder, error) {
	if os.Getenv(SKIP_FUNDING_ENV) == "true" {
		return skippingFunder{logger: logger}, nil
	}

	amount, err := ParseAmount(cfg.Amount)
	if err != nil {
		return nil, err
	}

	switch cfg.Method {
	case devcommon.FaucetNone, "":
		return NoopFunder{}, nil
	case devcommon.FaucetHardhat, devcommon.FaucetAnvil, devcommon.FaucetTenderly:
		if deps.RPC == nil {
			return nil, fmt.Errorf("faucet %s requires an rpc client", cfg.Method)
		}
		return NewSetBalanceFunder(deps.RPC, cfg.Method, amount, logger), nil
	case devcommon.FaucetTransfer:
		if deps.Balances == nil || deps.Sender == nil {
			return nil, fmt.Errorf("faucet %s requires a funded sender", cfg.Method)
		}
		return NewTransferFunder(deps.Balances, deps.Sender, amount, logger), nil
	default:
		return nil, fmt.Errorf("unknown faucet method %q", cfg.Method)
	}
}

// ParseAmount parses a decimal wei amount, defaulting to FUND_VALUE when empty.
func ParseAmount(s string) (*big.Int, error) {
	if s == "" {
		s = FUND_VALUE
	}
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("invalid faucet amount %q", s)
	}
	return amount, nil
}
