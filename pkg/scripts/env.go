package scripts

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	devcommon "github.com/nvitorovic/scaffold-eth-2/pkg/common"
	"github.com/nvitorovic/scaffold-eth-2/pkg/common/devnet"
	"github.com/nvitorovic/scaffold-eth-2/pkg/common/iface"
	"github.com/nvitorovic/scaffold-eth-2/pkg/deployments"
	"github.com/nvitorovic/scaffold-eth-2/pkg/distribute"
	"github.com/nvitorovic/scaffold-eth-2/pkg/token"
	"github.com/nvitorovic/scaffold-eth-2/pkg/verify"
)

// ContractDeployer deploys or reuses a named contract; *deployments.Deployer satisfies it.
type ContractDeployer interface {
	Deploy(ctx context.Context, name string, opts deployments.DeployOptions) (*deployments.Deployment, error)
}

// Env is everything a deploy script can touch on one network.
type Env struct {
	Network       string
	NetworkConfig devcommon.NetworkConfig

	// Operator signs every deployment and owns the created tokens
	Operator token.Transactor
	// NewAccount binds a signer to a freshly generated key
	NewAccount func(key *ecdsa.PrivateKey) token.Transactor

	Deployer ContractDeployer
	Funder   devnet.Funder
	Verifier verify.Verifier
	// Reader is optional; when set, distributed balances are read back and checked
	Reader token.Reader

	Logger   iface.Logger
	Progress iface.ProgressTracker
	// Reset redeploys contracts even when a live deployment is recorded
	Reset bool
}

// FundOperator tops up addr through the network's faucet.
func (e *Env) FundOperator(ctx context.Context, addr common.Address) error {
	if err := e.Funder.Fund(ctx, addr); err != nil {
		return fmt.Errorf("failed to fund %s: %w", addr.Hex(), err)
	}
	return nil
}

// DeployContract deploys name from the operator account, or reuses the recorded deployment.
func (e *Env) DeployContract(ctx context.Context, name string, args ...interface{}) (*deployments.Deployment, error) {
	if e.NetworkConfig.AutoMine && !e.NetworkConfig.AutoMineEnabled() {
		e.Logger.Debug("auto_mine has no effect on chain %d", e.NetworkConfig.ChainID)
	}
	return e.Deployer.Deploy(ctx, name, deployments.DeployOptions{
		Args:     args,
		GasLimit: e.NetworkConfig.GasLimit,
		Reset:    e.Reset,
		Log:      true,
	})
}

// CreateResource creates a token through the factory and returns the address
// carried by its TokenCreated event.
func (e *Env) CreateResource(ctx context.Context, factory *token.Factory, name, symbol string, supply *big.Int) (*token.ERC20, error) {
	tok, err := factory.CreateToken(ctx, e.Operator, name, symbol, supply)
	if err != nil {
		return nil, err
	}
	if tok.Address() == (common.Address{}) {
		return nil, fmt.Errorf("factory reported zero address for %s", symbol)
	}
	e.Logger.Info("Deployed test token %s %s at %s", name, symbol, tok.Address().Hex())
	return tok, nil
}

// Distribute transfers amount of tok from the operator to every recipient
// concurrently. It fails if any transfer fails; the report names each outcome.
func (e *Env) Distribute(ctx context.Context, tok *token.ERC20, recipients []common.Address, amount *big.Int) (distribute.Report, error) {
	report := distribute.Distribute(ctx, tok.As(e.Operator), recipients, amount, distribute.Options{
		Concurrency: e.NetworkConfig.Distribution.Concurrency,
		Label:       fmt.Sprintf("Distributing %s", tok),
		Logger:      e.Logger,
		Progress:    e.Progress,
	})
	if err := report.Err(); err != nil {
		for _, o := range report.Succeeded() {
			e.Logger.Info("  sent %s to %s (tx %s)", o.Amount.String(), o.Recipient.Hex(), o.TxHash.Hex())
		}
		return report, err
	}

	if e.Reader != nil {
		balances, err := tok.BalancesOf(ctx, e.Reader, recipients...)
		if err != nil {
			return report, err
		}
		for i, b := range balances {
			if b.Cmp(amount) != 0 {
				return report, fmt.Errorf("recipient %s holds %s %s, expected %s", recipients[i].Hex(), b.String(), tok, amount.String())
			}
		}
	}

	e.Logger.Info("Distributed %s %s to %d accounts (%s total)", amount.String(), tok, len(report.Succeeded()), report.Total().String())
	return report, nil
}

// Verify registers contracts with the verification service.
func (e *Env) Verify(ctx context.Context, contracts ...verify.Contract) error {
	return e.Verifier.Verify(ctx, contracts...)
}
