// Package token holds the minimal bindings used to bootstrap the token factory
// and SimpleAMM contracts.
package token

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/lmittmann/w3"
	"github.com/lmittmann/w3/module/eth"
	"github.com/lmittmann/w3/w3types"

	"github.com/nvitorovic/scaffold-eth-2/pkg/receipts"
)

var (
	funcTransfer  = w3.MustNewFunc("transfer(address,uint256)", "bool")
	funcApprove   = w3.MustNewFunc("approve(address,uint256)", "bool")
	funcBalanceOf = w3.MustNewFunc("balanceOf(address)", "uint256")

	eventTransfer = w3.MustNewEvent("Transfer(address indexed,address indexed,uint256)")
	eventApproval = w3.MustNewEvent("Approval(address indexed,address indexed,uint256)")
)

// Transactor signs and submits calldata for one account.
type Transactor interface {
	Address() common.Address
	Transact(ctx context.Context, txDescription string, to common.Address, calldata []byte) (*types.Receipt, error)
}

// Reader batches read-only calls; *w3.Client satisfies it.
type Reader interface {
	CallCtx(ctx context.Context, calls ...w3types.RPCCaller) error
}

type ERC20 struct {
	address common.Address
	label   string
}

func NewERC20(address common.Address, label string) *ERC20 {
	return &ERC20{address: address, label: label}
}

func (t *ERC20) Address() common.Address { return t.address }

func (t *ERC20) String() string {
	if t.label == "" {
		return t.address.Hex()
	}
	return fmt.Sprintf("%s (%s)", t.label, t.address.Hex())
}

// Transfer moves amount from the signer to to and checks the token emitted a
// matching Transfer event.
func (t *ERC20) Transfer(ctx context.Context, from Transactor, to common.Address, amount *big.Int) (*types.Receipt, error) {
	calldata, err := funcTransfer.EncodeArgs(to, amount)
	if err != nil {
		return nil, fmt.Errorf("encode transfer: %w", err)
	}

	desc := fmt.Sprintf("Transfer %s %s to %s", amount.String(), t, to.Hex())
	receipt, err := from.Transact(ctx, desc, t.address, calldata)
	if err != nil {
		return receipt, err
	}

	match := receipts.FindEvent(receipt, t.address, eventTransfer.Topic0)
	if err := match.Err("Transfer"); err != nil {
		return receipt, fmt.Errorf("%s: %w", desc, err)
	}
	var (
		src, dst common.Address
		value    big.Int
	)
	if err := eventTransfer.DecodeArgs(match.Log, &src, &dst, &value); err != nil {
		return receipt, fmt.Errorf("decode Transfer event: %w", err)
	}
	if src != from.Address() || dst != to || value.Cmp(amount) != 0 {
		return receipt, fmt.Errorf("%s: Transfer event mismatch (from %s to %s value %s)", desc, src.Hex(), dst.Hex(), value.String())
	}
	return receipt, nil
}

// Approve lets spender move up to amount of the signer's tokens.
func (t *ERC20) Approve(ctx context.Context, from Transactor, spender common.Address, amount *big.Int) (*types.Receipt, error) {
	calldata, err := funcApprove.EncodeArgs(spender, amount)
	if err != nil {
		return nil, fmt.Errorf("encode approve: %w", err)
	}

	desc := fmt.Sprintf("Approve %s to spend %s %s", spender.Hex(), amount.String(), t)
	receipt, err := from.Transact(ctx, desc, t.address, calldata)
	if err != nil {
		return receipt, err
	}
	if err := receipts.FindEvent(receipt, t.address, eventApproval.Topic0).Err("Approval"); err != nil {
		return receipt, fmt.Errorf("%s: %w", desc, err)
	}
	return receipt, nil
}

// BalancesOf reads the token balance of every owner in one batch request.
func (t *ERC20) BalancesOf(ctx context.Context, reader Reader, owners ...common.Address) ([]*big.Int, error) {
	balances := make([]*big.Int, len(owners))
	calls := make([]w3types.RPCCaller, len(owners))
	for i, owner := range owners {
		balances[i] = new(big.Int)
		calls[i] = eth.CallFunc(t.address, funcBalanceOf, owner).Returns(balances[i])
	}
	if err := reader.CallCtx(ctx, calls...); err != nil {
		return nil, fmt.Errorf("failed to read %s balances: %w", t, err)
	}
	return balances, nil
}

// SignedERC20 is a token handle bound to the account that signs its transfers.
type SignedERC20 struct {
	*ERC20
	from Transactor
}

// As binds the token to a signer.
func (t *ERC20) As(from Transactor) *SignedERC20 {
	return &SignedERC20{ERC20: t, from: from}
}

func (s *SignedERC20) Transfer(ctx context.Context, to common.Address, amount *big.Int) (*types.Receipt, error) {
	return s.ERC20.Transfer(ctx, s.from, to, amount)
}
