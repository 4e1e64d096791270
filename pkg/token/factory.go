package token

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/lmittmann/w3"

	"github.com/nvitorovic/scaffold-eth-2/pkg/chain"
	"github.com/nvitorovic/scaffold-eth-2/pkg/receipts"
)

const TokenCreatedEvent = "TokenCreated"

var funcCreateToken = w3.MustNewFunc("createToken(string,string,uint256)", "address")

// Factory drives an ERC20TokenFactory deployment. The TokenCreated event layout
// comes from the factory's compiled ABI.
type Factory struct {
	address common.Address
	created abi.Event
}

func NewFactory(address common.Address, factoryABI abi.ABI) (*Factory, error) {
	created, ok := factoryABI.Events[TokenCreatedEvent]
	if !ok {
		return nil, fmt.Errorf("factory abi has no %s event", TokenCreatedEvent)
	}
	return &Factory{address: address, created: created}, nil
}

func (f *Factory) Address() common.Address { return f.address }

// CreateToken mints a new token with the full initial supply held by the signer and
// returns a handle to it. The token address is the first argument of the single
// TokenCreated event the factory emitted.
func (f *Factory) CreateToken(ctx context.Context, from Transactor, name, symbol string, initialSupply *big.Int) (*ERC20, error) {
	calldata, err := funcCreateToken.EncodeArgs(name, symbol, initialSupply)
	if err != nil {
		return nil, fmt.Errorf("encode createToken: %w", err)
	}

	receipt, err := from.Transact(ctx, fmt.Sprintf("Create token %s %s", name, symbol), f.address, calldata)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, fmt.Errorf("create token %s: %w", symbol, chain.ErrNoReceipt)
	}

	addr, err := receipts.CreatedAddress(receipt, f.address, f.created)
	if err != nil {
		return nil, fmt.Errorf("create token %s: %w", symbol, err)
	}
	return NewERC20(addr, symbol), nil
}
