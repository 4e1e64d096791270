package token

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/lmittmann/w3"
)

var funcAddLiquidity = w3.MustNewFunc("addLiquidity(uint256,uint256)", "")

// AMM is a deployed SimpleAMM pool.
type AMM struct {
	address common.Address
}

func NewAMM(address common.Address) *AMM {
	return &AMM{address: address}
}

func (a *AMM) Address() common.Address { return a.address }

// AddLiquidity deposits amountA of token A and amountB of token B from the signer,
// who must have approved the pool for both amounts first.
func (a *AMM) AddLiquidity(ctx context.Context, from Transactor, amountA, amountB *big.Int) (*types.Receipt, error) {
	calldata, err := funcAddLiquidity.EncodeArgs(amountA, amountB)
	if err != nil {
		return nil, fmt.Errorf("encode addLiquidity: %w", err)
	}
	return from.Transact(ctx, fmt.Sprintf("Add liquidity %s/%s", amountA.String(), amountB.String()), a.address, calldata)
}
