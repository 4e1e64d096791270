// Package distribute fans token transfers out to many recipients and reports
// the outcome of each one.
package distribute

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/sync/errgroup"

	"github.com/nvitorovic/scaffold-eth-2/pkg/chain"
	"github.com/nvitorovic/scaffold-eth-2/pkg/common/iface"
)

// Transferer moves amount of a token from a fixed signer to one recipient.
type Transferer interface {
	Transfer(ctx context.Context, to common.Address, amount *big.Int) (*types.Receipt, error)
}

type Outcome struct {
	Recipient common.Address
	Amount    *big.Int
	TxHash    common.Hash
	Err       error
}

func (o Outcome) OK() bool { return o.Err == nil }

// Report lists one outcome per recipient, in recipient order.
type Report struct {
	Outcomes []Outcome
}

func (r Report) Succeeded() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.OK() {
			out = append(out, o)
		}
	}
	return out
}

func (r Report) Failed() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}

// Total is the sum of the amounts that were actually transferred.
func (r Report) Total() *big.Int {
	total := new(big.Int)
	for _, o := range r.Succeeded() {
		total.Add(total, o.Amount)
	}
	return total
}

// Err joins the failures, naming each failed recipient. It is nil when every transfer succeeded.
func (r Report) Err() error {
	var errs []error
	for _, o := range r.Failed() {
		errs = append(errs, fmt.Errorf("transfer to %s: %w", o.Recipient.Hex(), o.Err))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d transfers failed: %w", len(errs), len(r.Outcomes), errors.Join(errs...))
}

type Options struct {
	// Concurrency bounds the in-flight transfers; <= 0 means one per recipient
	Concurrency int
	Label       string
	Logger      iface.Logger
	Progress    iface.ProgressTracker
}

// Distribute sends amount to every recipient concurrently. A failed transfer
// does not cancel the others; every outcome is recorded in the report.
func Distribute(ctx context.Context, t Transferer, recipients []common.Address, amount *big.Int, opts Options) Report {
	report := Report{Outcomes: make([]Outcome, len(recipients))}
	if len(recipients) == 0 {
		return report
	}

	label := opts.Label
	if label == "" {
		label = "distribute"
	}

	var g errgroup.Group
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}

	var done atomic.Int64
	for i, to := range recipients {
		g.Go(func() error {
			outcome := Outcome{Recipient: to, Amount: new(big.Int).Set(amount)}
			receipt, err := t.Transfer(ctx, to, amount)
			if receipt != nil {
				outcome.TxHash = receipt.TxHash
			}
			outcome.Err = err
			report.Outcomes[i] = outcome

			if opts.Logger != nil {
				if err != nil {
					opts.Logger.Warn("Transfer of %s to %s failed: %v", amount.String(), to.Hex(), err)
				} else {
					opts.Logger.Debug("Transferred %s to %s (tx %s)", amount.String(), to.Hex(), outcome.TxHash.Hex())
				}
			}
			if opts.Progress != nil {
				n := done.Add(1)
				opts.Progress.Set(label, int(n*100/int64(len(recipients))), label)
			}
			// errors are kept in the report so siblings keep running
			return nil
		})
	}
	_ = g.Wait()

	return report
}

// RandomRecipients generates n fresh addresses whose keys are discarded.
func RandomRecipients(n int) ([]common.Address, error) {
	out := make([]common.Address, n)
	for i := range out {
		key, err := chain.NewEphemeralKey()
		if err != nil {
			return nil, err
		}
		out[i] = crypto.PubkeyToAddress(key.PublicKey)
	}
	return out, nil
}
