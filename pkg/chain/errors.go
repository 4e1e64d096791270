package chain

import "errors"

var (
	// ErrReverted is returned when a mined transaction has a failed status.
	ErrReverted = errors.New("transaction reverted")
	// ErrNoReceipt is returned when a transaction was submitted but no receipt is available.
	ErrNoReceipt = errors.New("no receipt for transaction")
)
