// Package receipts locates and decodes the events a contract emitted in a
// transaction receipt.
package receipts

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	ErrEventNotFound  = errors.New("event not found in receipt")
	ErrEventAmbiguous = errors.New("event emitted more than once in receipt")
)

type Status int

const (
	NotFound Status = iota
	Found
	Ambiguous
)

func (s Status) String() string {
	switch s {
	case Found:
		return "found"
	case Ambiguous:
		return "ambiguous"
	default:
		return "not found"
	}
}

// Match is the outcome of looking up one event in a receipt. Log is set only
// when Status is Found.
type Match struct {
	Status Status
	Log    *types.Log
	Count  int
}

// FindEvent scans the logs emitted by emitter for topic0. Logs from any other
// contract are ignored even when their signature matches.
func FindEvent(receipt *types.Receipt, emitter common.Address, topic0 common.Hash) Match {
	if receipt == nil {
		return Match{Status: NotFound}
	}

	var match Match
	for _, log := range receipt.Logs {
		if log.Address != emitter || len(log.Topics) == 0 || log.Topics[0] != topic0 {
			continue
		}
		match.Count++
		if match.Log == nil {
			match.Log = log
		}
	}

	switch match.Count {
	case 0:
		match.Status = NotFound
	case 1:
		match.Status = Found
	default:
		match.Status = Ambiguous
		match.Log = nil
	}
	return match
}

// Err converts a non-Found match to its sentinel error.
func (m Match) Err(eventName string) error {
	switch m.Status {
	case Found:
		return nil
	case Ambiguous:
		return fmt.Errorf("%s (%d logs): %w", eventName, m.Count, ErrEventAmbiguous)
	default:
		return fmt.Errorf("%s: %w", eventName, ErrEventNotFound)
	}
}

// FirstAddressArg decodes the first declared argument of event from log as an address.
func FirstAddressArg(event abi.Event, log *types.Log) (common.Address, error) {
	if len(event.Inputs) == 0 {
		return common.Address{}, fmt.Errorf("event %s has no arguments", event.Name)
	}
	first := event.Inputs[0]
	if first.Type.T != abi.AddressTy {
		return common.Address{}, fmt.Errorf("first argument of %s is %s, not address", event.Name, first.Type.String())
	}

	if first.Indexed {
		if len(log.Topics) < 2 {
			return common.Address{}, fmt.Errorf("log for %s is missing indexed topic", event.Name)
		}
		return common.BytesToAddress(log.Topics[1].Bytes()), nil
	}

	values, err := event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to unpack %s data: %w", event.Name, err)
	}
	if len(values) == 0 {
		return common.Address{}, fmt.Errorf("log for %s has no data", event.Name)
	}
	addr, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected %T decoding %s", values[0], event.Name)
	}
	return addr, nil
}

// CreatedAddress returns the address carried as the first argument of the single
// event emitted by emitter in receipt.
func CreatedAddress(receipt *types.Receipt, emitter common.Address, event abi.Event) (common.Address, error) {
	match := FindEvent(receipt, emitter, event.ID)
	if err := match.Err(event.Name); err != nil {
		return common.Address{}, err
	}
	return FirstAddressArg(event, match.Log)
}
