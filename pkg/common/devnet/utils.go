package devnet

import (
	"context"
	"fmt"
)

// RPCMiner seals a block on demand on local development nodes.
type RPCMiner struct {
	client RPCCaller
}

func NewRPCMiner(client RPCCaller) *RPCMiner {
	return &RPCMiner{client: client}
}

func (m *RPCMiner) Mine(ctx context.Context) error {
	if err := m.client.CallContext(ctx, nil, MINE_METHOD); err != nil {
		return fmt.Errorf("failed to mine block: %w", err)
	}
	return nil
}
