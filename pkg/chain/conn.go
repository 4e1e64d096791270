package chain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/lmittmann/w3"
)

// Conn bundles the clients sharing one JSON-RPC connection: the raw rpc client
// for node cheat-codes, ethclient for bind, and w3 for typed reads.
type Conn struct {
	RPC *rpc.Client
	Eth *ethclient.Client
	W3  *w3.Client
}

// Dial connects to url and verifies the node answers eth_chainId.
func Dial(ctx context.Context, url string) (*Conn, error) {
	rpcClient, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	conn := NewConn(rpcClient)

	if _, err := conn.Eth.ChainID(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to get chain ID from %s: %w", url, err)
	}
	return conn, nil
}

// NewConn wraps an already established rpc client.
func NewConn(rpcClient *rpc.Client) *Conn {
	return &Conn{
		RPC: rpcClient,
		Eth: ethclient.NewClient(rpcClient),
		W3:  w3.NewClient(rpcClient),
	}
}

func (c *Conn) Close() {
	c.RPC.Close()
}
