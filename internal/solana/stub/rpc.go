package stub

import (
	"context"
	"errors"
	"sync"

	"solana-token-audit/internal/solana"
)

// ErrNotFound is returned by GetAsset when no asset is stored for the id.
var ErrNotFound = errors.New("not found")

// RPCClient implements solana.RPCClient for testing.
type RPCClient struct {
	mu sync.Mutex

	Assets       map[string]*solana.Asset
	Holders      map[string][]solana.TokenAccountBalance
	Transactions map[string]*solana.Transaction

	// Err, when set, is returned from every call.
	Err error

	calls map[string]int
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Assets:       make(map[string]*solana.Asset),
		Holders:      make(map[string][]solana.TokenAccountBalance),
		Transactions: make(map[string]*solana.Transaction),
		calls:        make(map[string]int),
	}
}

// GetAsset returns the stored asset or ErrNotFound.
func (c *RPCClient) GetAsset(_ context.Context, id string) (*solana.Asset, error) {
	c.record("getAsset")
	if c.Err != nil {
		return nil, c.Err
	}
	asset, ok := c.Assets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return asset, nil
}

// GetTokenLargestAccounts returns the stored holders. Unknown mints return nil.
func (c *RPCClient) GetTokenLargestAccounts(_ context.Context, mint string) ([]solana.TokenAccountBalance, error) {
	c.record("getTokenLargestAccounts")
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Holders[mint], nil
}

// GetTransaction returns the stored transaction, or nil when unknown.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	c.record("getTransaction")
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Transactions[signature], nil
}

// Calls returns how many times method was invoked.
func (c *RPCClient) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

func (c *RPCClient) record(method string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[method]++
}

var _ solana.RPCClient = (*RPCClient)(nil)
