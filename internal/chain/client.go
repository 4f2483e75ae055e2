package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"
)

// Client defines the read operations the eligibility checker and metadata
// lookup need from one chain.
type Client interface {
	// ChainID returns the chain this client reads from
	ChainID() int64

	// ERC20Balance returns the token balance of owner at the contract
	ERC20Balance(ctx context.Context, contract, owner string) (*big.Int, error)

	// ERC721Holdings returns the token ids held by owner at the contract.
	// Contracts without the enumeration extension return ErrNotEnumerable;
	// callers fall back to ERC721Count.
	ERC721Holdings(ctx context.Context, contract, owner string) ([]*big.Int, error)

	// ERC721Count returns the number of tokens held by owner at the contract
	ERC721Count(ctx context.Context, contract, owner string) (*big.Int, error)

	// TokenMetadata returns the name and symbol of the contract
	TokenMetadata(ctx context.Context, contract string) (name, symbol string, err error)
}

// Clients manages per-chain client instances
type Clients struct {
	clients map[int64]Client
	mu      sync.RWMutex
}

// NewClients creates an empty client registry
func NewClients() *Clients {
	return &Clients{clients: make(map[int64]Client)}
}

// Register registers a chain client
func (c *Clients) Register(client Client) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clients[client.ChainID()] = client
}

// Get returns the client for a chain
func (c *Clients) Get(chainID int64) (Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	client, ok := c.clients[chainID]
	if !ok {
		return nil, fmt.Errorf("no RPC client for chain %d", chainID)
	}
	return client, nil
}
