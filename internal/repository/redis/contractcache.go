package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	contractCachePrefix = "contract:"
	contractCacheTTL    = 24 * time.Hour
)

// ContractMetadata is a cached token name/symbol pair
type ContractMetadata struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// ContractCache caches contract display metadata per (chain, address).
// Token names and symbols are effectively immutable, so a long TTL is safe.
type ContractCache struct {
	client *Client
}

// NewContractCache creates a new contract metadata cache
func NewContractCache(client *Client) *ContractCache {
	return &ContractCache{client: client}
}

func contractKey(chainID int64, address string) string {
	return fmt.Sprintf("%s%d:%s", contractCachePrefix, chainID, strings.ToLower(address))
}

// Get retrieves cached metadata for a contract
func (c *ContractCache) Get(ctx context.Context, chainID int64, address string) (*ContractMetadata, error) {
	data, err := c.client.rdb.Get(ctx, contractKey(chainID, address)).Bytes()
	if err != nil {
		return nil, nil // Cache miss
	}

	var meta ContractMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal contract metadata: %w", err)
	}

	return &meta, nil
}

// Set caches metadata for a contract
func (c *ContractCache) Set(ctx context.Context, chainID int64, address string, meta *ContractMetadata) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal contract metadata: %w", err)
	}

	return c.client.rdb.Set(ctx, contractKey(chainID, address), data, contractCacheTTL).Err()
}
