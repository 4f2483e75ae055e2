package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog/log"
)

// ErrNotEnumerable indicates the contract does not implement the ERC-721
// enumeration extension, so individual token ids cannot be listed.
var ErrNotEnumerable = errors.New("contract does not support token enumeration")

const erc20ABI = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"name","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"}
]`

const erc721ABI = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"index","type":"uint256"}],"name":"tokenOfOwnerByIndex","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

// RPCClient implements Client over a JSON-RPC endpoint
type RPCClient struct {
	chainID int64
	eth     *ethclient.Client
	timeout time.Duration

	erc20  abi.ABI
	erc721 abi.ABI
}

// Dial connects an RPC client for one chain. Each read is bounded by timeout.
func Dial(ctx context.Context, chainID int64, rpcURL string, timeout time.Duration) (*RPCClient, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial chain %d: %w", chainID, err)
	}
	return NewRPCClient(chainID, eth, timeout)
}

// NewRPCClient wraps an existing ethclient
func NewRPCClient(chainID int64, eth *ethclient.Client, timeout time.Duration) (*RPCClient, error) {
	erc20, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC-20 ABI: %w", err)
	}
	erc721, err := abi.JSON(strings.NewReader(erc721ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC-721 ABI: %w", err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RPCClient{
		chainID: chainID,
		eth:     eth,
		timeout: timeout,
		erc20:   erc20,
		erc721:  erc721,
	}, nil
}

// ChainID returns the chain this client reads from
func (c *RPCClient) ChainID() int64 {
	return c.chainID
}

func (c *RPCClient) call(ctx context.Context, contractABI abi.ABI, contract, method string, args ...any) ([]any, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", method, err)
	}

	to := common.HexToAddress(contract)
	out, err := c.eth.CallContract(callCtx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("contract call %s failed on chain %d: %w", method, c.chainID, err)
	}

	results, err := contractABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", method, err)
	}
	return results, nil
}

// ERC20Balance returns the token balance of owner at the contract
func (c *RPCClient) ERC20Balance(ctx context.Context, contract, owner string) (*big.Int, error) {
	results, err := c.call(ctx, c.erc20, contract, "balanceOf", common.HexToAddress(owner))
	if err != nil {
		return nil, err
	}
	balance, ok := results[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf result type %T", results[0])
	}
	return balance, nil
}

// ERC721Count returns the number of tokens held by owner at the contract
func (c *RPCClient) ERC721Count(ctx context.Context, contract, owner string) (*big.Int, error) {
	results, err := c.call(ctx, c.erc721, contract, "balanceOf", common.HexToAddress(owner))
	if err != nil {
		return nil, err
	}
	count, ok := results[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf result type %T", results[0])
	}
	return count, nil
}

// ERC721Holdings enumerates the token ids held by owner via
// tokenOfOwnerByIndex. Contracts without the enumeration extension revert on
// the first index read, which is reported as ErrNotEnumerable.
func (c *RPCClient) ERC721Holdings(ctx context.Context, contract, owner string) ([]*big.Int, error) {
	count, err := c.ERC721Count(ctx, contract, owner)
	if err != nil {
		return nil, err
	}

	n := count.Int64()
	ids := make([]*big.Int, 0, n)
	ownerAddr := common.HexToAddress(owner)
	for i := int64(0); i < n; i++ {
		results, err := c.call(ctx, c.erc721, contract, "tokenOfOwnerByIndex", ownerAddr, big.NewInt(i))
		if err != nil {
			if i == 0 {
				log.Debug().
					Int64("chain_id", c.chainID).
					Str("contract", contract).
					Msg("token enumeration unsupported")
				return nil, ErrNotEnumerable
			}
			return nil, err
		}
		id, ok := results[0].(*big.Int)
		if !ok {
			return nil, fmt.Errorf("unexpected tokenOfOwnerByIndex result type %T", results[0])
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// TokenMetadata returns the name and symbol of the contract. Either value may
// be empty when the contract does not expose it.
func (c *RPCClient) TokenMetadata(ctx context.Context, contract string) (string, string, error) {
	var name, symbol string

	results, err := c.call(ctx, c.erc20, contract, "name")
	if err != nil {
		return "", "", err
	}
	if s, ok := results[0].(string); ok {
		name = s
	}

	results, err = c.call(ctx, c.erc20, contract, "symbol")
	if err != nil {
		return "", "", err
	}
	if s, ok := results[0].(string); ok {
		symbol = s
	}

	return name, symbol, nil
}
