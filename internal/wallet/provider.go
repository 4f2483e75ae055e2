// Package wallet abstracts over wallet connection mechanisms and drives the
// signature flow that links a wallet to a Notion account.
package wallet

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/charmverse/token-gate/internal/domain"
)

// userRejectedCode is the EIP-1193 error code wallets return when the user
// declines a request.
const userRejectedCode = 4001

// Provider is the uniform capability set over wallet connection variants.
// Both the browser-injected and the relay-based variant funnel into the same
// typed-data signing call.
type Provider interface {
	// Name returns the provider identifier
	Name() string

	// RequestAccounts prompts for and returns the active account list
	RequestAccounts(ctx context.Context) ([]string, error)

	// ChainID returns the chain the wallet is currently pinned to
	ChainID(ctx context.Context) (int64, error)

	// SignTypedData requests an eth_signTypedData_v4 signature from the
	// given account over the typed-data document
	SignTypedData(ctx context.Context, from string, typed apitypes.TypedData) (string, error)

	// AccountsChanged emits the new account list whenever the wallet
	// switches accounts
	AccountsChanged() <-chan []string

	// ChainChanged emits the new chain id whenever the wallet switches
	// chains
	ChainChanged() <-chan int64

	// Disconnect tears down the connection and its event subscriptions
	Disconnect() error
}

// normalizeError maps provider transport errors onto the wallet error
// taxonomy so they can be surfaced as user-visible messages.
func normalizeError(err error) error {
	if err == nil {
		return nil
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == userRejectedCode {
		return domain.ErrUserRejected
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return errors.Join(domain.ErrConnection, err)
}
