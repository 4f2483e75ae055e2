package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// WalletLink binds a verified wallet address to a Notion account under a gate.
// At most one active link exists per (gate, address) pair; re-linking with a
// new signature supersedes the prior link.
type WalletLink struct {
	GateID       uuid.UUID `json:"gateId"`
	LockID       uuid.UUID `json:"lockId"`
	Address      string    `json:"address"`
	ChainID      int64     `json:"chainId"`
	NotionUserID string    `json:"notionUserId"`
	Email        string    `json:"email"`
	Signature    string    `json:"signature"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ConnectStatus reports the approval/connection state for a wallet against a gate
type ConnectStatus struct {
	Approved  bool   `json:"approved"`
	Connected bool   `json:"connected"`
	LockID    string `json:"lockId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// WalletLinkRepository defines the interface for wallet link storage.
// Upsert is keyed by (gate_id, address) so concurrent submissions for the
// same wallet are serialized by the store's uniqueness constraint.
type WalletLinkRepository interface {
	Upsert(ctx context.Context, link *WalletLink) error
	Get(ctx context.Context, gateID uuid.UUID, address string) (*WalletLink, error)
	Delete(ctx context.Context, gateID uuid.UUID, address string) error
}

// EligibilityResult is the outcome of evaluating a wallet against a lock.
// Transport failures are reported as ineligible with Retryable set so the
// caller can offer a retry instead of a hard deny.
type EligibilityResult struct {
	Eligible  bool   `json:"eligible"`
	Reason    string `json:"reason,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}
