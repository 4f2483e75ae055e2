package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/charmverse/token-gate/internal/domain"
)

// WalletLinkRepository handles wallet link data access
type WalletLinkRepository struct {
	db *DB
}

// NewWalletLinkRepository creates a new wallet link repository
func NewWalletLinkRepository(db *DB) *WalletLinkRepository {
	return &WalletLinkRepository{db: db}
}

// Upsert records a wallet link, superseding any prior link for the same
// (gate, address) pair. The unique constraint serializes concurrent
// submissions for the same wallet.
func (r *WalletLinkRepository) Upsert(ctx context.Context, link *domain.WalletLink) error {
	query := `
		INSERT INTO wallet_links (gate_id, lock_id, address, chain_id, notion_user_id, email, signature, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (gate_id, address) DO UPDATE SET
			lock_id = EXCLUDED.lock_id,
			chain_id = EXCLUDED.chain_id,
			notion_user_id = EXCLUDED.notion_user_id,
			email = EXCLUDED.email,
			signature = EXCLUDED.signature
	`

	_, err := r.db.Pool.Exec(ctx, query,
		link.GateID,
		link.LockID,
		domain.NormalizeAddress(link.Address),
		link.ChainID,
		link.NotionUserID,
		link.Email,
		link.Signature,
		link.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert wallet link: %w", err)
	}

	return nil
}

// Get retrieves the link for a wallet under a gate
func (r *WalletLinkRepository) Get(ctx context.Context, gateID uuid.UUID, address string) (*domain.WalletLink, error) {
	query := `
		SELECT gate_id, lock_id, address, chain_id, notion_user_id, email, signature, created_at
		FROM wallet_links
		WHERE gate_id = $1 AND address = $2
	`

	var link domain.WalletLink
	err := r.db.Pool.QueryRow(ctx, query, gateID, domain.NormalizeAddress(address)).Scan(
		&link.GateID,
		&link.LockID,
		&link.Address,
		&link.ChainID,
		&link.NotionUserID,
		&link.Email,
		&link.Signature,
		&link.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get wallet link: %w", err)
	}

	return &link, nil
}

// Delete removes the link for a wallet under a gate
func (r *WalletLinkRepository) Delete(ctx context.Context, gateID uuid.UUID, address string) error {
	query := `DELETE FROM wallet_links WHERE gate_id = $1 AND address = $2`

	_, err := r.db.Pool.Exec(ctx, query, gateID, domain.NormalizeAddress(address))
	if err != nil {
		return fmt.Errorf("failed to delete wallet link: %w", err)
	}

	return nil
}
