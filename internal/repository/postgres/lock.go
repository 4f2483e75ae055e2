package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/charmverse/token-gate/internal/domain"
)

// LockRepository handles lock data access
type LockRepository struct {
	db *DB
}

// NewLockRepository creates a new lock repository
func NewLockRepository(db *DB) *LockRepository {
	return &LockRepository{db: db}
}

const lockColumns = `
	id, gate_id, lock_type,
	token_chain_id, token_address, token_name, token_symbol, token_min, token_blacklist,
	poap_event_id, poap_event_name,
	address_whitelist,
	space_user_role, space_block_ids, space_block_urls, space_default_url,
	created_at
`

// Create creates a new lock
func (r *LockRepository) Create(ctx context.Context, lock *domain.Lock) error {
	query := `
		INSERT INTO gate_locks (` + lockColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		lock.ID,
		lock.GateID,
		lock.LockType,
		lock.TokenChainID,
		lock.TokenAddress,
		lock.TokenName,
		lock.TokenSymbol,
		lock.TokenMin,
		lock.TokenBlacklist,
		lock.POAPEventID,
		lock.POAPEventName,
		lock.AddressWhitelist,
		lock.SpaceUserRole,
		lock.SpaceBlockIDs,
		lock.SpaceBlockURLs,
		lock.SpaceDefaultURL,
		lock.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create lock: %w", err)
	}

	return nil
}

// GetByID retrieves a lock by ID
func (r *LockRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Lock, error) {
	query := `SELECT ` + lockColumns + ` FROM gate_locks WHERE id = $1`

	lock, err := scanLock(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get lock: %w", err)
	}
	return lock, nil
}

// ListByGate retrieves all locks attached to a gate
func (r *LockRepository) ListByGate(ctx context.Context, gateID uuid.UUID) ([]domain.Lock, error) {
	query := `SELECT ` + lockColumns + ` FROM gate_locks WHERE gate_id = $1 ORDER BY created_at`

	rows, err := r.db.Pool.Query(ctx, query, gateID)
	if err != nil {
		return nil, fmt.Errorf("failed to list locks: %w", err)
	}
	defer rows.Close()

	var locks []domain.Lock
	for rows.Next() {
		lock, err := scanLock(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lock: %w", err)
		}
		locks = append(locks, *lock)
	}

	return locks, nil
}

func scanLock(row pgx.Row) (*domain.Lock, error) {
	var lock domain.Lock
	err := row.Scan(
		&lock.ID,
		&lock.GateID,
		&lock.LockType,
		&lock.TokenChainID,
		&lock.TokenAddress,
		&lock.TokenName,
		&lock.TokenSymbol,
		&lock.TokenMin,
		&lock.TokenBlacklist,
		&lock.POAPEventID,
		&lock.POAPEventName,
		&lock.AddressWhitelist,
		&lock.SpaceUserRole,
		&lock.SpaceBlockIDs,
		&lock.SpaceBlockURLs,
		&lock.SpaceDefaultURL,
		&lock.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &lock, nil
}

// Update updates a lock's settings
func (r *LockRepository) Update(ctx context.Context, id uuid.UUID, settings *domain.LockSettings) error {
	query := `
		UPDATE gate_locks
		SET lock_type = $2,
		    token_chain_id = $3,
		    token_address = $4,
		    token_name = $5,
		    token_symbol = $6,
		    token_min = $7,
		    token_blacklist = $8,
		    poap_event_id = $9,
		    poap_event_name = $10,
		    address_whitelist = $11,
		    space_user_role = $12,
		    space_block_ids = $13,
		    space_block_urls = $14,
		    space_default_url = $15
		WHERE id = $1
	`

	_, err := r.db.Pool.Exec(ctx, query,
		id,
		settings.LockType,
		settings.TokenChainID,
		settings.TokenAddress,
		settings.TokenName,
		settings.TokenSymbol,
		settings.TokenMin,
		settings.TokenBlacklist,
		settings.POAPEventID,
		settings.POAPEventName,
		settings.AddressWhitelist,
		settings.SpaceUserRole,
		settings.SpaceBlockIDs,
		settings.SpaceBlockURLs,
		settings.SpaceDefaultURL,
	)
	if err != nil {
		return fmt.Errorf("failed to update lock: %w", err)
	}

	return nil
}

// Delete deletes a lock independently of its parent gate
func (r *LockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM gate_locks WHERE id = $1`

	_, err := r.db.Pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete lock: %w", err)
	}

	return nil
}
