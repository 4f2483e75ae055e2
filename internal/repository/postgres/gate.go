package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/charmverse/token-gate/internal/domain"
)

// GateRepository handles gate data access
type GateRepository struct {
	db *DB
}

// NewGateRepository creates a new gate repository
func NewGateRepository(db *DB) *GateRepository {
	return &GateRepository{db: db}
}

// Create creates a new gate
func (r *GateRepository) Create(ctx context.Context, gate *domain.Gate) error {
	query := `
		INSERT INTO gates (id, space_id, space_domain, space_name, space_icon, space_is_admin, space_default_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		gate.ID,
		gate.SpaceID,
		gate.SpaceDomain,
		gate.SpaceName,
		gate.SpaceIcon,
		gate.SpaceIsAdmin,
		gate.SpaceDefaultURL,
		gate.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create gate: %w", err)
	}

	return nil
}

// GetByID retrieves a gate by ID
func (r *GateRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Gate, error) {
	query := `
		SELECT id, space_id, space_domain, space_name, space_icon, space_is_admin, space_default_url, created_at
		FROM gates
		WHERE id = $1
	`
	return r.scanOne(r.db.Pool.QueryRow(ctx, query, id))
}

// GetByDomain retrieves a gate by its Notion space domain
func (r *GateRepository) GetByDomain(ctx context.Context, spaceDomain string) (*domain.Gate, error) {
	query := `
		SELECT id, space_id, space_domain, space_name, space_icon, space_is_admin, space_default_url, created_at
		FROM gates
		WHERE space_domain = $1
	`
	return r.scanOne(r.db.Pool.QueryRow(ctx, query, spaceDomain))
}

func (r *GateRepository) scanOne(row pgx.Row) (*domain.Gate, error) {
	var gate domain.Gate
	err := row.Scan(
		&gate.ID,
		&gate.SpaceID,
		&gate.SpaceDomain,
		&gate.SpaceName,
		&gate.SpaceIcon,
		&gate.SpaceIsAdmin,
		&gate.SpaceDefaultURL,
		&gate.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get gate: %w", err)
	}
	return &gate, nil
}

// Update updates a gate. Changing the space domain clears the cached space
// id so it must be re-verified.
func (r *GateRepository) Update(ctx context.Context, id uuid.UUID, update *domain.GateUpdate) error {
	query := `
		UPDATE gates
		SET space_domain = COALESCE($2, space_domain),
		    space_id = CASE WHEN $2 IS NOT NULL AND $2 <> space_domain THEN '' ELSE space_id END,
		    space_name = COALESCE($3, space_name),
		    space_icon = COALESCE($4, space_icon),
		    space_is_admin = COALESCE($5, space_is_admin)
		WHERE id = $1
	`

	_, err := r.db.Pool.Exec(ctx, query, id, update.SpaceDomain, update.SpaceName, update.SpaceIcon, update.SpaceIsAdmin)
	if err != nil {
		return fmt.Errorf("failed to update gate: %w", err)
	}

	return nil
}

// Delete deletes a gate and, via cascade, its locks and wallet links
func (r *GateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM gates WHERE id = $1`

	_, err := r.db.Pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete gate: %w", err)
	}

	return nil
}
