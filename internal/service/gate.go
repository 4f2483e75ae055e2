package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/charmverse/token-gate/internal/chain"
	"github.com/charmverse/token-gate/internal/domain"
	"github.com/charmverse/token-gate/internal/lockform"
	"github.com/charmverse/token-gate/internal/repository/redis"
)

// GateService handles gate and lock configuration
type GateService struct {
	gateRepo domain.GateRepository
	lockRepo domain.LockRepository
	chains   *chain.Clients
	registry *chain.Registry
	cache    *redis.ContractCache
}

// NewGateService creates a new gate service
func NewGateService(
	gateRepo domain.GateRepository,
	lockRepo domain.LockRepository,
	chains *chain.Clients,
	registry *chain.Registry,
	cache *redis.ContractCache,
) *GateService {
	return &GateService{
		gateRepo: gateRepo,
		lockRepo: lockRepo,
		chains:   chains,
		registry: registry,
		cache:    cache,
	}
}

// GetByDomain retrieves a gate and its locks for a Notion space domain. The
// view falls back to the workspace's notion.so URL when no default URL is
// configured.
func (s *GateService) GetByDomain(ctx context.Context, spaceDomain string) (*domain.GateWithLocks, error) {
	gate, err := s.gateRepo.GetByDomain(ctx, spaceDomain)
	if err != nil {
		return nil, fmt.Errorf("failed to get gate: %w", err)
	}
	if gate == nil {
		return nil, domain.ErrGateNotFound
	}

	locks, err := s.lockRepo.ListByGate(ctx, gate.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list locks: %w", err)
	}

	view := &domain.GateWithLocks{Gate: *gate, Locks: locks}
	if view.SpaceDefaultURL == "" {
		view.SpaceDefaultURL = "https://notion.so/" + gate.SpaceDomain
	}
	return view, nil
}

// GetByID retrieves a gate and its locks by id
func (s *GateService) GetByID(ctx context.Context, id uuid.UUID) (*domain.GateWithLocks, error) {
	gate, err := s.gateRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get gate: %w", err)
	}
	if gate == nil {
		return nil, domain.ErrGateNotFound
	}

	locks, err := s.lockRepo.ListByGate(ctx, gate.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list locks: %w", err)
	}

	return &domain.GateWithLocks{Gate: *gate, Locks: locks}, nil
}

// CreateGate creates a gate for a Notion workspace
func (s *GateService) CreateGate(ctx context.Context, input domain.GateCreate) (*domain.Gate, error) {
	gate := &domain.Gate{
		ID:           uuid.New(),
		SpaceID:      input.SpaceID,
		SpaceDomain:  input.SpaceDomain,
		SpaceName:    input.SpaceName,
		SpaceIcon:    input.SpaceIcon,
		SpaceIsAdmin: input.SpaceIsAdmin,
		CreatedAt:    time.Now(),
	}

	if err := s.gateRepo.Create(ctx, gate); err != nil {
		return nil, fmt.Errorf("failed to create gate: %w", err)
	}

	return gate, nil
}

// UpdateGate updates a gate's workspace binding
func (s *GateService) UpdateGate(ctx context.Context, id uuid.UUID, input domain.GateUpdate) (*domain.Gate, error) {
	if err := s.gateRepo.Update(ctx, id, &input); err != nil {
		return nil, fmt.Errorf("failed to update gate: %w", err)
	}

	gate, err := s.gateRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get gate: %w", err)
	}
	if gate == nil {
		return nil, domain.ErrGateNotFound
	}
	return gate, nil
}

// DeleteGate deletes a gate and all of its locks
func (s *GateService) DeleteGate(ctx context.Context, id uuid.UUID) error {
	return s.gateRepo.Delete(ctx, id)
}

// UpsertLock creates a lock when lockID is nil, otherwise updates by id.
// Settings are validated against the per-type criterion rules, and the
// supported-chain table, before touching the store.
func (s *GateService) UpsertLock(ctx context.Context, gateID uuid.UUID, lockID *uuid.UUID, settings domain.LockSettings) (*domain.Lock, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if settings.TokenChainID != 0 && !s.registry.Supported(settings.TokenChainID) {
		return nil, &domain.ValidationError{Field: "tokenChainId", Message: fmt.Sprintf("unsupported chain %d", settings.TokenChainID)}
	}

	// advisory metadata backfill so display fields stay current
	if settings.TokenAddress != "" && settings.TokenName == "" {
		if meta, err := s.ContractMetadata(ctx, settings.TokenChainID, settings.TokenAddress); err == nil {
			settings.TokenName = meta.Name
			settings.TokenSymbol = meta.Symbol
		}
	}

	if lockID != nil {
		if err := s.lockRepo.Update(ctx, *lockID, &settings); err != nil {
			return nil, fmt.Errorf("failed to update lock: %w", err)
		}
		lock, err := s.lockRepo.GetByID(ctx, *lockID)
		if err != nil {
			return nil, fmt.Errorf("failed to get lock: %w", err)
		}
		if lock == nil {
			return nil, domain.ErrLockNotFound
		}
		return lock, nil
	}

	lock := &domain.Lock{
		ID:               uuid.New(),
		GateID:           gateID,
		LockType:         settings.LockType,
		TokenChainID:     settings.TokenChainID,
		TokenAddress:     settings.TokenAddress,
		TokenName:        settings.TokenName,
		TokenSymbol:      settings.TokenSymbol,
		TokenMin:         settings.TokenMin,
		TokenBlacklist:   settings.TokenBlacklist,
		POAPEventID:      settings.POAPEventID,
		POAPEventName:    settings.POAPEventName,
		AddressWhitelist: settings.AddressWhitelist,
		SpaceUserRole:    settings.SpaceUserRole,
		SpaceBlockIDs:    settings.SpaceBlockIDs,
		SpaceBlockURLs:   settings.SpaceBlockURLs,
		SpaceDefaultURL:  settings.SpaceDefaultURL,
		CreatedAt:        time.Now(),
	}
	if err := s.lockRepo.Create(ctx, lock); err != nil {
		return nil, fmt.Errorf("failed to create lock: %w", err)
	}
	return lock, nil
}

// DeleteLock deletes a lock independently of its parent gate
func (s *GateService) DeleteLock(ctx context.Context, id uuid.UUID) error {
	return s.lockRepo.Delete(ctx, id)
}

// ContractMetadata resolves the display name and symbol of a token contract,
// serving from cache when possible.
func (s *GateService) ContractMetadata(ctx context.Context, chainID int64, address string) (lockform.TokenMetadata, error) {
	if !domain.IsValidAddress(address) {
		return lockform.TokenMetadata{}, &domain.ValidationError{Field: "tokenAddress", Message: "invalid contract address"}
	}

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, chainID, address); err == nil && cached != nil {
			return lockform.TokenMetadata{Name: cached.Name, Symbol: cached.Symbol}, nil
		}
	}

	client, err := s.chains.Get(chainID)
	if err != nil {
		return lockform.TokenMetadata{}, err
	}

	name, symbol, err := client.TokenMetadata(ctx, address)
	if err != nil {
		return lockform.TokenMetadata{}, fmt.Errorf("failed to resolve contract metadata: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, chainID, address, &redis.ContractMetadata{Name: name, Symbol: symbol}); err != nil {
			log.Warn().Err(err).Msg("failed to cache contract metadata")
		}
	}

	return lockform.TokenMetadata{Name: name, Symbol: symbol}, nil
}

// IsNotFound reports whether err is a missing gate or lock
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrGateNotFound) || errors.Is(err, domain.ErrLockNotFound)
}
