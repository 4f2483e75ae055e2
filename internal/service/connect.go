package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/charmverse/token-gate/internal/domain"
	"github.com/charmverse/token-gate/internal/eligibility"
	"github.com/charmverse/token-gate/internal/notion"
	"github.com/charmverse/token-gate/internal/signature"
)

// LinkRequest carries the data a visitor submits to finalize linking
type LinkRequest struct {
	Domain       string `json:"domain" validate:"required"`
	LockID       string `json:"lockId"`
	Address      string `json:"address" validate:"required"`
	ChainID      int64  `json:"chainId" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	NotionUserID string `json:"notionUserId" validate:"required"`
	Signature    string `json:"signature" validate:"required"`
}

// ConnectService verifies wallet eligibility and records wallet links
type ConnectService struct {
	gates    *GateService
	linkRepo domain.WalletLinkRepository
	checker  *eligibility.Checker
	notion   notion.MembershipService
}

// NewConnectService creates a new connect service
func NewConnectService(
	gates *GateService,
	linkRepo domain.WalletLinkRepository,
	checker *eligibility.Checker,
	notionSvc notion.MembershipService,
) *ConnectService {
	return &ConnectService{
		gates:    gates,
		linkRepo: linkRepo,
		checker:  checker,
		notion:   notionSvc,
	}
}

// ResolveEmail resolves a Notion account id from an email address
func (s *ConnectService) ResolveEmail(ctx context.Context, email string) (string, error) {
	return s.notion.UserByEmail(ctx, email)
}

// Status reports approval and connection state for a wallet against a gate.
// When lockID is set only that lock is checked; otherwise the gate's locks
// are evaluated with OR semantics.
func (s *ConnectService) Status(ctx context.Context, address string, chainID int64, spaceDomain, lockID string) (*domain.ConnectStatus, error) {
	gate, err := s.gates.GetByDomain(ctx, spaceDomain)
	if err != nil {
		return nil, err
	}

	locks := gate.Locks
	if lockID != "" {
		lock := findLock(gate.Locks, lockID)
		if lock == nil {
			return nil, domain.ErrLockNotFound
		}
		locks = []domain.Lock{*lock}
	}

	result := s.checker.EvaluateGate(ctx, address, chainID, locks)

	status := &domain.ConnectStatus{Approved: result.Eligible}
	if result.Eligible {
		status.LockID = result.LockID.String()
	} else {
		status.Error = firstReason(result.Results)
	}

	link, err := s.linkRepo.Get(ctx, gate.ID, address)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet link: %w", err)
	}
	status.Connected = link != nil

	return status, nil
}

// Link finalizes the wallet-to-account linkage:
//
//  1. the signature must verify against the email attestation for the
//     submitted chain and email;
//  2. eligibility for the claimed lock must re-pass at call time, because
//     balances can change between check and confirm;
//  3. the wallet link is upserted keyed by (gate, address), so resubmission
//     is idempotent;
//  4. the Notion user is added to the workspace with the satisfied lock's
//     role and pages. A grant failure is reported, but the link row is kept
//     so retry does not require re-signing.
func (s *ConnectService) Link(ctx context.Context, req LinkRequest) (*domain.WalletLink, error) {
	gate, err := s.gates.GetByDomain(ctx, req.Domain)
	if err != nil {
		return nil, err
	}

	if err := signature.Verify(req.ChainID, req.Email, req.Address, req.Signature); err != nil {
		if errors.Is(err, domain.ErrInvalidSignature) {
			return nil, domain.ErrInvalidSignature
		}
		return nil, fmt.Errorf("signature verification failed: %w", err)
	}

	notionUserID, err := s.notion.UserByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if notionUserID != req.NotionUserID {
		return nil, domain.ErrUnknownNotionUser
	}

	var satisfied *domain.Lock
	if req.LockID != "" {
		lock := findLock(gate.Locks, req.LockID)
		if lock == nil {
			return nil, domain.ErrLockNotFound
		}
		result := s.checker.Evaluate(ctx, req.Address, req.ChainID, lock)
		if !result.Eligible {
			return nil, eligibilityExpired(result)
		}
		satisfied = lock
	} else {
		result := s.checker.EvaluateGate(ctx, req.Address, req.ChainID, gate.Locks)
		if !result.Eligible {
			return nil, eligibilityExpired(domain.EligibilityResult{Reason: firstReason(result.Results)})
		}
		satisfied = findLock(gate.Locks, result.LockID.String())
	}

	link := &domain.WalletLink{
		GateID:       gate.ID,
		LockID:       satisfied.ID,
		Address:      domain.NormalizeAddress(req.Address),
		ChainID:      req.ChainID,
		NotionUserID: notionUserID,
		Email:        req.Email,
		Signature:    req.Signature,
		CreatedAt:    time.Now(),
	}
	if err := s.linkRepo.Upsert(ctx, link); err != nil {
		return nil, fmt.Errorf("failed to record wallet link: %w", err)
	}

	if err := s.notion.AddMember(ctx, notion.AddMemberRequest{
		SpaceID:  gate.SpaceID,
		UserID:   notionUserID,
		Role:     satisfied.SpaceUserRole,
		BlockIDs: satisfied.SpaceBlockIDs,
	}); err != nil {
		log.Error().Err(err).
			Str("space_id", gate.SpaceID).
			Str("address", domain.ShortenAddress(link.Address)).
			Msg("notion membership grant failed, link retained for retry")
		return link, domain.ErrMembershipGrant
	}

	return link, nil
}

// Unlink removes a wallet link and revokes the workspace membership
func (s *ConnectService) Unlink(ctx context.Context, spaceDomain, address string) error {
	gate, err := s.gates.GetByDomain(ctx, spaceDomain)
	if err != nil {
		return err
	}

	link, err := s.linkRepo.Get(ctx, gate.ID, address)
	if err != nil {
		return fmt.Errorf("failed to get wallet link: %w", err)
	}
	if link == nil {
		return nil
	}

	if err := s.notion.RemoveMember(ctx, gate.SpaceID, link.NotionUserID); err != nil {
		return fmt.Errorf("failed to revoke membership: %w", err)
	}

	return s.linkRepo.Delete(ctx, gate.ID, address)
}

func findLock(locks []domain.Lock, id string) *domain.Lock {
	lockID, err := uuid.Parse(id)
	if err != nil {
		return nil
	}
	for i := range locks {
		if locks[i].ID == lockID {
			return &locks[i]
		}
	}
	return nil
}

func firstReason(results []domain.EligibilityResult) string {
	for _, r := range results {
		if r.Reason != "" {
			return r.Reason
		}
	}
	return "wallet does not meet the access criteria"
}

func eligibilityExpired(result domain.EligibilityResult) error {
	if result.Reason != "" {
		return fmt.Errorf("%w: %s", domain.ErrEligibilityExpired, result.Reason)
	}
	return domain.ErrEligibilityExpired
}
