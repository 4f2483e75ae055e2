package service

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/charmverse/token-gate/internal/chain"
	"github.com/charmverse/token-gate/internal/domain"
	"github.com/charmverse/token-gate/internal/eligibility"
	"github.com/charmverse/token-gate/internal/notion"
	"github.com/charmverse/token-gate/internal/signature"
)

type poapStub struct {
	holds bool
	err   error
}

func (p *poapStub) HoldsEvent(ctx context.Context, address string, eventID int64) (bool, error) {
	return p.holds, p.err
}

// signTypedMessage produces a wallet-style signature over the email attestation
func signTypedMessage(t *testing.T, chainID int64, email string) (address, sig string) {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	return crypto.PubkeyToAddress(key.PublicKey).Hex(), signTypedWithKey(t, key, chainID, email)
}

// signTypedWithKey signs the email attestation with an existing wallet key
func signTypedWithKey(t *testing.T, key *ecdsa.PrivateKey, chainID int64, email string) string {
	t.Helper()

	typed := signature.TypedMessage(chainID, email)
	hash, _, err := apitypes.TypedDataAndHash(typed)
	require.NoError(t, err)

	raw, err := crypto.Sign(hash, key)
	require.NoError(t, err)
	raw[crypto.RecoveryIDOffset] += 27

	return hexutil.Encode(raw)
}

// memLinkRepo is an in-memory wallet link store with the same upsert
// semantics as the postgres repository: one row per (gate, lowercase address)
type memLinkRepo struct {
	mu    sync.Mutex
	links map[string]domain.WalletLink
}

func newMemLinkRepo() *memLinkRepo {
	return &memLinkRepo{links: make(map[string]domain.WalletLink)}
}

func (r *memLinkRepo) key(gateID uuid.UUID, address string) string {
	return gateID.String() + "/" + domain.NormalizeAddress(address)
}

func (r *memLinkRepo) Upsert(ctx context.Context, link *domain.WalletLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *link
	stored.Address = domain.NormalizeAddress(link.Address)
	r.links[r.key(link.GateID, link.Address)] = stored
	return nil
}

func (r *memLinkRepo) Get(ctx context.Context, gateID uuid.UUID, address string) (*domain.WalletLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	link, ok := r.links[r.key(gateID, address)]
	if !ok {
		return nil, nil
	}
	return &link, nil
}

func (r *memLinkRepo) Delete(ctx context.Context, gateID uuid.UUID, address string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.links, r.key(gateID, address))
	return nil
}

func (r *memLinkRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.links)
}

func newConnectFixture(t *testing.T, gate *domain.Gate, locks []domain.Lock) (*ConnectService, *MockGateRepository, *MockLockRepository, *MockWalletLinkRepository, *MockMembershipService) {
	t.Helper()

	gateRepo := new(MockGateRepository)
	lockRepo := new(MockLockRepository)
	linkRepo := new(MockWalletLinkRepository)
	membership := new(MockMembershipService)

	gateRepo.On("GetByDomain", mock.Anything, gate.SpaceDomain).Return(gate, nil)
	lockRepo.On("ListByGate", mock.Anything, gate.ID).Return(locks, nil)

	clients := chain.NewClients()
	checker := eligibility.NewChecker(clients, &poapStub{})

	gates := NewGateService(gateRepo, lockRepo, clients, nil, nil)
	svc := NewConnectService(gates, linkRepo, checker, membership)

	return svc, gateRepo, lockRepo, linkRepo, membership
}

func TestConnectService_Link(t *testing.T) {
	ctx := context.Background()
	const chainID = int64(1)
	const email = "visitor@example.com"

	address, sig := signTypedMessage(t, chainID, email)

	gate := &domain.Gate{
		ID:          uuid.New(),
		SpaceID:     "space-1",
		SpaceDomain: "cvt-space",
	}
	role := domain.RoleReader
	lock := domain.Lock{
		ID:               uuid.New(),
		GateID:           gate.ID,
		LockType:         domain.LockTypeWhitelist,
		AddressWhitelist: []string{address},
		SpaceUserRole:    &role,
	}

	req := LinkRequest{
		Domain:       gate.SpaceDomain,
		LockID:       lock.ID.String(),
		Address:      address,
		ChainID:      chainID,
		Email:        email,
		NotionUserID: "notion-user-1",
		Signature:    sig,
	}

	t.Run("success", func(t *testing.T) {
		svc, _, _, linkRepo, membership := newConnectFixture(t, gate, []domain.Lock{lock})

		membership.On("UserByEmail", mock.Anything, email).Return("notion-user-1", nil)
		linkRepo.On("Upsert", mock.Anything, mock.AnythingOfType("*domain.WalletLink")).Return(nil)
		membership.On("AddMember", mock.Anything, mock.MatchedBy(func(r notion.AddMemberRequest) bool {
			return r.SpaceID == "space-1" && r.UserID == "notion-user-1"
		})).Return(nil)

		link, err := svc.Link(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, domain.NormalizeAddress(address), link.Address)
		assert.Equal(t, lock.ID, link.LockID)

		linkRepo.AssertExpectations(t)
		membership.AssertExpectations(t)
	})

	t.Run("invalid signature", func(t *testing.T) {
		svc, _, _, _, _ := newConnectFixture(t, gate, []domain.Lock{lock})

		// a signature produced by a different wallet
		_, otherSig := signTypedMessage(t, chainID, email)
		bad := req
		bad.Signature = otherSig

		_, err := svc.Link(ctx, bad)
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	})

	t.Run("eligibility expired", func(t *testing.T) {
		notListed := lock
		notListed.AddressWhitelist = []string{"0x1111111111111111111111111111111111111111"}

		svc, _, _, _, membership := newConnectFixture(t, gate, []domain.Lock{notListed})
		membership.On("UserByEmail", mock.Anything, email).Return("notion-user-1", nil)

		_, err := svc.Link(ctx, req)
		assert.ErrorIs(t, err, domain.ErrEligibilityExpired)
	})

	t.Run("grant failure keeps link", func(t *testing.T) {
		svc, _, _, linkRepo, membership := newConnectFixture(t, gate, []domain.Lock{lock})

		membership.On("UserByEmail", mock.Anything, email).Return("notion-user-1", nil)
		linkRepo.On("Upsert", mock.Anything, mock.AnythingOfType("*domain.WalletLink")).Return(nil)
		membership.On("AddMember", mock.Anything, mock.Anything).Return(errors.New("notion down"))

		link, err := svc.Link(ctx, req)
		assert.ErrorIs(t, err, domain.ErrMembershipGrant)
		require.NotNil(t, link)
		assert.Equal(t, domain.NormalizeAddress(address), link.Address)

		linkRepo.AssertExpectations(t)
	})

	t.Run("notion user mismatch", func(t *testing.T) {
		svc, _, _, _, membership := newConnectFixture(t, gate, []domain.Lock{lock})
		membership.On("UserByEmail", mock.Anything, email).Return("someone-else", nil)

		_, err := svc.Link(ctx, req)
		assert.ErrorIs(t, err, domain.ErrUnknownNotionUser)
	})

	t.Run("unknown lock", func(t *testing.T) {
		svc, _, _, _, membership := newConnectFixture(t, gate, []domain.Lock{lock})
		membership.On("UserByEmail", mock.Anything, email).Return("notion-user-1", nil)

		bad := req
		bad.LockID = uuid.NewString()

		_, err := svc.Link(ctx, bad)
		assert.ErrorIs(t, err, domain.ErrLockNotFound)
	})
}

func TestConnectService_LinkIdempotent(t *testing.T) {
	ctx := context.Background()
	const chainID = int64(1)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	gate := &domain.Gate{
		ID:          uuid.New(),
		SpaceID:     "space-1",
		SpaceDomain: "cvt-space",
	}
	lock := domain.Lock{
		ID:               uuid.New(),
		GateID:           gate.ID,
		LockType:         domain.LockTypeWhitelist,
		AddressWhitelist: []string{address},
	}

	gateRepo := new(MockGateRepository)
	lockRepo := new(MockLockRepository)
	linkRepo := newMemLinkRepo()
	membership := new(MockMembershipService)

	gateRepo.On("GetByDomain", mock.Anything, gate.SpaceDomain).Return(gate, nil)
	lockRepo.On("ListByGate", mock.Anything, gate.ID).Return([]domain.Lock{lock}, nil)
	membership.On("UserByEmail", mock.Anything, mock.Anything).Return("notion-user-1", nil)
	membership.On("AddMember", mock.Anything, mock.Anything).Return(nil)

	clients := chain.NewClients()
	gates := NewGateService(gateRepo, lockRepo, clients, nil, nil)
	svc := NewConnectService(gates, linkRepo, eligibility.NewChecker(clients, &poapStub{}), membership)

	firstSig := signTypedWithKey(t, key, chainID, "first@example.com")
	_, err = svc.Link(ctx, LinkRequest{
		Domain:       gate.SpaceDomain,
		LockID:       lock.ID.String(),
		Address:      address,
		ChainID:      chainID,
		Email:        "first@example.com",
		NotionUserID: "notion-user-1",
		Signature:    firstSig,
	})
	require.NoError(t, err)
	require.Equal(t, 1, linkRepo.count())

	// resubmission for the same wallet, with a fresh attestation and a
	// different address casing, replaces the row instead of adding one
	secondSig := signTypedWithKey(t, key, chainID, "second@example.com")
	link, err := svc.Link(ctx, LinkRequest{
		Domain:       gate.SpaceDomain,
		LockID:       lock.ID.String(),
		Address:      strings.ToLower(address),
		ChainID:      chainID,
		Email:        "second@example.com",
		NotionUserID: "notion-user-1",
		Signature:    secondSig,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, linkRepo.count())
	stored, err := linkRepo.Get(ctx, gate.ID, address)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, secondSig, stored.Signature)
	assert.Equal(t, "second@example.com", stored.Email)
	assert.Equal(t, domain.NormalizeAddress(address), link.Address)
}

func TestConnectService_Status(t *testing.T) {
	ctx := context.Background()
	address := "0xAbCd000000000000000000000000000000001234"

	gate := &domain.Gate{ID: uuid.New(), SpaceDomain: "cvt-space"}
	lock := domain.Lock{
		ID:               uuid.New(),
		GateID:           gate.ID,
		LockType:         domain.LockTypeWhitelist,
		AddressWhitelist: []string{domain.NormalizeAddress(address)},
	}

	t.Run("approved and connected", func(t *testing.T) {
		svc, _, _, linkRepo, _ := newConnectFixture(t, gate, []domain.Lock{lock})
		linkRepo.On("Get", mock.Anything, gate.ID, address).Return(&domain.WalletLink{GateID: gate.ID}, nil)

		status, err := svc.Status(ctx, address, 1, gate.SpaceDomain, "")
		require.NoError(t, err)
		assert.True(t, status.Approved)
		assert.True(t, status.Connected)
		assert.Equal(t, lock.ID.String(), status.LockID)
	})

	t.Run("not approved", func(t *testing.T) {
		svc, _, _, linkRepo, _ := newConnectFixture(t, gate, []domain.Lock{lock})
		linkRepo.On("Get", mock.Anything, gate.ID, mock.Anything).Return(nil, nil)

		status, err := svc.Status(ctx, "0x9999999999999999999999999999999999999999", 1, gate.SpaceDomain, "")
		require.NoError(t, err)
		assert.False(t, status.Approved)
		assert.False(t, status.Connected)
		assert.NotEmpty(t, status.Error)
	})
}
