package service

import (
	"context"
	"math/big"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/charmverse/token-gate/internal/domain"
	"github.com/charmverse/token-gate/internal/notion"
)

// MockGateRepository mocks the GateRepository interface
type MockGateRepository struct {
	mock.Mock
}

func (m *MockGateRepository) Create(ctx context.Context, gate *domain.Gate) error {
	args := m.Called(ctx, gate)
	return args.Error(0)
}

func (m *MockGateRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Gate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Gate), args.Error(1)
}

func (m *MockGateRepository) GetByDomain(ctx context.Context, spaceDomain string) (*domain.Gate, error) {
	args := m.Called(ctx, spaceDomain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Gate), args.Error(1)
}

func (m *MockGateRepository) Update(ctx context.Context, id uuid.UUID, update *domain.GateUpdate) error {
	args := m.Called(ctx, id, update)
	return args.Error(0)
}

func (m *MockGateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockLockRepository mocks the LockRepository interface
type MockLockRepository struct {
	mock.Mock
}

func (m *MockLockRepository) Create(ctx context.Context, lock *domain.Lock) error {
	args := m.Called(ctx, lock)
	return args.Error(0)
}

func (m *MockLockRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Lock, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Lock), args.Error(1)
}

func (m *MockLockRepository) ListByGate(ctx context.Context, gateID uuid.UUID) ([]domain.Lock, error) {
	args := m.Called(ctx, gateID)
	return args.Get(0).([]domain.Lock), args.Error(1)
}

func (m *MockLockRepository) Update(ctx context.Context, id uuid.UUID, settings *domain.LockSettings) error {
	args := m.Called(ctx, id, settings)
	return args.Error(0)
}

func (m *MockLockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockWalletLinkRepository mocks the WalletLinkRepository interface
type MockWalletLinkRepository struct {
	mock.Mock
}

func (m *MockWalletLinkRepository) Upsert(ctx context.Context, link *domain.WalletLink) error {
	args := m.Called(ctx, link)
	return args.Error(0)
}

func (m *MockWalletLinkRepository) Get(ctx context.Context, gateID uuid.UUID, address string) (*domain.WalletLink, error) {
	args := m.Called(ctx, gateID, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WalletLink), args.Error(1)
}

func (m *MockWalletLinkRepository) Delete(ctx context.Context, gateID uuid.UUID, address string) error {
	args := m.Called(ctx, gateID, address)
	return args.Error(0)
}

// MockMembershipService mocks the notion.MembershipService interface
type MockMembershipService struct {
	mock.Mock
}

func (m *MockMembershipService) UserByEmail(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func (m *MockMembershipService) AddMember(ctx context.Context, req notion.AddMemberRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockMembershipService) RemoveMember(ctx context.Context, spaceID, userID string) error {
	args := m.Called(ctx, spaceID, userID)
	return args.Error(0)
}

// stubChainClient is a canned-response chain client for tests
type stubChainClient struct {
	chainID  int64
	balances map[string]*big.Int
	name     string
	symbol   string
	err      error
}

func (s *stubChainClient) ChainID() int64 { return s.chainID }

func (s *stubChainClient) ERC20Balance(ctx context.Context, contract, owner string) (*big.Int, error) {
	if s.err != nil {
		return nil, s.err
	}
	if b, ok := s.balances[domain.NormalizeAddress(owner)]; ok {
		return b, nil
	}
	return big.NewInt(0), nil
}

func (s *stubChainClient) ERC721Holdings(ctx context.Context, contract, owner string) ([]*big.Int, error) {
	if s.err != nil {
		return nil, s.err
	}
	b, _ := s.ERC20Balance(ctx, contract, owner)
	ids := make([]*big.Int, b.Int64())
	for i := range ids {
		ids[i] = big.NewInt(int64(i))
	}
	return ids, nil
}

func (s *stubChainClient) ERC721Count(ctx context.Context, contract, owner string) (*big.Int, error) {
	return s.ERC20Balance(ctx, contract, owner)
}

func (s *stubChainClient) TokenMetadata(ctx context.Context, contract string) (string, string, error) {
	if s.err != nil {
		return "", "", s.err
	}
	return s.name, s.symbol, nil
}
