package lockform

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charmverse/token-gate/internal/domain"
)

const testContract = "0x1111111111111111111111111111111111111111"

func submitToCriteria(t *testing.T, f *Form) {
	t.Helper()
	require.NoError(t, f.SubmitDomain(DomainInput{SpaceDomain: "cvt-space"}))
	require.NoError(t, f.SubmitAdminVerify(AdminVerifyInput{SpaceID: "space-1", SpaceName: "CVT", SpaceIsAdmin: true}))
	require.NoError(t, f.SubmitNotionPrefs(NotionPrefsInput{}))
}

func TestForm_StepOrder(t *testing.T) {
	f := New(nil)
	assert.Equal(t, StepDomain, f.Step())

	require.NoError(t, f.SubmitDomain(DomainInput{SpaceDomain: "cvt-space"}))
	assert.Equal(t, StepAdminVerify, f.Step())

	require.NoError(t, f.SubmitAdminVerify(AdminVerifyInput{SpaceID: "space-1"}))
	assert.Equal(t, StepNotionPrefs, f.Step())

	require.NoError(t, f.SubmitNotionPrefs(NotionPrefsInput{}))
	assert.Equal(t, StepTokenCriteria, f.Step())

	require.NoError(t, f.SubmitTokenCriteria(TokenCriteriaInput{
		LockType:     domain.LockTypeERC20,
		TokenChainID: 1,
		TokenAddress: testContract,
	}))
	assert.Equal(t, StepDone, f.Step())
}

func TestForm_OutOfOrderSubmit(t *testing.T) {
	f := New(nil)

	err := f.SubmitTokenCriteria(TokenCriteriaInput{LockType: domain.LockTypeERC20})
	assert.Error(t, err)
	assert.Equal(t, StepDomain, f.Step())
}

func TestForm_StepValidation(t *testing.T) {
	t.Run("empty domain", func(t *testing.T) {
		f := New(nil)
		err := f.SubmitDomain(DomainInput{})
		assert.Error(t, err)
		assert.Equal(t, StepDomain, f.Step())
		assert.Error(t, f.Err())
	})

	t.Run("unverified workspace", func(t *testing.T) {
		f := New(nil)
		require.NoError(t, f.SubmitDomain(DomainInput{SpaceDomain: "cvt-space"}))
		err := f.SubmitAdminVerify(AdminVerifyInput{})
		assert.Error(t, err)
		assert.Equal(t, StepAdminVerify, f.Step())
	})

	t.Run("bad contract address", func(t *testing.T) {
		f := New(nil)
		submitToCriteria(t, f)
		err := f.SubmitTokenCriteria(TokenCriteriaInput{
			LockType:     domain.LockTypeERC20,
			TokenChainID: 1,
			TokenAddress: "not-an-address",
		})
		assert.Error(t, err)
		assert.Equal(t, StepTokenCriteria, f.Step())
	})
}

func TestForm_Back(t *testing.T) {
	f := New(nil)
	require.NoError(t, f.SubmitDomain(DomainInput{SpaceDomain: "cvt-space"}))
	require.NoError(t, f.SubmitAdminVerify(AdminVerifyInput{SpaceID: "space-1"}))

	assert.True(t, f.Back())
	assert.Equal(t, StepAdminVerify, f.Step())

	// draft survives back-navigation
	assert.Equal(t, "cvt-space", f.Draft().Gate.SpaceDomain)

	assert.True(t, f.Back())
	assert.Equal(t, StepDomain, f.Step())
	assert.False(t, f.Back())
}

func TestForm_DomainChangeClearsSpaceID(t *testing.T) {
	f := New(nil)
	require.NoError(t, f.SubmitDomain(DomainInput{SpaceDomain: "cvt-space"}))
	require.NoError(t, f.SubmitAdminVerify(AdminVerifyInput{SpaceID: "space-1"}))

	require.True(t, f.Back())
	require.True(t, f.Back())

	require.NoError(t, f.SubmitDomain(DomainInput{SpaceDomain: "other-space"}))
	assert.Empty(t, f.Draft().Gate.SpaceID)
}

func TestForm_EditStartsAtCriteria(t *testing.T) {
	gateID := uuid.New()
	lockID := uuid.New()

	f := Edit(nil, gateID, lockID, domain.LockSettings{
		LockType:     domain.LockTypeERC20,
		TokenChainID: 1,
		TokenAddress: testContract,
		TokenMin:     5,
	})

	assert.Equal(t, StepTokenCriteria, f.Step())
	assert.Equal(t, lockID, f.Draft().LockID)

	require.NoError(t, f.SubmitTokenCriteria(TokenCriteriaInput{
		LockType:     domain.LockTypeERC20,
		TokenChainID: 1,
		TokenAddress: testContract,
		TokenMin:     10,
	}))
	assert.Equal(t, StepDone, f.Step())
	assert.Equal(t, int64(10), f.Draft().Lock.TokenMin)
}

func TestForm_AppliesResolvedMetadata(t *testing.T) {
	lookup := NewMetadataLookup(func(ctx context.Context, chainID int64, address string) (TokenMetadata, error) {
		return TokenMetadata{Name: "Test Token", Symbol: "TST"}, nil
	}, time.Millisecond)

	f := New(lookup)
	submitToCriteria(t, f)

	f.OnContractChange(1, testContract)
	select {
	case <-lookup.Resolved:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for metadata")
	}

	require.NoError(t, f.SubmitTokenCriteria(TokenCriteriaInput{
		LockType:     domain.LockTypeERC20,
		TokenChainID: 1,
		TokenAddress: testContract,
	}))

	draft := f.Draft()
	assert.Equal(t, "Test Token", draft.Lock.TokenName)
	assert.Equal(t, "TST", draft.Lock.TokenSymbol)
}

func TestMetadataLookup_Debounce(t *testing.T) {
	var calls atomic.Int64
	lookup := NewMetadataLookup(func(ctx context.Context, chainID int64, address string) (TokenMetadata, error) {
		calls.Add(1)
		return TokenMetadata{Symbol: "TST"}, nil
	}, 50*time.Millisecond)

	// rapid keystrokes within the window collapse into one lookup
	lookup.Schedule(1, "0x1111111111111111111111111111111111111111")
	lookup.Schedule(1, "0x2222222222222222222222222222222222222222")
	lookup.Schedule(1, "0x3333333333333333333333333333333333333333")

	select {
	case <-lookup.Resolved:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for metadata")
	}
	assert.Equal(t, int64(1), calls.Load())

	// only the last input's result is current
	_, ok := lookup.Current(1, "0x1111111111111111111111111111111111111111")
	assert.False(t, ok)
	meta, ok := lookup.Current(1, "0x3333333333333333333333333333333333333333")
	assert.True(t, ok)
	assert.Equal(t, "TST", meta.Symbol)
}

func TestMetadataLookup_StaleResponseDiscarded(t *testing.T) {
	release := make(chan struct{})
	lookup := NewMetadataLookup(func(ctx context.Context, chainID int64, address string) (TokenMetadata, error) {
		if address == "0x1111111111111111111111111111111111111111" {
			<-release
			return TokenMetadata{Symbol: "OLD"}, nil
		}
		return TokenMetadata{Symbol: "NEW"}, nil
	}, time.Millisecond)

	lookup.Schedule(1, "0x1111111111111111111111111111111111111111")
	// let the first lookup start before superseding it
	time.Sleep(20 * time.Millisecond)
	lookup.Schedule(1, "0x2222222222222222222222222222222222222222")

	select {
	case meta := <-lookup.Resolved:
		assert.Equal(t, "NEW", meta.Symbol)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for metadata")
	}
	close(release)

	// the stale response never lands
	time.Sleep(20 * time.Millisecond)
	_, ok := lookup.Current(1, "0x1111111111111111111111111111111111111111")
	assert.False(t, ok)
	meta, ok := lookup.Current(1, "0x2222222222222222222222222222222222222222")
	assert.True(t, ok)
	assert.Equal(t, "NEW", meta.Symbol)
}

func TestMetadataLookup_ResolveFailureIsAdvisory(t *testing.T) {
	lookup := NewMetadataLookup(func(ctx context.Context, chainID int64, address string) (TokenMetadata, error) {
		return TokenMetadata{}, errors.New("rpc down")
	}, time.Millisecond)

	lookup.Schedule(1, testContract)
	time.Sleep(50 * time.Millisecond)

	_, ok := lookup.Current(1, testContract)
	assert.False(t, ok)
}
