package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const addr = "0x1111111111111111111111111111111111111111"

func TestIsValidAddress(t *testing.T) {
	assert.True(t, IsValidAddress(addr))
	assert.True(t, IsValidAddress("0xAbCdEF0000000000000000000000000000001234"))
	assert.False(t, IsValidAddress(""))
	assert.False(t, IsValidAddress("1111111111111111111111111111111111111111"))
	assert.False(t, IsValidAddress("0x111"))
	assert.False(t, IsValidAddress("0xZZ11111111111111111111111111111111111111"))
}

func TestShortenAddress(t *testing.T) {
	assert.Equal(t, "0x1111...1111", ShortenAddress(addr))
	assert.Equal(t, "0x123", ShortenAddress("0x123"))
}

func TestLockSettings_Validate(t *testing.T) {
	t.Run("erc20 defaults min to one", func(t *testing.T) {
		s := LockSettings{LockType: LockTypeERC20, TokenChainID: 1, TokenAddress: addr}
		require.NoError(t, s.Validate())
		assert.Equal(t, int64(1), s.TokenMin)
	})

	t.Run("erc20 requires address and chain", func(t *testing.T) {
		s := LockSettings{LockType: LockTypeERC20, TokenChainID: 1}
		assert.Error(t, s.Validate())

		s = LockSettings{LockType: LockTypeERC20, TokenAddress: addr}
		assert.Error(t, s.Validate())
	})

	t.Run("erc20 rejects blacklist", func(t *testing.T) {
		s := LockSettings{
			LockType:       LockTypeERC20,
			TokenChainID:   1,
			TokenAddress:   addr,
			TokenBlacklist: []string{"1"},
		}
		assert.Error(t, s.Validate())
	})

	t.Run("erc721 accepts blacklist", func(t *testing.T) {
		s := LockSettings{
			LockType:       LockTypeERC721,
			TokenChainID:   1,
			TokenAddress:   addr,
			TokenBlacklist: []string{"1", "7"},
		}
		assert.NoError(t, s.Validate())
	})

	t.Run("token lock clears other families", func(t *testing.T) {
		s := LockSettings{
			LockType:         LockTypeERC20,
			TokenChainID:     1,
			TokenAddress:     addr,
			POAPEventID:      42,
			AddressWhitelist: []string{addr},
		}
		require.NoError(t, s.Validate())
		assert.Zero(t, s.POAPEventID)
		assert.Nil(t, s.AddressWhitelist)
	})

	t.Run("poap requires event", func(t *testing.T) {
		s := LockSettings{LockType: LockTypePOAP}
		assert.Error(t, s.Validate())

		s = LockSettings{LockType: LockTypePOAP, POAPEventID: 42, TokenAddress: addr}
		require.NoError(t, s.Validate())
		assert.Empty(t, s.TokenAddress)
	})

	t.Run("whitelist requires valid entries", func(t *testing.T) {
		s := LockSettings{LockType: LockTypeWhitelist}
		assert.Error(t, s.Validate())

		s = LockSettings{LockType: LockTypeWhitelist, AddressWhitelist: []string{"nope"}}
		assert.Error(t, s.Validate())

		s = LockSettings{LockType: LockTypeWhitelist, AddressWhitelist: []string{addr}}
		assert.NoError(t, s.Validate())
	})

	t.Run("unknown type", func(t *testing.T) {
		s := LockSettings{LockType: "ERC1155"}
		assert.Error(t, s.Validate())
	})
}
