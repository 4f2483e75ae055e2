package signature

import (
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charmverse/token-gate/internal/domain"
)

func TestTypedMessage_Deterministic(t *testing.T) {
	a := TypedMessage(1, "visitor@example.com")
	b := TypedMessage(1, "visitor@example.com")

	hashA, _, err := apitypes.TypedDataAndHash(a)
	require.NoError(t, err)
	hashB, _, err := apitypes.TypedDataAndHash(b)
	require.NoError(t, err)

	assert.Equal(t, hashA, hashB)
}

func TestTypedMessage_ChainAndEmailChangeHash(t *testing.T) {
	base, _, err := apitypes.TypedDataAndHash(TypedMessage(1, "visitor@example.com"))
	require.NoError(t, err)

	otherChain, _, err := apitypes.TypedDataAndHash(TypedMessage(137, "visitor@example.com"))
	require.NoError(t, err)
	assert.NotEqual(t, base, otherChain)

	otherEmail, _, err := apitypes.TypedDataAndHash(TypedMessage(1, "other@example.com"))
	require.NoError(t, err)
	assert.NotEqual(t, base, otherEmail)
}

func TestTypedMessage_ChainID(t *testing.T) {
	assert.Equal(t, int64(137), ChainID(TypedMessage(137, "visitor@example.com")))
	assert.Equal(t, int64(0), ChainID(apitypes.TypedData{}))
}

func TestVerify(t *testing.T) {
	const email = "visitor@example.com"
	const chainID = int64(1)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	sign := func(chainID int64, email string) string {
		hash, _, err := apitypes.TypedDataAndHash(TypedMessage(chainID, email))
		require.NoError(t, err)
		raw, err := crypto.Sign(hash, key)
		require.NoError(t, err)
		// wallets return V as 27/28
		raw[crypto.RecoveryIDOffset] += 27
		return hexutil.Encode(raw)
	}

	t.Run("valid signature", func(t *testing.T) {
		assert.NoError(t, Verify(chainID, email, address, sign(chainID, email)))
	})

	t.Run("case-insensitive address match", func(t *testing.T) {
		assert.NoError(t, Verify(chainID, email, domain.NormalizeAddress(address), sign(chainID, email)))
	})

	t.Run("wrong address", func(t *testing.T) {
		err := Verify(chainID, email, "0x0000000000000000000000000000000000000001", sign(chainID, email))
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	})

	t.Run("signature over different email", func(t *testing.T) {
		err := Verify(chainID, email, address, sign(chainID, "other@example.com"))
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	})

	t.Run("signature over different chain", func(t *testing.T) {
		err := Verify(chainID, email, address, sign(137, email))
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	})

	t.Run("malformed signature", func(t *testing.T) {
		assert.Error(t, Verify(chainID, email, address, "not-hex"))
		assert.Error(t, Verify(chainID, email, address, "0x1234"))
	})
}
