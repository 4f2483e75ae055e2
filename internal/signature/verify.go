package signature

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/charmverse/token-gate/internal/domain"
)

// Verify checks that sig is a valid eth_signTypedData_v4 signature of the
// email attestation for (chainID, email), produced by address. Returns
// domain.ErrInvalidSignature when the recovered signer differs from address.
func Verify(chainID int64, email, address, sig string) error {
	recovered, err := Recover(TypedMessage(chainID, email), sig)
	if err != nil {
		return err
	}
	if !strings.EqualFold(recovered, address) {
		return domain.ErrInvalidSignature
	}
	return nil
}

// Recover returns the address that produced sig over the typed message
func Recover(typed apitypes.TypedData, sig string) (string, error) {
	sigBytes, err := hexutil.Decode(sig)
	if err != nil {
		return "", fmt.Errorf("malformed signature: %w", err)
	}
	if len(sigBytes) != crypto.SignatureLength {
		return "", fmt.Errorf("signature must be %d bytes, got %d", crypto.SignatureLength, len(sigBytes))
	}

	// Wallets return V as 27/28 per the legacy convention
	if sigBytes[crypto.RecoveryIDOffset] >= 27 {
		sigBytes[crypto.RecoveryIDOffset] -= 27
	}

	hash, _, err := apitypes.TypedDataAndHash(typed)
	if err != nil {
		return "", fmt.Errorf("failed to hash typed data: %w", err)
	}

	pubKey, err := crypto.SigToPub(hash, sigBytes)
	if err != nil {
		return "", fmt.Errorf("failed to recover signer: %w", err)
	}

	return crypto.PubkeyToAddress(*pubKey).Hex(), nil
}
