// Package signature builds and verifies the EIP-712 attestation that binds a
// visitor's email address to their wallet.
package signature

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

const (
	// DomainName is the EIP-712 domain separator name
	DomainName = "CharmVerse"

	// DomainVersion is the EIP-712 domain separator version
	DomainVersion = "1"

	// MessageContents is the fixed, human-readable attestation text
	MessageContents = "Confirm your Notion Account"

	// PrimaryType names the typed structure being signed
	PrimaryType = "NotionAccount"
)

// TypedMessage constructs the typed-data document binding an email address to
// a domain-scoped, chain-scoped attestation. Pure and deterministic: identical
// inputs produce a structurally identical document, which signature
// verification depends on.
func TypedMessage(chainID int64, email string) apitypes.TypedData {
	return apitypes.TypedData{
		Domain: apitypes.TypedDataDomain{
			Name:    DomainName,
			Version: DomainVersion,
			ChainId: math.NewHexOrDecimal256(chainID),
		},
		Message: apitypes.TypedDataMessage{
			"contents": MessageContents,
			"email":    email,
		},
		PrimaryType: PrimaryType,
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
			},
			PrimaryType: []apitypes.Type{
				{Name: "email", Type: "string"},
				{Name: "contents", Type: "string"},
			},
		},
	}
}

// ChainID extracts the chain id from a typed message domain
func ChainID(typed apitypes.TypedData) int64 {
	if typed.Domain.ChainId == nil {
		return 0
	}
	return (*big.Int)(typed.Domain.ChainId).Int64()
}
