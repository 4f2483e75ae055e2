package domain

import "errors"

// Gate and lock errors
var (
	ErrGateNotFound = errors.New("gate not found")
	ErrLockNotFound = errors.New("lock not found")
)

// Linking errors
var (
	// ErrInvalidSignature indicates the signature does not recover to the
	// claimed wallet address for the typed message.
	ErrInvalidSignature = errors.New("signature does not match wallet address")

	// ErrEligibilityExpired indicates the wallet no longer satisfies the
	// claimed lock at confirm time.
	ErrEligibilityExpired = errors.New("wallet no longer meets the access criteria")

	// ErrMembershipGrant indicates the Notion-side membership grant failed.
	// The wallet link is still persisted so a retry does not require re-signing.
	ErrMembershipGrant = errors.New("failed to add user to the Notion workspace")

	// ErrUnknownNotionUser indicates the email does not resolve to a Notion account.
	ErrUnknownNotionUser = errors.New("no Notion account found for email")
)

// Wallet provider errors
var (
	ErrNoProvider   = errors.New("no wallet provider available")
	ErrUserRejected = errors.New("signature request rejected")
	ErrConnection   = errors.New("wallet connection failed")
)

// ValidationError represents an input validation failure caught before any
// network call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
