package domain

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LockType represents supported access-criterion types
type LockType string

const (
	LockTypeERC20     LockType = "ERC20"
	LockTypeERC721    LockType = "ERC721"
	LockTypePOAP      LockType = "POAP"
	LockTypeWhitelist LockType = "whitelist"
)

// SpaceUserRole represents the Notion role granted to members satisfying a lock
type SpaceUserRole string

const (
	RoleEditor      SpaceUserRole = "editor"
	RoleReadWrite   SpaceUserRole = "read_and_write"
	RoleCommentOnly SpaceUserRole = "comment_only"
	RoleReader      SpaceUserRole = "reader"
)

// LockTypeInfo describes a lock type for display
type LockTypeInfo struct {
	ID    LockType `json:"id"`
	Name  string   `json:"name"`
	Label string   `json:"label"`
}

// LockTypes lists the configurable lock types with their display labels
var LockTypes = []LockTypeInfo{
	{ID: LockTypeERC721, Name: "ERC-721", Label: "Hold an NFT"},
	{ID: LockTypeERC20, Name: "ERC-20", Label: "Hold a Token"},
	{ID: LockTypePOAP, Name: "POAP", Label: "Hold a POAP"},
}

// Gate represents one Notion workspace's token-gating configuration
type Gate struct {
	ID              uuid.UUID `json:"id"`
	SpaceID         string    `json:"spaceId"`
	SpaceDomain     string    `json:"spaceDomain"`
	SpaceName       string    `json:"spaceName"`
	SpaceIcon       string    `json:"spaceIcon,omitempty"`
	SpaceIsAdmin    bool      `json:"spaceIsAdmin"`
	SpaceDefaultURL string    `json:"spaceDefaultUrl,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// GateWithLocks bundles a gate with its access criteria
type GateWithLocks struct {
	Gate
	Locks []Lock `json:"locks"`
}

// GateCreate represents gate creation data
type GateCreate struct {
	SpaceID      string `json:"spaceId" validate:"required"`
	SpaceDomain  string `json:"spaceDomain" validate:"required,max=255"`
	SpaceName    string `json:"spaceName" validate:"required,max=255"`
	SpaceIcon    string `json:"spaceIcon,omitempty"`
	SpaceIsAdmin bool   `json:"spaceIsAdmin"`
}

// GateUpdate represents gate update data. Changing the space domain
// invalidates the cached space ID until the domain is re-verified.
type GateUpdate struct {
	SpaceDomain  *string `json:"spaceDomain,omitempty" validate:"omitempty,max=255"`
	SpaceName    *string `json:"spaceName,omitempty" validate:"omitempty,max=255"`
	SpaceIcon    *string `json:"spaceIcon,omitempty"`
	SpaceIsAdmin *bool   `json:"spaceIsAdmin,omitempty"`
}

// Lock represents one alternative access criterion attached to a gate
type Lock struct {
	ID     uuid.UUID `json:"id"`
	GateID uuid.UUID `json:"gateId"`

	LockType LockType `json:"lockType"`

	// token criteria (ERC20/ERC721)
	TokenChainID   int64    `json:"tokenChainId,omitempty"`
	TokenAddress   string   `json:"tokenAddress,omitempty"`
	TokenName      string   `json:"tokenName,omitempty"`
	TokenSymbol    string   `json:"tokenSymbol,omitempty"`
	TokenMin       int64    `json:"tokenMin,omitempty"`
	TokenBlacklist []string `json:"tokenBlacklist,omitempty"`

	// POAP criteria
	POAPEventID   int64  `json:"POAPEventId,omitempty"`
	POAPEventName string `json:"POAPEventName,omitempty"`

	// whitelist criteria
	AddressWhitelist []string `json:"addressWhitelist,omitempty"`

	// Notion access shaping
	SpaceUserRole   *SpaceUserRole `json:"spaceUserRole,omitempty"`
	SpaceBlockIDs   []string       `json:"spaceBlockIds,omitempty"`
	SpaceBlockURLs  []string       `json:"spaceBlockUrls,omitempty"`
	SpaceDefaultURL string         `json:"spaceDefaultUrl,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// LockSettings represents lock create/update data
type LockSettings struct {
	LockType LockType `json:"lockType" validate:"required,oneof=ERC20 ERC721 POAP whitelist"`

	TokenChainID   int64    `json:"tokenChainId,omitempty"`
	TokenAddress   string   `json:"tokenAddress,omitempty"`
	TokenName      string   `json:"tokenName,omitempty"`
	TokenSymbol    string   `json:"tokenSymbol,omitempty"`
	TokenMin       int64    `json:"tokenMin,omitempty" validate:"omitempty,min=1"`
	TokenBlacklist []string `json:"tokenBlacklist,omitempty"`

	POAPEventID   int64  `json:"POAPEventId,omitempty"`
	POAPEventName string `json:"POAPEventName,omitempty"`

	AddressWhitelist []string `json:"addressWhitelist,omitempty"`

	SpaceUserRole   *SpaceUserRole `json:"spaceUserRole,omitempty" validate:"omitempty,oneof=editor read_and_write comment_only reader"`
	SpaceBlockIDs   []string       `json:"spaceBlockIds,omitempty"`
	SpaceBlockURLs  []string       `json:"spaceBlockUrls,omitempty"`
	SpaceDefaultURL string         `json:"spaceDefaultUrl,omitempty"`
}

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// IsValidAddress reports whether s is a syntactically valid hex wallet address
func IsValidAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// NormalizeAddress lowercases a hex address for storage and comparison
func NormalizeAddress(s string) string {
	return strings.ToLower(s)
}

// ShortenAddress produces the 0x1234...abcd display form of an address
func ShortenAddress(address string) string {
	if len(address) < 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}

// Validate enforces the per-type criterion rules: exactly one criterion
// family is populated, and the required fields for that family are set.
// TokenMin applies to both ERC20 and ERC721 locks and defaults to 1.
func (s *LockSettings) Validate() error {
	switch s.LockType {
	case LockTypeERC20, LockTypeERC721:
		if s.TokenAddress == "" {
			return &ValidationError{Field: "tokenAddress", Message: "token address is required"}
		}
		if !IsValidAddress(s.TokenAddress) {
			return &ValidationError{Field: "tokenAddress", Message: "invalid contract address"}
		}
		if s.TokenChainID == 0 {
			return &ValidationError{Field: "tokenChainId", Message: "token chain is required"}
		}
		if s.TokenMin == 0 {
			s.TokenMin = 1
		}
		if s.TokenMin < 1 {
			return &ValidationError{Field: "tokenMin", Message: "minimum must be at least 1"}
		}
		if s.LockType == LockTypeERC20 && len(s.TokenBlacklist) > 0 {
			return &ValidationError{Field: "tokenBlacklist", Message: "blacklist only applies to ERC-721 locks"}
		}
		s.POAPEventID = 0
		s.POAPEventName = ""
		s.AddressWhitelist = nil
	case LockTypePOAP:
		if s.POAPEventID == 0 {
			return &ValidationError{Field: "POAPEventId", Message: "POAP event is required"}
		}
		s.clearTokenFields()
		s.AddressWhitelist = nil
	case LockTypeWhitelist:
		if len(s.AddressWhitelist) == 0 {
			return &ValidationError{Field: "addressWhitelist", Message: "whitelist must not be empty"}
		}
		for _, addr := range s.AddressWhitelist {
			if !IsValidAddress(addr) {
				return &ValidationError{Field: "addressWhitelist", Message: "invalid address: " + addr}
			}
		}
		s.clearTokenFields()
		s.POAPEventID = 0
		s.POAPEventName = ""
	default:
		return &ValidationError{Field: "lockType", Message: "lock type is required"}
	}
	return nil
}

func (s *LockSettings) clearTokenFields() {
	s.TokenChainID = 0
	s.TokenAddress = ""
	s.TokenName = ""
	s.TokenSymbol = ""
	s.TokenMin = 0
	s.TokenBlacklist = nil
}

// GateRepository defines the interface for gate storage
type GateRepository interface {
	Create(ctx context.Context, gate *Gate) error
	GetByID(ctx context.Context, id uuid.UUID) (*Gate, error)
	GetByDomain(ctx context.Context, domain string) (*Gate, error)
	Update(ctx context.Context, id uuid.UUID, update *GateUpdate) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// LockRepository defines the interface for lock storage
type LockRepository interface {
	Create(ctx context.Context, lock *Lock) error
	GetByID(ctx context.Context, id uuid.UUID) (*Lock, error)
	ListByGate(ctx context.Context, gateID uuid.UUID) ([]Lock, error)
	Update(ctx context.Context, id uuid.UUID, settings *LockSettings) error
	Delete(ctx context.Context, id uuid.UUID) error
}
