// Package lockform models the multi-step gate/lock configuration flow as an
// explicit state machine with typed per-step payloads.
package lockform

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/charmverse/token-gate/internal/domain"
)

// Step names one stage of the configuration flow
type Step string

const (
	StepDomain        Step = "domain"
	StepAdminVerify   Step = "admin_verify"
	StepNotionPrefs   Step = "notion_prefs"
	StepTokenCriteria Step = "token_criteria"
	StepDone          Step = "done"
)

// transitions lists the allowed forward edge from each step
var transitions = map[Step]Step{
	StepDomain:        StepAdminVerify,
	StepAdminVerify:   StepNotionPrefs,
	StepNotionPrefs:   StepTokenCriteria,
	StepTokenCriteria: StepDone,
}

// backTransitions lists the allowed backward edge from each step
var backTransitions = map[Step]Step{
	StepAdminVerify:   StepDomain,
	StepNotionPrefs:   StepAdminVerify,
	StepTokenCriteria: StepNotionPrefs,
	StepDone:          StepTokenCriteria,
}

// DomainInput is the payload for StepDomain
type DomainInput struct {
	SpaceDomain string `json:"spaceDomain" validate:"required,max=255"`
}

// AdminVerifyInput is the payload for StepAdminVerify
type AdminVerifyInput struct {
	SpaceID      string `json:"spaceId" validate:"required"`
	SpaceName    string `json:"spaceName"`
	SpaceIcon    string `json:"spaceIcon"`
	SpaceIsAdmin bool   `json:"spaceIsAdmin"`
}

// NotionPrefsInput is the payload for StepNotionPrefs
type NotionPrefsInput struct {
	SpaceUserRole   *domain.SpaceUserRole `json:"spaceUserRole,omitempty"`
	SpaceBlockIDs   []string              `json:"spaceBlockIds,omitempty"`
	SpaceBlockURLs  []string              `json:"spaceBlockUrls,omitempty"`
	SpaceDefaultURL string                `json:"spaceDefaultUrl,omitempty"`
}

// TokenCriteriaInput is the payload for StepTokenCriteria
type TokenCriteriaInput struct {
	LockType         domain.LockType `json:"lockType"`
	TokenChainID     int64           `json:"tokenChainId,omitempty"`
	TokenAddress     string          `json:"tokenAddress,omitempty"`
	TokenMin         int64           `json:"tokenMin,omitempty"`
	TokenBlacklist   []string        `json:"tokenBlacklist,omitempty"`
	POAPEventID      int64           `json:"POAPEventId,omitempty"`
	POAPEventName    string          `json:"POAPEventName,omitempty"`
	AddressWhitelist []string        `json:"addressWhitelist,omitempty"`
}

// Draft is the record assembled across steps. Submitting without a LockID
// creates a new lock; with one, it updates by id.
type Draft struct {
	GateID uuid.UUID
	LockID uuid.UUID

	Gate domain.GateCreate
	Lock domain.LockSettings
}

// Form is the configuration state machine. Each step's validated output is
// merged into the draft; back-navigation re-enters the prior step with the
// draft intact.
type Form struct {
	mu    sync.Mutex
	step  Step
	draft Draft
	err   error

	lookup *MetadataLookup
}

// New starts a form at StepDomain. lookup may be nil when contract metadata
// auto-population is not wanted.
func New(lookup *MetadataLookup) *Form {
	return &Form{step: StepDomain, lookup: lookup}
}

// Edit starts a form for an existing lock at StepTokenCriteria with the
// draft pre-populated.
func Edit(lookup *MetadataLookup, gateID, lockID uuid.UUID, settings domain.LockSettings) *Form {
	return &Form{
		step:   StepTokenCriteria,
		lookup: lookup,
		draft: Draft{
			GateID: gateID,
			LockID: lockID,
			Lock:   settings,
		},
	}
}

// Step returns the current step
func (f *Form) Step() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// Draft returns a snapshot of the assembled record
func (f *Form) Draft() Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

// Err returns the last step error, if any
func (f *Form) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Back re-enters the previous step. The draft is retained.
func (f *Form) Back() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	prev, ok := backTransitions[f.step]
	if !ok {
		return false
	}
	f.step = prev
	f.err = nil
	return true
}

func (f *Form) advance(from Step) error {
	if f.step != from {
		return &domain.ValidationError{Message: "operation not valid for current step"}
	}
	f.step = transitions[from]
	f.err = nil
	return nil
}

// SubmitDomain applies the domain step. Changing the domain of an existing
// gate clears the cached space id until it is re-verified.
func (f *Form) SubmitDomain(in DomainInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if in.SpaceDomain == "" {
		f.err = &domain.ValidationError{Field: "spaceDomain", Message: "domain is required"}
		return f.err
	}
	if f.draft.Gate.SpaceDomain != "" && f.draft.Gate.SpaceDomain != in.SpaceDomain {
		f.draft.Gate.SpaceID = ""
	}
	f.draft.Gate.SpaceDomain = in.SpaceDomain
	return f.advance(StepDomain)
}

// SubmitAdminVerify applies the admin-verification step
func (f *Form) SubmitAdminVerify(in AdminVerifyInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if in.SpaceID == "" {
		f.err = &domain.ValidationError{Field: "spaceId", Message: "workspace could not be verified"}
		return f.err
	}
	f.draft.Gate.SpaceID = in.SpaceID
	f.draft.Gate.SpaceName = in.SpaceName
	f.draft.Gate.SpaceIcon = in.SpaceIcon
	f.draft.Gate.SpaceIsAdmin = in.SpaceIsAdmin
	return f.advance(StepAdminVerify)
}

// SubmitNotionPrefs applies the Notion-preferences step
func (f *Form) SubmitNotionPrefs(in NotionPrefsInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.draft.Lock.SpaceUserRole = in.SpaceUserRole
	f.draft.Lock.SpaceBlockIDs = in.SpaceBlockIDs
	f.draft.Lock.SpaceBlockURLs = in.SpaceBlockURLs
	f.draft.Lock.SpaceDefaultURL = in.SpaceDefaultURL
	return f.advance(StepNotionPrefs)
}

// SubmitTokenCriteria applies the token-criteria step. Validation mirrors the
// lock rules: a malformed contract address blocks submission, an unresolved
// name/symbol does not.
func (f *Form) SubmitTokenCriteria(in TokenCriteriaInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	settings := f.draft.Lock
	settings.LockType = in.LockType
	settings.TokenChainID = in.TokenChainID
	settings.TokenAddress = in.TokenAddress
	settings.TokenMin = in.TokenMin
	settings.TokenBlacklist = in.TokenBlacklist
	settings.POAPEventID = in.POAPEventID
	settings.POAPEventName = in.POAPEventName
	settings.AddressWhitelist = in.AddressWhitelist

	if err := settings.Validate(); err != nil {
		f.err = err
		return err
	}

	// keep any metadata the lookup resolved for the submitted address
	if f.lookup != nil {
		if meta, ok := f.lookup.Current(in.TokenChainID, in.TokenAddress); ok {
			settings.TokenName = meta.Name
			settings.TokenSymbol = meta.Symbol
		}
	}

	f.draft.Lock = settings
	return f.advance(StepTokenCriteria)
}

// OnContractChange schedules a debounced metadata lookup for the address
// currently typed into the form. The result is advisory and applied only if
// the input is still current when the lookup resolves.
func (f *Form) OnContractChange(chainID int64, address string) {
	if f.lookup == nil || !domain.IsValidAddress(address) {
		return
	}
	f.lookup.Schedule(chainID, address)
}

// TokenMetadata is a resolved name/symbol pair for display
type TokenMetadata struct {
	Name   string `json:"tokenName"`
	Symbol string `json:"tokenSymbol"`
}

// MetadataResolver resolves contract display metadata
type MetadataResolver func(ctx context.Context, chainID int64, address string) (TokenMetadata, error)

// MetadataLookup debounces contract metadata lookups. Responses are applied
// last-write-wins by input identity: each scheduled input gets a generation,
// and a response is kept only if its generation is still current.
type MetadataLookup struct {
	resolve  MetadataResolver
	debounce time.Duration

	mu         sync.Mutex
	generation uint64
	chainID    int64
	address    string
	result     *TokenMetadata
	timer      *time.Timer

	// Resolved fires with each applied result, for UI refresh
	Resolved chan TokenMetadata
}

// DefaultDebounce matches the form's keystroke settling window
const DefaultDebounce = 300 * time.Millisecond

// NewMetadataLookup creates a debounced lookup
func NewMetadataLookup(resolve MetadataResolver, debounce time.Duration) *MetadataLookup {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &MetadataLookup{
		resolve:  resolve,
		debounce: debounce,
		Resolved: make(chan TokenMetadata, 1),
	}
}

// Schedule registers a new input, resetting the debounce window and
// invalidating any in-flight lookup for a previous input.
func (l *MetadataLookup) Schedule(chainID int64, address string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.generation++
	gen := l.generation
	l.chainID = chainID
	l.address = address
	l.result = nil

	if l.timer != nil {
		l.timer.Stop()
	}
	l.timer = time.AfterFunc(l.debounce, func() {
		l.run(gen, chainID, address)
	})
}

func (l *MetadataLookup) run(gen uint64, chainID int64, address string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	meta, err := l.resolve(ctx, chainID, address)
	if err != nil {
		// advisory lookup; absence of metadata never blocks the form
		return
	}

	l.mu.Lock()
	if l.generation != gen {
		l.mu.Unlock()
		return
	}
	l.result = &meta
	l.mu.Unlock()

	select {
	case l.Resolved <- meta:
	default:
	}
}

// Current returns the resolved metadata if it belongs to the given input
func (l *MetadataLookup) Current(chainID int64, address string) (TokenMetadata, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.result == nil || l.chainID != chainID || l.address != address {
		return TokenMetadata{}, false
	}
	return *l.result, true
}
