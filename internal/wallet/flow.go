package wallet

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/charmverse/token-gate/internal/domain"
	"github.com/charmverse/token-gate/internal/signature"
)

// State is the connection status the flow exposes to the UI
type State string

const (
	StateDisconnected      State = "disconnected"
	StateConnecting        State = "connecting"
	StateAwaitingSignature State = "awaiting_signature"
	StateSigned            State = "signed"
	StateApproved          State = "approved"
	StateRejected          State = "rejected"
	StateConnected         State = "connected"
)

// Session is the ephemeral wallet-connection state. It is never persisted;
// it is reset on account change and destroyed on disconnect or chain change.
type Session struct {
	Address   string `json:"address,omitempty"`
	ChainID   int64  `json:"chainId,omitempty"`
	Signature string `json:"signature,omitempty"`
	Approved  bool   `json:"approved"`
	Connected bool   `json:"connected"`
	Error     string `json:"error,omitempty"`
}

// ErrSuperseded indicates a signature exchange was abandoned because a newer
// one started, typically after an account change.
var ErrSuperseded = errors.New("signature request superseded")

// Flow drives the wallet connection state machine:
//
//	Disconnected → Connecting → AwaitingSignature → Signed →
//	(Approved | Rejected) → Connected
//
// Only one signature request is in flight per session; concurrent requests
// are serialized by a generation counter that discards the older exchange.
// An account change while awaiting a signature aborts the pending request and
// restarts from Connecting with the new account. A chain change at any state
// resets the session entirely, since the connection is chain-pinned.
type Flow struct {
	provider    Provider
	signTimeout time.Duration

	mu         sync.Mutex
	state      State
	session    Session
	generation uint64
	email      string

	// Signed fires each time a signature exchange completes, carrying a
	// snapshot of the session
	Signed chan Session

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewFlow starts a flow over a connected provider. Close must be called to
// release the provider event subscriptions.
func NewFlow(provider Provider, signTimeout time.Duration) *Flow {
	if signTimeout <= 0 {
		signTimeout = 30 * time.Second
	}
	f := &Flow{
		provider:    provider,
		signTimeout: signTimeout,
		state:       StateDisconnected,
		Signed:      make(chan Session, 1),
		stop:        make(chan struct{}),
	}
	f.wg.Add(1)
	go f.watch()
	return f
}

// State returns the current connection status
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Session returns a snapshot of the signature session
func (f *Flow) Session() Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session
}

// Connect requests accounts from the provider and runs the signature
// exchange for the email attestation. On success the flow is in StateSigned
// and the session carries the signature.
func (f *Flow) Connect(ctx context.Context, email string) (Session, error) {
	f.mu.Lock()
	f.state = StateConnecting
	f.email = email
	f.session = Session{}
	f.generation++
	gen := f.generation
	f.mu.Unlock()

	accounts, err := f.provider.RequestAccounts(ctx)
	if err != nil {
		return f.fail(gen, err)
	}
	if len(accounts) == 0 {
		return f.fail(gen, domain.ErrConnection)
	}

	chainID, err := f.provider.ChainID(ctx)
	if err != nil {
		return f.fail(gen, err)
	}

	return f.sign(ctx, gen, accounts[0], chainID)
}

// sign runs one signature exchange. The result is applied only if the
// exchange's generation is still current when it resolves.
func (f *Flow) sign(ctx context.Context, gen uint64, address string, chainID int64) (Session, error) {
	f.mu.Lock()
	if f.generation != gen {
		f.mu.Unlock()
		return Session{}, ErrSuperseded
	}
	f.state = StateAwaitingSignature
	f.session.Address = address
	f.session.ChainID = chainID
	email := f.email
	f.mu.Unlock()

	signCtx, cancel := context.WithTimeout(ctx, f.signTimeout)
	defer cancel()

	typed := signature.TypedMessage(chainID, email)
	sig, err := f.provider.SignTypedData(signCtx, address, typed)

	f.mu.Lock()
	if f.generation != gen {
		f.mu.Unlock()
		return Session{}, ErrSuperseded
	}
	if err != nil {
		f.state = StateDisconnected
		f.session.Error = userMessage(err)
		session := f.session
		f.mu.Unlock()
		return session, err
	}
	f.state = StateSigned
	f.session.Signature = sig
	f.session.Error = ""
	session := f.session
	f.mu.Unlock()

	select {
	case f.Signed <- session:
	default:
	}
	return session, nil
}

// SetApproved applies the server-side eligibility verdict to a signed session
func (f *Flow) SetApproved(approved bool, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateSigned && f.state != StateRejected && f.state != StateApproved {
		return
	}
	f.session.Approved = approved
	if approved {
		f.state = StateApproved
		f.session.Error = ""
	} else {
		f.state = StateRejected
		f.session.Error = reason
	}
}

// MarkConnected records that the wallet link was persisted
func (f *Flow) MarkConnected() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateApproved {
		return
	}
	f.state = StateConnected
	f.session.Connected = true
}

// Reset discards the session and returns to Disconnected
func (f *Flow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generation++
	f.state = StateDisconnected
	f.session = Session{}
}

// Close stops the event loop and disconnects the provider
func (f *Flow) Close() error {
	select {
	case <-f.stop:
	default:
		close(f.stop)
	}
	f.wg.Wait()
	return f.provider.Disconnect()
}

func (f *Flow) fail(gen uint64, err error) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.generation != gen {
		return Session{}, ErrSuperseded
	}
	f.state = StateDisconnected
	f.session.Error = userMessage(err)
	return f.session, err
}

// watch reacts to provider events for the lifetime of the page session
func (f *Flow) watch() {
	defer f.wg.Done()

	for {
		select {
		case <-f.stop:
			return
		case accounts := <-f.provider.AccountsChanged():
			f.onAccountsChanged(accounts)
		case chainID := <-f.provider.ChainChanged():
			f.onChainChanged(chainID)
		}
	}
}

// onAccountsChanged aborts any pending signature request and restarts the
// exchange from Connecting with the new account. No signature is recorded
// for the abandoned account.
func (f *Flow) onAccountsChanged(accounts []string) {
	f.mu.Lock()
	f.generation++
	gen := f.generation

	if len(accounts) == 0 {
		f.state = StateDisconnected
		f.session = Session{}
		f.mu.Unlock()
		return
	}

	inFlow := f.state != StateDisconnected
	f.state = StateConnecting
	f.session = Session{}
	f.mu.Unlock()

	log.Debug().Str("address", domain.ShortenAddress(accounts[0])).Msg("wallet account changed")

	if !inFlow {
		return
	}

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		ctx := context.Background()

		// the wallet may have moved chains since the session started
		chainID, err := f.provider.ChainID(ctx)
		if err != nil {
			f.fail(gen, err)
			log.Warn().Err(err).Msg("chain lookup after account change failed")
			return
		}
		if _, err := f.sign(ctx, gen, accounts[0], chainID); err != nil && !errors.Is(err, ErrSuperseded) {
			log.Warn().Err(err).Msg("re-sign after account change failed")
		}
	}()
}

// onChainChanged discards the session entirely: the connection is pinned to
// a chain, so wallet state must be reloaded from scratch.
func (f *Flow) onChainChanged(chainID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generation++
	f.state = StateDisconnected
	f.session = Session{}
	log.Debug().Int64("chain_id", chainID).Msg("wallet chain changed, session reset")
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrUserRejected):
		return "Signature request was rejected"
	case errors.Is(err, domain.ErrNoProvider):
		return "No wallet provider detected"
	case errors.Is(err, context.DeadlineExceeded):
		return "The wallet did not respond in time, please retry"
	default:
		return "There was a problem connecting your wallet"
	}
}
