package wallet

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/google/uuid"

	"github.com/charmverse/token-gate/internal/domain"
)

// SessionUpdate carries the wallet state a relay session reports when the
// remote wallet connects, switches accounts, or switches chains.
type SessionUpdate struct {
	Accounts []string
	ChainID  int64
	// Killed is set when the remote side ended the session
	Killed bool
}

// RelaySession is a live pairing with a remote wallet through a bridge relay.
// The concrete transport is a JSON-RPC connection to the bridge, which
// forwards signing calls to the paired wallet.
type RelaySession interface {
	Accounts() []string
	ChainID() int64
	SignTypedData(ctx context.Context, from, payload string) (string, error)
	Updates() <-chan SessionUpdate
	Kill() error
}

// RelayProvider adapts a relay/session-based remote signer. An existing live
// session is reused; otherwise a new one is created and its pairing URI is
// exposed for QR rendering.
type RelayProvider struct {
	session RelaySession
	uri     string

	accountsCh chan []string
	chainCh    chan int64

	stop chan struct{}
	wg   sync.WaitGroup
}

// RelayDialer establishes a new bridge session for the given chain and
// returns it with its pairing URI.
type RelayDialer func(ctx context.Context, chainID int64) (RelaySession, string, error)

// ConnectRelay wires a provider over a relay session. When existing is
// non-nil that session is reused and no pairing URI is produced; otherwise
// dial creates a fresh session.
func ConnectRelay(ctx context.Context, existing RelaySession, dial RelayDialer, chainID int64) (*RelayProvider, error) {
	session := existing
	uri := ""
	if session == nil {
		if dial == nil {
			return nil, domain.ErrNoProvider
		}
		var err error
		session, uri, err = dial(ctx, chainID)
		if err != nil {
			return nil, normalizeError(err)
		}
	}

	p := &RelayProvider{
		session:    session,
		uri:        uri,
		accountsCh: make(chan []string, 1),
		chainCh:    make(chan int64, 1),
		stop:       make(chan struct{}),
	}
	p.wg.Add(1)
	go p.forward()
	return p, nil
}

// Name returns the provider identifier
func (p *RelayProvider) Name() string {
	return "relay"
}

// ConnectURI returns the pairing URI for QR rendering, empty when an existing
// session was reused.
func (p *RelayProvider) ConnectURI() string {
	return p.uri
}

// RequestAccounts returns the accounts of the paired wallet
func (p *RelayProvider) RequestAccounts(ctx context.Context) ([]string, error) {
	accounts := p.session.Accounts()
	if len(accounts) == 0 {
		// pairing not approved yet; wait for the wallet to connect
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case accounts = <-p.accountsCh:
			if len(accounts) == 0 {
				return nil, domain.ErrConnection
			}
		}
	}
	return accounts, nil
}

// ChainID returns the chain of the paired wallet
func (p *RelayProvider) ChainID(ctx context.Context) (int64, error) {
	return p.session.ChainID(), nil
}

// SignTypedData forwards the typed-data signing call through the session,
// using the same [address, JSON] parameter encoding as the injected variant.
func (p *RelayProvider) SignTypedData(ctx context.Context, from string, typed apitypes.TypedData) (string, error) {
	payload, err := json.Marshal(typed)
	if err != nil {
		return "", fmt.Errorf("failed to encode typed data: %w", err)
	}
	sig, err := p.session.SignTypedData(ctx, from, string(payload))
	if err != nil {
		return "", normalizeError(err)
	}
	return sig, nil
}

// AccountsChanged emits new account lists from session updates
func (p *RelayProvider) AccountsChanged() <-chan []string {
	return p.accountsCh
}

// ChainChanged emits new chain ids from session updates
func (p *RelayProvider) ChainChanged() <-chan int64 {
	return p.chainCh
}

// Disconnect kills the session
func (p *RelayProvider) Disconnect() error {
	select {
	case <-p.stop:
	default:
		close(p.stop)
	}
	err := p.session.Kill()
	p.wg.Wait()
	return err
}

func (p *RelayProvider) forward() {
	defer p.wg.Done()

	var lastAccounts []string
	lastChain := p.session.ChainID()

	for {
		select {
		case <-p.stop:
			return
		case update, ok := <-p.session.Updates():
			if !ok || update.Killed {
				emit(p.accountsCh, nil)
				return
			}
			if !equalAccounts(update.Accounts, lastAccounts) {
				lastAccounts = update.Accounts
				emit(p.accountsCh, update.Accounts)
			}
			if update.ChainID != 0 && update.ChainID != lastChain {
				lastChain = update.ChainID
				emit(p.chainCh, update.ChainID)
			}
		}
	}
}

// bridgeSession is the default RelaySession over a JSON-RPC bridge endpoint.
// Session state is polled from the bridge and forwarded on the updates
// channel, which is how pairing approval and account/chain switches reach the
// provider.
type bridgeSession struct {
	client  *rpc.Client
	topic   string
	updates chan SessionUpdate

	mu       sync.Mutex
	accounts []string
	chainID  int64

	stop chan struct{}
	wg   sync.WaitGroup
}

// bridgePollInterval is the cadence session state is read from the bridge
var bridgePollInterval = 2 * time.Second

// DialBridge returns a RelayDialer for the given bridge URL. The pairing URI
// embeds a fresh topic and symmetric key in the conventional wc: form.
func DialBridge(bridgeURL string) RelayDialer {
	return func(ctx context.Context, chainID int64) (RelaySession, string, error) {
		client, err := rpc.DialContext(ctx, bridgeURL)
		if err != nil {
			return nil, "", fmt.Errorf("failed to dial bridge: %w", err)
		}

		topic := uuid.NewString()
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			client.Close()
			return nil, "", fmt.Errorf("failed to generate session key: %w", err)
		}

		s := &bridgeSession{
			client:  client,
			topic:   topic,
			updates: make(chan SessionUpdate, 4),
			chainID: chainID,
			stop:    make(chan struct{}),
		}

		var result struct {
			Accounts []string `json:"accounts"`
			ChainID  int64    `json:"chainId"`
		}
		if err := client.CallContext(ctx, &result, "session_create", topic, chainID); err != nil {
			client.Close()
			return nil, "", err
		}
		s.accounts = result.Accounts
		if result.ChainID != 0 {
			s.chainID = result.ChainID
		}

		s.wg.Add(1)
		go s.watch()

		uri := fmt.Sprintf("wc:%s@1?bridge=%s&key=%s",
			topic, url.QueryEscape(bridgeURL), hex.EncodeToString(key))
		return s, uri, nil
	}
}

// watch polls the bridge for session state until the session ends on either
// side
func (s *bridgeSession) watch() {
	defer s.wg.Done()

	ticker := time.NewTicker(bridgePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if !s.poll() {
				return
			}
		}
	}
}

// poll reads the session state and forwards changes. Returns false once the
// remote side has killed the session.
func (s *bridgeSession) poll() bool {
	ctx, cancel := context.WithTimeout(context.Background(), bridgePollInterval)
	defer cancel()

	var status struct {
		Accounts []string `json:"accounts"`
		ChainID  int64    `json:"chainId"`
		Killed   bool     `json:"killed"`
	}
	if err := s.client.CallContext(ctx, &status, "session_status", s.topic); err != nil {
		// transient bridge failure; keep the session and retry next tick
		return true
	}

	if status.Killed {
		s.deliver(SessionUpdate{Killed: true})
		return false
	}

	s.mu.Lock()
	changed := !equalAccounts(status.Accounts, s.accounts)
	s.accounts = status.Accounts
	if status.ChainID != 0 && status.ChainID != s.chainID {
		s.chainID = status.ChainID
		changed = true
	}
	accounts := s.accounts
	chainID := s.chainID
	s.mu.Unlock()

	if changed {
		s.deliver(SessionUpdate{Accounts: accounts, ChainID: chainID})
	}
	return true
}

func (s *bridgeSession) deliver(u SessionUpdate) {
	select {
	case s.updates <- u:
	case <-s.stop:
	}
}

func (s *bridgeSession) Accounts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts
}

func (s *bridgeSession) ChainID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chainID
}

func (s *bridgeSession) SignTypedData(ctx context.Context, from, payload string) (string, error) {
	var sig string
	if err := s.client.CallContext(ctx, &sig, "eth_signTypedData_v4", from, payload); err != nil {
		return "", err
	}
	return sig, nil
}

func (s *bridgeSession) Updates() <-chan SessionUpdate {
	return s.updates
}

func (s *bridgeSession) Kill() error {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	s.wg.Wait()

	err := s.client.CallContext(context.Background(), nil, "session_kill", s.topic)
	s.client.Close()
	close(s.updates)
	return err
}
