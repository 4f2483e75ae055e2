package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/charmverse/token-gate/internal/domain"
)

// InjectedProvider adapts a browser-extension style wallet exposed over an
// EIP-1193 JSON-RPC endpoint. Account and chain changes are detected by
// polling, mirroring the accountsChanged/chainChanged notifications injected
// providers emit.
type InjectedProvider struct {
	client *rpc.Client

	accountsCh chan []string
	chainCh    chan int64

	mu           sync.Mutex
	lastAccounts []string
	lastChain    int64

	stop chan struct{}
	wg   sync.WaitGroup
}

// pollInterval matches the cadence injected providers use for change events
const pollInterval = 2 * time.Second

// DetectInjected connects to a wallet RPC endpoint. A missing endpoint is
// reported as domain.ErrNoProvider, the "wallet not installed" case.
func DetectInjected(ctx context.Context, endpoint string) (*InjectedProvider, error) {
	if endpoint == "" {
		return nil, domain.ErrNoProvider
	}
	client, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoProvider, err)
	}

	p := &InjectedProvider{
		client:     client,
		accountsCh: make(chan []string, 1),
		chainCh:    make(chan int64, 1),
		stop:       make(chan struct{}),
	}
	p.wg.Add(1)
	go p.watch()
	return p, nil
}

// Name returns the provider identifier
func (p *InjectedProvider) Name() string {
	return "injected"
}

// RequestAccounts prompts the wallet for its active accounts
func (p *InjectedProvider) RequestAccounts(ctx context.Context) ([]string, error) {
	var accounts []string
	if err := p.client.CallContext(ctx, &accounts, "eth_requestAccounts"); err != nil {
		return nil, normalizeError(err)
	}
	p.mu.Lock()
	p.lastAccounts = accounts
	p.mu.Unlock()
	return accounts, nil
}

// ChainID returns the chain the wallet is pinned to
func (p *InjectedProvider) ChainID(ctx context.Context) (int64, error) {
	var hexID string
	if err := p.client.CallContext(ctx, &hexID, "eth_chainId"); err != nil {
		return 0, normalizeError(err)
	}
	id, err := parseHexChainID(hexID)
	if err != nil {
		return 0, err
	}
	p.mu.Lock()
	p.lastChain = id
	p.mu.Unlock()
	return id, nil
}

// SignTypedData invokes eth_signTypedData_v4 with the address and the
// JSON-stringified typed data, the parameter encoding third-party wallets
// expect.
func (p *InjectedProvider) SignTypedData(ctx context.Context, from string, typed apitypes.TypedData) (string, error) {
	payload, err := json.Marshal(typed)
	if err != nil {
		return "", fmt.Errorf("failed to encode typed data: %w", err)
	}

	var sig string
	if err := p.client.CallContext(ctx, &sig, "eth_signTypedData_v4", from, string(payload)); err != nil {
		return "", normalizeError(err)
	}
	return sig, nil
}

// AccountsChanged emits new account lists
func (p *InjectedProvider) AccountsChanged() <-chan []string {
	return p.accountsCh
}

// ChainChanged emits new chain ids
func (p *InjectedProvider) ChainChanged() <-chan int64 {
	return p.chainCh
}

// Disconnect stops the change watcher and closes the RPC connection
func (p *InjectedProvider) Disconnect() error {
	select {
	case <-p.stop:
	default:
		close(p.stop)
	}
	p.wg.Wait()
	p.client.Close()
	return nil
}

func (p *InjectedProvider) watch() {
	defer p.wg.Done()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.poll()
		}
	}
}

func (p *InjectedProvider) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), pollInterval)
	defer cancel()

	var accounts []string
	if err := p.client.CallContext(ctx, &accounts, "eth_accounts"); err == nil {
		p.mu.Lock()
		changed := !equalAccounts(accounts, p.lastAccounts)
		if changed {
			p.lastAccounts = accounts
		}
		p.mu.Unlock()
		if changed {
			emit(p.accountsCh, accounts)
		}
	}

	var hexID string
	if err := p.client.CallContext(ctx, &hexID, "eth_chainId"); err == nil {
		if id, err := parseHexChainID(hexID); err == nil {
			p.mu.Lock()
			changed := p.lastChain != 0 && p.lastChain != id
			p.lastChain = id
			p.mu.Unlock()
			if changed {
				emit(p.chainCh, id)
			}
		}
	}
}

// emit delivers the latest value without blocking, dropping a stale queued one
func emit[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}

func equalAccounts(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}

func parseHexChainID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "0x"), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed chain id %q: %w", s, err)
	}
	return id, nil
}
