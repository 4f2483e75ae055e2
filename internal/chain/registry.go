package chain

import (
	"sort"

	"github.com/charmverse/token-gate/internal/config"
)

// Info describes one supported blockchain
type Info struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	ExplorerURL string `json:"-"`
}

// Registry is an immutable table of supported chains, built once at startup
// from configuration.
type Registry struct {
	chains map[int64]Info
}

// NewRegistry builds a registry from the configured chain list
func NewRegistry(cfgs []config.ChainConfig) *Registry {
	chains := make(map[int64]Info, len(cfgs))
	for _, c := range cfgs {
		chains[c.ID] = Info{ID: c.ID, Name: c.Name, ExplorerURL: c.ExplorerURL}
	}
	return &Registry{chains: chains}
}

// Supported reports whether a chain id is known
func (r *Registry) Supported(chainID int64) bool {
	_, ok := r.chains[chainID]
	return ok
}

// Name returns the display name for a chain, or empty if unknown
func (r *Registry) Name(chainID int64) string {
	return r.chains[chainID].Name
}

// ContractURL returns the block-explorer URL for an address on a chain
func (r *Registry) ContractURL(chainID int64, address string) string {
	info, ok := r.chains[chainID]
	if !ok {
		return ""
	}
	return info.ExplorerURL + address
}

// List returns all supported chains ordered by id
func (r *Registry) List() []Info {
	out := make([]Info, 0, len(r.chains))
	for _, info := range r.chains {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
