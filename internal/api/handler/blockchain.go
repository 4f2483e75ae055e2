package handler

import (
	"net/http"
	"strconv"

	"github.com/charmverse/token-gate/internal/api/response"
	"github.com/charmverse/token-gate/internal/chain"
	"github.com/charmverse/token-gate/internal/domain"
	"github.com/charmverse/token-gate/internal/poap"
	"github.com/charmverse/token-gate/internal/service"
)

// BlockchainHandler serves chain-derived lookups used by the lock form
type BlockchainHandler struct {
	gateService *service.GateService
	registry    *chain.Registry
	poapClient  *poap.Client
}

// NewBlockchainHandler creates a new blockchain handler
func NewBlockchainHandler(gateService *service.GateService, registry *chain.Registry, poapClient *poap.Client) *BlockchainHandler {
	return &BlockchainHandler{gateService: gateService, registry: registry, poapClient: poapClient}
}

// GetContract returns the name and symbol of a token contract, plus the
// block-explorer URL for the address. Results come from cache when warm.
func (h *BlockchainHandler) GetContract(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	address := q.Get("tokenAddress")
	if !domain.IsValidAddress(address) {
		response.BadRequest(w, "invalid token address")
		return
	}

	chainID, err := strconv.ParseInt(q.Get("tokenChainId"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid tokenChainId parameter")
		return
	}
	if !h.registry.Supported(chainID) {
		response.BadRequest(w, "unsupported chain")
		return
	}

	meta, err := h.gateService.ContractMetadata(r.Context(), chainID, address)
	if err != nil {
		response.ServiceUnavailable(w, "could not read contract: "+err.Error())
		return
	}

	response.OK(w, map[string]string{
		"tokenName":   meta.Name,
		"tokenSymbol": meta.Symbol,
		"contractUrl": h.registry.ContractURL(chainID, address),
	})
}

// GetPOAPEvents returns the list of POAP events for the lock form picker
func (h *BlockchainHandler) GetPOAPEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.poapClient.Events(r.Context())
	if err != nil {
		response.ServiceUnavailable(w, "could not list POAP events: "+err.Error())
		return
	}

	response.OK(w, events)
}

// ListChains returns the supported chains and their explorer URLs
func (h *BlockchainHandler) ListChains(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.registry.List())
}
