package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/charmverse/token-gate/internal/api/response"
	"github.com/charmverse/token-gate/internal/domain"
	"github.com/charmverse/token-gate/internal/service"
)

// ConnectHandler handles Notion account resolution and wallet linking
type ConnectHandler struct {
	connectService *service.ConnectService
	cookieDomain   string
}

// NewConnectHandler creates a new connect handler
func NewConnectHandler(connectService *service.ConnectService, cookieDomain string) *ConnectHandler {
	return &ConnectHandler{connectService: connectService, cookieDomain: cookieDomain}
}

// UserByEmail resolves a Notion user id from an email address and remembers
// the email in a cookie for future visits.
func (h *ConnectHandler) UserByEmail(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		response.BadRequest(w, "missing email parameter")
		return
	}

	userID, err := h.connectService.ResolveEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownNotionUser) {
			response.NotFound(w, err.Error())
			return
		}
		response.InternalError(w, err.Error())
		return
	}

	setEmailCookie(w, h.cookieDomain, email)

	response.OK(w, map[string]string{"id": userID})
}

// Status reports approval and connection state for a wallet against a gate
func (h *ConnectHandler) Status(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	address := q.Get("address")
	if !domain.IsValidAddress(address) {
		response.BadRequest(w, "invalid wallet address")
		return
	}

	spaceDomain := q.Get("domain")
	if spaceDomain == "" {
		response.BadRequest(w, "missing domain parameter")
		return
	}

	chainID, err := strconv.ParseInt(q.Get("chainId"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid chainId parameter")
		return
	}

	status, err := h.connectService.Status(r.Context(), address, chainID, spaceDomain, q.Get("lockId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.OK(w, status)
}

// Link finalizes the wallet-to-Notion-account linkage
func (h *ConnectHandler) Link(w http.ResponseWriter, r *http.Request) {
	var req service.LinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	if !domain.IsValidAddress(req.Address) {
		response.BadRequest(w, "invalid wallet address")
		return
	}

	link, err := h.connectService.Link(r.Context(), req)
	if err != nil {
		// The link row survives a grant failure, so return it with the error
		if errors.Is(err, domain.ErrMembershipGrant) && link != nil {
			response.JSON(w, http.StatusServiceUnavailable, map[string]any{
				"link":  link,
				"error": err.Error(),
			})
			return
		}
		writeServiceError(w, err)
		return
	}

	setEmailCookie(w, h.cookieDomain, req.Email)

	response.OK(w, link)
}

// Unlink removes a wallet link and revokes the workspace membership
func (h *ConnectHandler) Unlink(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	address := q.Get("address")
	if !domain.IsValidAddress(address) {
		response.BadRequest(w, "invalid wallet address")
		return
	}

	spaceDomain := q.Get("domain")
	if spaceDomain == "" {
		response.BadRequest(w, "missing domain parameter")
		return
	}

	if err := h.connectService.Unlink(r.Context(), spaceDomain, address); err != nil {
		writeServiceError(w, err)
		return
	}

	response.NoContent(w)
}
