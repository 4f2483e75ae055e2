package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/charmverse/token-gate/internal/api/middleware"
	"github.com/charmverse/token-gate/internal/api/response"
	"github.com/charmverse/token-gate/internal/domain"
	"github.com/charmverse/token-gate/internal/service"
)

var validate = validator.New()

// GateHandler handles gate lookup and settings endpoints
type GateHandler struct {
	gateService  *service.GateService
	cookieDomain string
}

// NewGateHandler creates a new gate handler
func NewGateHandler(gateService *service.GateService, cookieDomain string) *GateHandler {
	return &GateHandler{gateService: gateService, cookieDomain: cookieDomain}
}

// GetByDomain returns the gate and locks for a Notion space domain.
// A remembered email cookie is re-set on every lookup to extend its lifetime.
func (h *GateHandler) GetByDomain(w http.ResponseWriter, r *http.Request) {
	spaceDomain := r.URL.Query().Get("domain")
	if spaceDomain == "" {
		response.BadRequest(w, "missing domain parameter")
		return
	}

	gate, err := h.gateService.GetByDomain(r.Context(), spaceDomain)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if email := readEmailCookie(r); email != "" {
		setEmailCookie(w, h.cookieDomain, email)
	}

	response.OK(w, gate)
}

// ListLockTypes returns the configurable lock types with display labels
func (h *GateHandler) ListLockTypes(w http.ResponseWriter, r *http.Request) {
	response.OK(w, domain.LockTypes)
}

// Create handles gate creation
func (h *GateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input domain.GateCreate
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	if !middleware.AdminAllowsDomain(r.Context(), input.SpaceDomain) {
		response.Forbidden(w, "not an admin of this space")
		return
	}

	gate, err := h.gateService.CreateGate(r.Context(), input)
	if err != nil {
		response.InternalError(w, err.Error())
		return
	}

	response.Created(w, gate)
}

// Update handles gate updates
func (h *GateHandler) Update(w http.ResponseWriter, r *http.Request) {
	gateID, ok := h.authorizedGate(w, r)
	if !ok {
		return
	}

	var input domain.GateUpdate
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	gate, err := h.gateService.UpdateGate(r.Context(), gateID, input)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.OK(w, gate)
}

// Delete handles gate deletion
func (h *GateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	gateID, ok := h.authorizedGate(w, r)
	if !ok {
		return
	}

	if err := h.gateService.DeleteGate(r.Context(), gateID); err != nil {
		writeServiceError(w, err)
		return
	}

	response.NoContent(w)
}

// UpsertLock creates or updates a lock on a gate. The body carries the lock
// settings; an id field selects update over create.
func (h *GateHandler) UpsertLock(w http.ResponseWriter, r *http.Request) {
	gateID, ok := h.authorizedGate(w, r)
	if !ok {
		return
	}

	var input struct {
		ID *uuid.UUID `json:"id,omitempty"`
		domain.LockSettings
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(input.LockSettings); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	lock, err := h.gateService.UpsertLock(r.Context(), gateID, input.ID, input.LockSettings)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if input.ID != nil {
		response.OK(w, lock)
		return
	}
	response.Created(w, lock)
}

// DeleteLock removes a lock from a gate
func (h *GateHandler) DeleteLock(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorizedGate(w, r); !ok {
		return
	}

	lockID, err := uuid.Parse(chi.URLParam(r, "lockID"))
	if err != nil {
		response.BadRequest(w, "invalid lock ID")
		return
	}

	if err := h.gateService.DeleteLock(r.Context(), lockID); err != nil {
		writeServiceError(w, err)
		return
	}

	response.NoContent(w)
}

// authorizedGate parses the gate ID from the URL and checks the authenticated
// admin may configure the gate's space domain. Writes the error response
// itself when the check fails.
func (h *GateHandler) authorizedGate(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	gateID, err := uuid.Parse(chi.URLParam(r, "gateID"))
	if err != nil {
		response.BadRequest(w, "invalid gate ID")
		return uuid.Nil, false
	}

	gate, err := h.gateService.GetByID(r.Context(), gateID)
	if err != nil {
		writeServiceError(w, err)
		return uuid.Nil, false
	}

	if !middleware.AdminAllowsDomain(r.Context(), gate.SpaceDomain) {
		response.Forbidden(w, "not an admin of this space")
		return uuid.Nil, false
	}

	return gateID, true
}

// writeServiceError maps service errors onto HTTP status codes
func writeServiceError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrGateNotFound),
		errors.Is(err, domain.ErrLockNotFound),
		errors.Is(err, domain.ErrUnknownNotionUser):
		response.NotFound(w, err.Error())
	case errors.Is(err, domain.ErrInvalidSignature):
		response.Unauthorized(w, err.Error())
	case errors.Is(err, domain.ErrEligibilityExpired):
		response.UnprocessableEntity(w, err.Error())
	case errors.Is(err, domain.ErrMembershipGrant):
		response.ServiceUnavailable(w, err.Error())
	case errors.As(err, &verr):
		response.BadRequest(w, err.Error())
	default:
		response.InternalError(w, err.Error())
	}
}
