package handler

import (
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/hirebridge/internal/domain"
	"github.com/aryan0dhankhar/hirebridge/internal/identity"
	"github.com/aryan0dhankhar/hirebridge/internal/security"
)

// IdentityResponse describes the caller and what it can currently do
type IdentityResponse struct {
	PrincipalID   string                `json:"principalId"`
	Role          domain.Role           `json:"role"`
	EffectiveRole domain.Role           `json:"effectiveRole"`
	HasDualRole   bool                  `json:"hasDualRole"`
	ActiveRole    domain.Role           `json:"activeRole,omitempty"`
	CompanyID     string                `json:"companyId,omitempty"`
	Capabilities  []security.Capability `json:"capabilities"`
}

// ActiveRoleRequest selects the active role of a dual-role principal
type ActiveRoleRequest struct {
	Role string `json:"role"`
}

// IdentityHandler serves the caller's identity and role switching
type IdentityHandler struct {
	switcher *identity.Switcher
	gate     *security.AccessGate
	logger   *slog.Logger
}

// NewIdentityHandler creates a new identity handler
func NewIdentityHandler(switcher *identity.Switcher, gate *security.AccessGate, logger *slog.Logger) *IdentityHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &IdentityHandler{switcher: switcher, gate: gate, logger: logger}
}

func (h *IdentityHandler) describe(id domain.Identity) IdentityResponse {
	active, _ := id.ActiveRole()
	caps := h.gate.Capabilities(id)
	if caps == nil {
		caps = []security.Capability{}
	}
	return IdentityResponse{
		PrincipalID:   id.PrincipalID,
		Role:          id.Role(),
		EffectiveRole: id.EffectiveRole(),
		HasDualRole:   id.HasDualRole(),
		ActiveRole:    active,
		CompanyID:     id.CompanyID,
		Capabilities:  caps,
	}
}

// Get handles GET /v1/identity
func (h *IdentityHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := requireIdentity(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, h.describe(id))
}

// SetActiveRole handles POST /v1/identity/active-role
func (h *IdentityHandler) SetActiveRole(w http.ResponseWriter, r *http.Request) {
	id, err := requireIdentity(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var body ActiveRoleRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	role, err := domain.ParseRole(body.Role)
	if err != nil {
		writeError(w, r, h.logger, badRequest("%s", err.Error()))
		return
	}

	next, err := h.switcher.SwitchActiveRole(r.Context(), id, role)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, h.describe(next))
}
