package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/hirebridge/internal/security"
	"github.com/aryan0dhankhar/hirebridge/internal/security/audit"
	"github.com/aryan0dhankhar/hirebridge/internal/service"
)

// Sweeper runs an on-demand expiry sweep
type Sweeper interface {
	RunOnce(ctx context.Context, source string) (int, error)
}

// GrantCreditsRequest adjusts a company's introduction credits. ExpectedPrior turns the
// adjustment into a compare-and-swap.
type GrantCreditsRequest struct {
	Delta         int  `json:"delta"`
	ExpectedPrior *int `json:"expectedPrior,omitempty"`
}

// GrantCreditsResponse reports the balance after the adjustment
type GrantCreditsResponse struct {
	CompanyID string `json:"companyId"`
	Balance   int    `json:"balance"`
}

// SweepResponse reports how many requests a sweep expired
type SweepResponse struct {
	Expired int `json:"expired"`
}

// AdminHandler serves operator endpoints
type AdminHandler struct {
	introductions *service.IntroductionService
	sweeper       Sweeper
	gate          *security.AccessGate
	audit         *audit.Logger
	logger        *slog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	introductions *service.IntroductionService,
	sweeper Sweeper,
	gate *security.AccessGate,
	auditLog *audit.Logger,
	logger *slog.Logger,
) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{
		introductions: introductions,
		sweeper:       sweeper,
		gate:          gate,
		audit:         auditLog,
		logger:        logger,
	}
}

// GrantCredits handles POST /v1/admin/companies/{id}/credits
func (h *AdminHandler) GrantCredits(w http.ResponseWriter, r *http.Request) {
	id, err := requireIdentity(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var body GrantCreditsRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if body.Delta == 0 {
		writeError(w, r, h.logger, badRequest("delta must be non-zero"))
		return
	}

	companyID := r.PathValue("id")
	balance, err := h.introductions.GrantCredits(r.Context(), id, companyID, body.Delta, body.ExpectedPrior)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, GrantCreditsResponse{CompanyID: companyID, Balance: balance})
}

// Sweep handles POST /v1/admin/sweeps
func (h *AdminHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	id, err := requireIdentity(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.gate.Require(id, security.CapRunExpirySweep); err != nil {
		h.audit.LogDenied(r.Context(), id.CompanyID, id.PrincipalID, err.Error())
		writeError(w, r, h.logger, err)
		return
	}

	expired, err := h.sweeper.RunOnce(r.Context(), "manual")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.audit.LogAction(r.Context(), "", id.PrincipalID, "sweep", "introduction", "", "success", "")
	writeJSON(w, h.logger, http.StatusOK, SweepResponse{Expired: expired})
}
