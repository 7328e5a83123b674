package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/aryan0dhankhar/hirebridge/internal/domain"
	"github.com/aryan0dhankhar/hirebridge/internal/service"
)

// maxListLimit caps page sizes requested by clients
const maxListLimit = 200

// IntroductionResponse is the wire form of an introduction request
type IntroductionResponse struct {
	ID             string              `json:"id"`
	CompanyID      string              `json:"companyId"`
	ProfessionalID string              `json:"professionalId"`
	JobRoleID      string              `json:"jobRoleId,omitempty"`
	State          domain.RequestState `json:"state"`
	CreatedAt      time.Time           `json:"createdAt"`
	ExpiresAt      time.Time           `json:"expiresAt"`
	DecidedAt      *time.Time          `json:"decidedAt,omitempty"`
}

func toIntroductionResponse(req *domain.IntroductionRequest) IntroductionResponse {
	return IntroductionResponse{
		ID:             req.ID,
		CompanyID:      req.CompanyID,
		ProfessionalID: req.ProfessionalID,
		JobRoleID:      req.JobRoleID,
		State:          req.State,
		CreatedAt:      req.CreatedAt,
		ExpiresAt:      req.ExpiresAt,
		DecidedAt:      req.DecidedAt,
	}
}

// IntroductionHandler serves the introduction request lifecycle
type IntroductionHandler struct {
	introductions *service.IntroductionService
	logger        *slog.Logger
}

// NewIntroductionHandler creates a new introduction handler
func NewIntroductionHandler(introductions *service.IntroductionService, logger *slog.Logger) *IntroductionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &IntroductionHandler{introductions: introductions, logger: logger}
}

// Create handles POST /v1/introductions
func (h *IntroductionHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, err := requireIdentity(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var in service.CreateIntroductionInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if in.ProfessionalID == "" {
		writeError(w, r, h.logger, badRequest("professionalId is required"))
		return
	}

	req, err := h.introductions.Create(r.Context(), id, in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, toIntroductionResponse(req))
}

// List handles GET /v1/introductions?box=sent|received&state=&limit=
func (h *IntroductionHandler) List(w http.ResponseWriter, r *http.Request) {
	id, err := requireIdentity(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	query := r.URL.Query()
	box := service.Box(query.Get("box"))
	if box == "" {
		box = service.BoxReceived
		if id.HasCompany() && id.EffectiveRole() == domain.RoleHrPartner {
			box = service.BoxSent
		}
	}
	if box != service.BoxSent && box != service.BoxReceived {
		writeError(w, r, h.logger, badRequest("box must be sent or received"))
		return
	}

	state := domain.RequestState(query.Get("state"))
	switch state {
	case "", domain.StatePending, domain.StateAccepted, domain.StateDeclined, domain.StateExpired, domain.StateWithdrawn:
	default:
		writeError(w, r, h.logger, badRequest("unknown state %q", state))
		return
	}

	limit := 50
	if raw := query.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeError(w, r, h.logger, badRequest("limit must be a positive integer"))
			return
		}
		if limit > maxListLimit {
			limit = maxListLimit
		}
	}

	reqs, err := h.introductions.List(r.Context(), id, box, state, limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	items := make([]IntroductionResponse, 0, len(reqs))
	for _, req := range reqs {
		items = append(items, toIntroductionResponse(req))
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]any{
		"box":           box,
		"introductions": items,
	})
}

// Get handles GET /v1/introductions/{id}
func (h *IntroductionHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.introductions.Get)
}

// Accept handles POST /v1/introductions/{id}/accept
func (h *IntroductionHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.introductions.Accept)
}

// Decline handles POST /v1/introductions/{id}/decline
func (h *IntroductionHandler) Decline(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.introductions.Decline)
}

// Withdraw handles POST /v1/introductions/{id}/withdraw
func (h *IntroductionHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.introductions.Withdraw)
}

type requestOp func(ctx context.Context, id domain.Identity, requestID string) (*domain.IntroductionRequest, error)

func (h *IntroductionHandler) respond(w http.ResponseWriter, r *http.Request, op requestOp) {
	id, err := requireIdentity(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	requestID := r.PathValue("id")
	if requestID == "" {
		writeError(w, r, h.logger, badRequest("missing introduction id"))
		return
	}

	req, err := op(r.Context(), id, requestID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, toIntroductionResponse(req))
}
