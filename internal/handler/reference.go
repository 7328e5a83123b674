package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/aryan0dhankhar/hirebridge/internal/service"
)

// ReferenceHandler serves onboarding reference data
type ReferenceHandler struct {
	reference *service.ReferenceService
	logger    *slog.Logger
}

// NewReferenceHandler creates a new reference data handler
func NewReferenceHandler(reference *service.ReferenceService, logger *slog.Logger) *ReferenceHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReferenceHandler{reference: reference, logger: logger}
}

// Regions handles GET /v1/reference/regions
func (h *ReferenceHandler) Regions(w http.ResponseWriter, r *http.Request) {
	regions, err := h.reference.Regions(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]any{"regions": regions})
}

// Cities handles GET /v1/reference/regions/{code}/cities
func (h *ReferenceHandler) Cities(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(strings.TrimSpace(r.PathValue("code")))
	if code == "" {
		writeError(w, r, h.logger, badRequest("missing region code"))
		return
	}
	cities, err := h.reference.Cities(r.Context(), code)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]any{"region": code, "cities": cities})
}
