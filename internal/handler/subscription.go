package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aryan0dhankhar/hirebridge/internal/domain"
	"github.com/aryan0dhankhar/hirebridge/internal/service"
)

// SubscriptionStatusResponse describes the caller's subscription entitlements
type SubscriptionStatusResponse struct {
	Tier             domain.Tier `json:"tier"`
	IsActive         bool        `json:"isActive"`
	ExpiresAt        *time.Time  `json:"expiresAt"`
	HasAIFeatures    bool        `json:"hasAiFeatures"`
	CreditsRemaining int         `json:"creditsRemaining"`
}

// FeatureResponse is returned when a feature is available
type FeatureResponse struct {
	Feature   domain.Feature `json:"feature"`
	Available bool           `json:"available"`
}

// SubscriptionHandler serves entitlement lookups
type SubscriptionHandler struct {
	entitlements *service.EntitlementService
	logger       *slog.Logger
}

// NewSubscriptionHandler creates a new subscription handler
func NewSubscriptionHandler(entitlements *service.EntitlementService, logger *slog.Logger) *SubscriptionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubscriptionHandler{entitlements: entitlements, logger: logger}
}

// Status handles GET /v1/subscription/status
func (h *SubscriptionHandler) Status(w http.ResponseWriter, r *http.Request) {
	id, err := requireIdentity(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	ent, err := h.entitlements.Resolve(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, SubscriptionStatusResponse{
		Tier:             ent.Tier,
		IsActive:         ent.IsActive,
		ExpiresAt:        ent.ExpiresAt,
		HasAIFeatures:    ent.HasAIFeatures,
		CreditsRemaining: ent.CreditsRemaining,
	})
}

// Feature handles GET /v1/subscription/features/{feature}. It answers 402 when the
// subscription does not cover the feature.
func (h *SubscriptionHandler) Feature(w http.ResponseWriter, r *http.Request) {
	id, err := requireIdentity(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	feature := domain.Feature(r.PathValue("feature"))
	if _, err := h.entitlements.RequireFeature(r.Context(), id, feature); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, FeatureResponse{Feature: feature, Available: true})
}
