package handler

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aryan0dhankhar/hirebridge/internal/domain"
	"github.com/aryan0dhankhar/hirebridge/internal/events"
	"github.com/aryan0dhankhar/hirebridge/internal/identity"
	"github.com/aryan0dhankhar/hirebridge/internal/observability/metrics"
	"github.com/aryan0dhankhar/hirebridge/internal/security"
	"github.com/aryan0dhankhar/hirebridge/internal/security/audit"
	"github.com/aryan0dhankhar/hirebridge/internal/security/middleware"
	"github.com/aryan0dhankhar/hirebridge/internal/security/ratelimit"
	"github.com/aryan0dhankhar/hirebridge/internal/service"
)

// Dependencies are the collaborators the HTTP surface is built from
type Dependencies struct {
	Provider       domain.IdentityProvider
	Gate           *security.AccessGate
	Limiter        ratelimit.Allower
	LimiterBackend string
	Entitlements   *service.EntitlementService
	Introductions  *service.IntroductionService
	Reference      *service.ReferenceService
	Switcher       *identity.Switcher
	Sweeper        Sweeper
	Hub            *events.Hub
	Audit          *audit.Logger
	Health         map[string]Pinger
	AllowedOrigins []string
	Logger         *slog.Logger
}

// NewRouter builds the HTTP handler: request ID -> CORS -> content checks -> metrics -> mux,
// with authentication and rate limiting applied per route
func NewRouter(deps Dependencies) http.Handler {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	subscription := NewSubscriptionHandler(deps.Entitlements, log)
	introductions := NewIntroductionHandler(deps.Introductions, log)
	identityHandler := NewIdentityHandler(deps.Switcher, deps.Gate, log)
	admin := NewAdminHandler(deps.Introductions, deps.Sweeper, deps.Gate, deps.Audit, log)
	eventsHandler := NewEventsHandler(deps.Hub, deps.Gate, log, deps.AllowedOrigins)
	reference := NewReferenceHandler(deps.Reference, log)
	health := NewHealthHandler(deps.Health, log)

	authenticate := middleware.Authenticate(deps.Provider, log)
	limit := middleware.RateLimit(deps.Limiter, deps.LimiterBackend, log)
	protected := func(h http.HandlerFunc) http.Handler {
		return authenticate(limit(h))
	}

	mux := http.NewServeMux()
	mux.Handle("GET /v1/subscription/status", protected(subscription.Status))
	mux.Handle("GET /v1/subscription/features/{feature}", protected(subscription.Feature))

	mux.Handle("POST /v1/introductions", protected(introductions.Create))
	mux.Handle("GET /v1/introductions", protected(introductions.List))
	mux.Handle("GET /v1/introductions/events", protected(eventsHandler.ServeHTTP))
	mux.Handle("GET /v1/introductions/{id}", protected(introductions.Get))
	mux.Handle("POST /v1/introductions/{id}/accept", protected(introductions.Accept))
	mux.Handle("POST /v1/introductions/{id}/decline", protected(introductions.Decline))
	mux.Handle("POST /v1/introductions/{id}/withdraw", protected(introductions.Withdraw))

	mux.Handle("GET /v1/identity", protected(identityHandler.Get))
	mux.Handle("POST /v1/identity/active-role", protected(identityHandler.SetActiveRole))

	mux.Handle("POST /v1/admin/companies/{id}/credits", protected(admin.GrantCredits))
	mux.Handle("POST /v1/admin/sweeps", protected(admin.Sweep))

	mux.Handle("GET /v1/reference/regions", limit(http.HandlerFunc(reference.Regions)))
	mux.Handle("GET /v1/reference/regions/{code}/cities", limit(http.HandlerFunc(reference.Cities)))

	mux.HandleFunc("GET /healthz", health.Health)
	mux.HandleFunc("GET /readyz", health.Ready)
	mux.Handle("GET /metrics", promhttp.Handler())

	var root http.Handler = metrics.HTTPMetricsMiddleware(mux)
	root = middleware.LimitBody(middleware.DefaultMaxBodyBytes)(root)
	root = middleware.ValidateJSONContentType(log)(root)
	root = middleware.CORS(deps.AllowedOrigins)(root)
	root = middleware.RequestID(log)(root)
	return root
}
