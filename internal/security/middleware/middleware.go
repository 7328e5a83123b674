package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aryan0dhankhar/hirebridge/internal/domain"
	"github.com/aryan0dhankhar/hirebridge/internal/identity"
	"github.com/aryan0dhankhar/hirebridge/internal/observability/metrics"
	"github.com/aryan0dhankhar/hirebridge/internal/security/audit"
	"github.com/aryan0dhankhar/hirebridge/internal/security/auth"
	"github.com/aryan0dhankhar/hirebridge/internal/security/ratelimit"
)

// RequestIDHeader carries the request correlation ID
const RequestIDHeader = "X-Request-ID"

type identityContextKey struct{}

// WithIdentity stores a resolved identity in ctx
func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext returns the identity resolved by Authenticate
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(domain.Identity)
	return id, ok
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message, "code": code})
}

// bearerToken reads the Authorization header. Browsers cannot set headers on websocket
// upgrades, so those may pass the token as ?token= instead.
func bearerToken(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		return auth.ExtractToken(header)
	}
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		if token := r.URL.Query().Get("token"); token != "" {
			return token, nil
		}
	}
	return "", errors.New("missing auth")
}

// Authenticate validates the bearer token with provider, resolves the identity and stores it
// in the request context. Every failure is a 401.
func Authenticate(provider domain.IdentityProvider, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
				return
			}

			claims, err := provider.Claims(r.Context(), token)
			if err != nil {
				log.Warn("token rejected",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
				return
			}

			id, err := identity.Resolve(claims)
			if err != nil {
				log.Warn("malformed identity claims",
					slog.String("subject", claims.Subject),
					slog.String("error", err.Error()),
				)
				writeError(w, http.StatusUnauthorized, "invalid_identity", err.Error())
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RateLimit rejects callers over their quota with 429. Callers are keyed by principal,
// or by client address before authentication.
func RateLimit(limiter ratelimit.Allower, backend string, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)
			if !limiter.Allow(key) {
				metrics.ObserveRateLimited(backend)
				log.Warn("rate limit exceeded",
					slog.String("key", key),
					slog.String("path", r.URL.Path),
				)
				writeError(w, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	if id, ok := IdentityFromContext(r.Context()); ok {
		return "principal:" + id.PrincipalID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "addr:" + host
}

// RequestID attaches a request ID to the context, the audit trail and the response headers,
// and logs each completed request
func RequestID(log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(RequestIDHeader)
			if reqID == "" || len(reqID) > 64 {
				reqID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, reqID)

			start := time.Now()
			next.ServeHTTP(w, r.WithContext(audit.WithRequestID(r.Context(), reqID)))

			log.Info("request completed",
				slog.String("request_id", reqID),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// CORS honors the configured origins. The first configured origin is echoed for
// unknown callers.
func CORS(allowed []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if originAllowed(allowed, origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
			} else if len(allowed) > 0 {
				w.Header().Set("Access-Control-Allow-Origin", allowed[0])
			}
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization, X-Request-ID")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}
