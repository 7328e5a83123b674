package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/hirebridge/internal/domain"
	"github.com/aryan0dhankhar/hirebridge/internal/reliability/circuitbreaker"
	"github.com/aryan0dhankhar/hirebridge/internal/security"
	"github.com/aryan0dhankhar/hirebridge/internal/security/middleware"
)

// ErrorResponse is the body of every non-2xx JSON response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), errBadRequest)
}

// statusFor maps an error to its HTTP status and a stable machine-readable code
func statusFor(err error) (int, string) {
	var identityErr *domain.IdentityError
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, security.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.As(err, &identityErr):
		return http.StatusUnauthorized, "invalid_identity"
	case errors.Is(err, domain.ErrUpgradeRequired):
		return http.StatusPaymentRequired, "upgrade_required"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrInsufficientCredits):
		return http.StatusConflict, "insufficient_credits"
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, domain.ErrBalanceChanged):
		return http.StatusConflict, "balance_changed"
	case errors.Is(err, circuitbreaker.ErrOpen):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeJSON(w http.ResponseWriter, log *slog.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeError renders err. Internal errors are logged and never echoed to the caller.
func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status, code := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		message = "internal error"
	}
	writeJSON(w, log, status, ErrorResponse{Error: message, Code: code})
}

// requireIdentity returns the identity resolved by the authentication middleware
func requireIdentity(r *http.Request) (domain.Identity, error) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		return domain.Identity{}, &security.AuthorizationError{Reason: "unauthenticated"}
	}
	return id, nil
}

// decodeJSON strictly decodes the request body into dst
func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("request body is required")
		}
		return badRequest("invalid JSON: %s", err.Error())
	}
	return nil
}
