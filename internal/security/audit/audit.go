package audit

import (
	"context"
	"log/slog"
	"time"
)

type requestIDKey struct{}

// WithRequestID attaches a request ID to ctx for audit records
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request ID carried by ctx, if any
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// Logger writes audit records for security relevant actions
type Logger struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger.With(slog.String("channel", "audit")), now: time.Now}
}

func (al *Logger) LogAction(ctx context.Context, companyID, principalID, action, resource, resourceID, status, details string) {
	if al == nil {
		return
	}
	al.logger.InfoContext(ctx, "audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.String("company_id", companyID),
		slog.String("principal_id", principalID),
		slog.String("status", status),
		slog.String("details", details),
		slog.String("request_id", RequestID(ctx)),
		slog.Time("timestamp", al.now()),
	)
}

// LogTransition records an introduction request state change
func (al *Logger) LogTransition(ctx context.Context, companyID, principalID, requestID, event, status string) {
	al.LogAction(ctx, companyID, principalID, event, "introduction", requestID, status, "")
}

// LogCredits records an administrative credit adjustment
func (al *Logger) LogCredits(ctx context.Context, companyID, principalID, details string) {
	al.LogAction(ctx, companyID, principalID, "grant_credits", "company", companyID, "ok", details)
}

// LogRoleSwitch records an active role change
func (al *Logger) LogRoleSwitch(ctx context.Context, principalID, from, to string) {
	al.LogAction(ctx, "", principalID, "switch_active_role", "identity", principalID, "ok", from+" -> "+to)
}

func (al *Logger) LogDenied(ctx context.Context, companyID, principalID, reason string) {
	al.LogAction(ctx, companyID, principalID, "access_denied", "api", "", "denied", reason)
}
