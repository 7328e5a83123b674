package security

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/aryan0dhankhar/hirebridge/internal/domain"
	"github.com/aryan0dhankhar/hirebridge/internal/observability/metrics"
)

// ErrUnauthorized matches every AuthorizationError
var ErrUnauthorized = errors.New("not permitted")

// AuthorizationError is an access denial. It is never a soft no-op:
// callers surface it as an authorization failure.
type AuthorizationError struct {
	PrincipalID   string
	EffectiveRole domain.Role
	Capability    Capability
	Reason        string
}

func (e *AuthorizationError) Error() string {
	if e.Capability != "" {
		return fmt.Sprintf("permission denied: %s role cannot %s", e.EffectiveRole, e.Capability)
	}
	return fmt.Sprintf("permission denied: %s", e.Reason)
}

func (e *AuthorizationError) Is(target error) bool {
	return target == ErrUnauthorized
}

// ConfigurationError reports an inconsistent capability table. It is fatal at start-up.
type ConfigurationError struct {
	Detail string
}

func (e *ConfigurationError) Error() string {
	return "authorization configuration: " + e.Detail
}

// Decision is the outcome of an access check
type Decision struct {
	Allowed       bool
	EffectiveRole domain.Role
	Capability    Capability
	Reason        string
}

// AccessGate decides whether an identity holds a capability
type AccessGate struct {
	catalog *Catalog
	logger  *slog.Logger
}

// NewAccessGate creates a new access gate
func NewAccessGate(catalog *Catalog, logger *slog.Logger) *AccessGate {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccessGate{
		catalog: catalog,
		logger:  logger,
	}
}

// Catalog returns the catalog backing the gate
func (g *AccessGate) Catalog() *Catalog {
	return g.catalog
}

// Check resolves the effective role of identity and looks up capability.
// Admin is allowed unconditionally.
func (g *AccessGate) Check(identity domain.Identity, capability Capability) Decision {
	if identity.IsAdmin() {
		return Decision{Allowed: true, EffectiveRole: domain.RoleAdmin, Capability: capability}
	}

	effective := identity.EffectiveRole()
	if effective == "" {
		return Decision{Capability: capability, Reason: "identity has no role"}
	}
	if !g.catalog.Grants(effective, capability) {
		return Decision{
			EffectiveRole: effective,
			Capability:    capability,
			Reason:        fmt.Sprintf("%s role lacks %s", effective, capability),
		}
	}
	return Decision{Allowed: true, EffectiveRole: effective, Capability: capability}
}

// Require is Check returning an AuthorizationError on denial
func (g *AccessGate) Require(identity domain.Identity, capability Capability) error {
	d := g.Check(identity, capability)
	if d.Allowed {
		metrics.ObserveAuthorization(string(capability), "allowed")
		return nil
	}

	metrics.ObserveAuthorization(string(capability), "denied")
	g.logger.Warn("permission denied",
		slog.String("principal_id", identity.PrincipalID),
		slog.String("role", string(d.EffectiveRole)),
		slog.String("capability", string(capability)),
	)
	return &AuthorizationError{
		PrincipalID:   identity.PrincipalID,
		EffectiveRole: d.EffectiveRole,
		Capability:    capability,
		Reason:        d.Reason,
	}
}

// Capabilities lists what identity can currently do
func (g *AccessGate) Capabilities(identity domain.Identity) []Capability {
	if identity.IsAdmin() {
		return g.catalog.All()
	}
	caps, err := g.catalog.CapabilitiesFor(identity.EffectiveRole())
	if err != nil {
		return nil
	}
	return caps
}
