// Package identity turns identity provider claims into a normalized domain.Identity.
package identity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aryan0dhankhar/hirebridge/internal/domain"
	"github.com/aryan0dhankhar/hirebridge/internal/security/audit"
)

// Resolve derives an Identity from claims. It has no side effects and nothing is cached:
// callers resolve again on every request.
func Resolve(claims domain.Claims) (domain.Identity, error) {
	if claims.Subject == "" {
		return domain.Identity{}, &domain.IdentityError{Kind: domain.IdentityErrMissingSubject}
	}

	primary, err := domain.ParseRole(claims.Role)
	if err != nil {
		return domain.Identity{}, err
	}

	id := domain.Identity{PrincipalID: claims.Subject}

	if !claims.HasDualRole {
		// an active role without the dual-role flag carries no meaning
		id.Roles = domain.NewSingleRole(primary)
		if primary == domain.RoleHrPartner {
			id.CompanyID = claims.CompanyID
		}
		return id, nil
	}

	active := primary
	if claims.ActiveRole != "" {
		active, err = domain.ParseRole(claims.ActiveRole)
		if err != nil {
			return domain.Identity{}, err
		}
	}
	binding, err := domain.NewDualRole(primary, active)
	if err != nil {
		return domain.Identity{}, err
	}
	id.Roles = binding
	id.CompanyID = claims.CompanyID
	return id, nil
}

// Switcher changes the active role of dual-role principals
type Switcher struct {
	provider domain.IdentityProvider
	audit    *audit.Logger
	logger   *slog.Logger
}

func NewSwitcher(provider domain.IdentityProvider, auditLog *audit.Logger, logger *slog.Logger) *Switcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Switcher{provider: provider, audit: auditLog, logger: logger}
}

// SwitchActiveRole persists role as the active role of id and returns the re-derived identity.
// Switching to the role that is already active is a no-op.
func (s *Switcher) SwitchActiveRole(ctx context.Context, id domain.Identity, role domain.Role) (domain.Identity, error) {
	current, ok := id.ActiveRole()
	if !ok {
		return id, &domain.IdentityError{Kind: domain.IdentityErrNotDualRole, Value: id.PrincipalID}
	}

	next, err := id.WithActiveRole(role)
	if err != nil {
		return id, err
	}
	if current == role {
		return next, nil
	}

	if err := s.provider.PersistActiveRole(ctx, id.PrincipalID, role); err != nil {
		return id, fmt.Errorf("switch active role: %w", err)
	}

	s.logger.Info("active role switched",
		slog.String("principal_id", id.PrincipalID),
		slog.String("from", string(current)),
		slog.String("to", string(role)),
	)
	s.audit.LogRoleSwitch(ctx, id.PrincipalID, string(current), string(role))
	return next, nil
}
