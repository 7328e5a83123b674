package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aryan0dhankhar/hirebridge/internal/domain"
)

// Provider is the identity provider backed by signed tokens and the profile store.
// The token carries the principal's roles; the profile store holds the active role a
// dual-role principal last selected, which wins over the one baked into the token.
type Provider struct {
	tokens   *TokenManager
	profiles domain.ProfileRepository
	logger   *slog.Logger
}

func NewProvider(tokens *TokenManager, profiles domain.ProfileRepository, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{tokens: tokens, profiles: profiles, logger: logger}
}

func (p *Provider) Claims(ctx context.Context, token string) (domain.Claims, error) {
	parsed, err := p.tokens.ValidateToken(token)
	if err != nil {
		return domain.Claims{}, err
	}
	claims := parsed.Raw()
	if !claims.HasDualRole || p.profiles == nil {
		return claims, nil
	}

	role, ok, err := p.profiles.GetActiveRole(ctx, claims.Subject)
	if err != nil {
		return domain.Claims{}, fmt.Errorf("load active role: %w", err)
	}
	if ok {
		claims.ActiveRole = string(role)
	}
	return claims, nil
}

func (p *Provider) PersistActiveRole(ctx context.Context, principalID string, role domain.Role) error {
	if err := p.profiles.SaveActiveRole(ctx, principalID, role); err != nil {
		p.logger.Error("failed to persist active role",
			slog.String("principal_id", principalID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("persist active role: %w", err)
	}
	return nil
}
