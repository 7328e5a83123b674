package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/hirebridge/internal/domain"
)

// DefaultEntitlements is returned for identities without a company. It means
// "not an HR context", never "unlimited".
func DefaultEntitlements() domain.Entitlements {
	return domain.Entitlements{
		Tier:             domain.TierTrial,
		IsActive:         true,
		CreditsRemaining: 0,
		HasAIFeatures:    false,
		HRContext:        false,
	}
}

// Evaluate derives entitlements from a company's subscription state at now.
// A subscription expiring exactly at now is inactive.
func Evaluate(company *domain.Company, now time.Time) domain.Entitlements {
	isActive := company.SubscriptionExpiresAt == nil || company.SubscriptionExpiresAt.After(now)
	return domain.Entitlements{
		Tier:             company.Tier,
		IsActive:         isActive,
		ExpiresAt:        company.SubscriptionExpiresAt,
		CreditsRemaining: company.IntroductionCredits,
		HasAIFeatures:    company.Tier == domain.TierProfessional || company.Tier == domain.TierEnterprise,
		HRContext:        true,
	}
}

// EntitlementService resolves subscription entitlements for identities
type EntitlementService struct {
	companies domain.CompanyRepository
	now       func() time.Time
	logger    *slog.Logger
}

// NewEntitlementService creates a new entitlement service
func NewEntitlementService(companies domain.CompanyRepository, logger *slog.Logger) *EntitlementService {
	if logger == nil {
		logger = slog.Default()
	}
	return &EntitlementService{companies: companies, now: time.Now, logger: logger}
}

// WithClock replaces the time source
func (s *EntitlementService) WithClock(now func() time.Time) *EntitlementService {
	s.now = now
	return s
}

// Resolve loads the identity's company and evaluates it. The result is never cached.
func (s *EntitlementService) Resolve(ctx context.Context, id domain.Identity) (domain.Entitlements, error) {
	if !id.HasCompany() {
		return DefaultEntitlements(), nil
	}
	company, err := s.companies.FindCompany(ctx, id.CompanyID)
	if err != nil {
		return domain.Entitlements{}, fmt.Errorf("resolve entitlements: %w", err)
	}
	return Evaluate(company, s.now()), nil
}

// RequireFeature returns ErrUpgradeRequired unless the identity's subscription covers feature
func (s *EntitlementService) RequireFeature(ctx context.Context, id domain.Identity, feature domain.Feature) (domain.Entitlements, error) {
	ent, err := s.Resolve(ctx, id)
	if err != nil {
		return ent, err
	}

	allowed := ent.HRContext && ent.IsActive
	switch feature {
	case domain.FeatureAI:
		allowed = allowed && ent.HasAIFeatures
	case domain.FeatureIntroduction:
	default:
		return ent, fmt.Errorf("unknown feature %q: %w", feature, domain.ErrNotFound)
	}
	if !allowed {
		s.logger.Info("feature requires upgrade",
			slog.String("principal_id", id.PrincipalID),
			slog.String("company_id", id.CompanyID),
			slog.String("feature", string(feature)),
			slog.String("tier", string(ent.Tier)),
			slog.Bool("active", ent.IsActive),
		)
		return ent, fmt.Errorf("%s: %w", feature, domain.ErrUpgradeRequired)
	}
	return ent, nil
}
