package domain

import (
	"context"
	"time"
)

// Tier is a company subscription tier
type Tier string

const (
	TierTrial        Tier = "trial"
	TierBasic        Tier = "basic"
	TierProfessional Tier = "professional"
	TierEnterprise   Tier = "enterprise"
)

// Tiers lists every subscription tier
var Tiers = []Tier{TierTrial, TierBasic, TierProfessional, TierEnterprise}

// Valid reports whether the tier is defined
func (t Tier) Valid() bool {
	for _, known := range Tiers {
		if t == known {
			return true
		}
	}
	return false
}

// Company represents an HR partner organization and its subscription state
type Company struct {
	ID                    string
	Name                  string
	Tier                  Tier
	SubscriptionExpiresAt *time.Time // nil means non-expiring
	IntroductionCredits   int
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Feature is an entitlement-gated product feature
type Feature string

const (
	FeatureAI           Feature = "ai"
	FeatureIntroduction Feature = "introductions"
)

// Entitlements are derived from a company's subscription state
type Entitlements struct {
	Tier             Tier
	IsActive         bool
	ExpiresAt        *time.Time
	CreditsRemaining int
	HasAIFeatures    bool
	HRContext        bool // false for the default returned to identities without a company
}

// CompanyRepository defines data access for companies
type CompanyRepository interface {
	FindCompany(ctx context.Context, id string) (*Company, error)
	// UpdateCompanyCredits applies delta atomically. When expectedPrior is set the update only
	// applies if the current balance equals it. The balance never goes below zero.
	UpdateCompanyCredits(ctx context.Context, id string, delta int, expectedPrior *int) (int, error)
}
