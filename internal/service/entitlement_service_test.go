package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aryan0dhankhar/hirebridge/internal/domain"
	"github.com/aryan0dhankhar/hirebridge/internal/repository/memory"
)

func TestEvaluateAIFeaturesFollowTier(t *testing.T) {
	now := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	want := map[domain.Tier]bool{
		domain.TierTrial:        false,
		domain.TierBasic:        false,
		domain.TierProfessional: true,
		domain.TierEnterprise:   true,
	}
	for _, tier := range domain.Tiers {
		ent := Evaluate(&domain.Company{ID: "c", Tier: tier, IntroductionCredits: 3}, now)
		if ent.HasAIFeatures != want[tier] {
			t.Fatalf("tier %s: HasAIFeatures=%v want %v", tier, ent.HasAIFeatures, want[tier])
		}
		if ent.CreditsRemaining != 3 || !ent.HRContext {
			t.Fatalf("tier %s: unexpected entitlements %+v", tier, ent)
		}
	}
}

func TestEvaluateActiveBoundary(t *testing.T) {
	now := time.Date(2026, time.April, 1, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		v := now.Add(d)
		return &v
	}
	cases := []struct {
		name    string
		expires *time.Time
		active  bool
	}{
		{name: "non-expiring", expires: nil, active: true},
		{name: "future", expires: at(time.Nanosecond), active: true},
		{name: "equal to now", expires: at(0), active: false},
		{name: "past", expires: at(-time.Hour), active: false},
	}
	for _, tc := range cases {
		ent := Evaluate(&domain.Company{Tier: domain.TierBasic, SubscriptionExpiresAt: tc.expires}, now)
		if ent.IsActive != tc.active {
			t.Fatalf("%s: IsActive=%v want %v", tc.name, ent.IsActive, tc.active)
		}
	}
}

func TestResolveWithoutCompanyReturnsDefault(t *testing.T) {
	svc := NewEntitlementService(memory.New(), nil)
	pro := domain.Identity{PrincipalID: "p-1", Roles: domain.NewSingleRole(domain.RoleProfessional)}

	ent, err := svc.Resolve(context.Background(), pro)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if ent != DefaultEntitlements() {
		t.Fatalf("expected default entitlements, got %+v", ent)
	}
	if ent.Tier != domain.TierTrial || !ent.IsActive || ent.HasAIFeatures || ent.CreditsRemaining != 0 || ent.HRContext {
		t.Fatalf("unexpected default entitlements %+v", ent)
	}

	if _, err := svc.RequireFeature(context.Background(), pro, domain.FeatureIntroduction); !errors.Is(err, domain.ErrUpgradeRequired) {
		t.Fatalf("expected default entitlements not to unlock introductions, got %v", err)
	}
}

func TestRequireFeature(t *testing.T) {
	now := time.Date(2026, time.April, 1, 12, 0, 0, 0, time.UTC)
	expired := now.Add(-time.Minute)
	store := memory.New()
	ctx := context.Background()
	for _, c := range []*domain.Company{
		{ID: "basic", Tier: domain.TierBasic},
		{ID: "enterprise", Tier: domain.TierEnterprise},
		{ID: "lapsed", Tier: domain.TierEnterprise, SubscriptionExpiresAt: &expired},
	} {
		if err := store.SaveCompany(ctx, c); err != nil {
			t.Fatalf("SaveCompany: %v", err)
		}
	}
	svc := NewEntitlementService(store, nil).WithClock(func() time.Time { return now })

	hr := func(company string) domain.Identity {
		return domain.Identity{PrincipalID: "hr", CompanyID: company, Roles: domain.NewSingleRole(domain.RoleHrPartner)}
	}

	if _, err := svc.RequireFeature(ctx, hr("basic"), domain.FeatureAI); !errors.Is(err, domain.ErrUpgradeRequired) {
		t.Fatalf("basic: expected ErrUpgradeRequired, got %v", err)
	}
	if _, err := svc.RequireFeature(ctx, hr("enterprise"), domain.FeatureAI); err != nil {
		t.Fatalf("enterprise: unexpected error %v", err)
	}
	if _, err := svc.RequireFeature(ctx, hr("lapsed"), domain.FeatureAI); !errors.Is(err, domain.ErrUpgradeRequired) {
		t.Fatalf("lapsed: expected ErrUpgradeRequired, got %v", err)
	}
	if _, err := svc.RequireFeature(ctx, hr("basic"), domain.FeatureIntroduction); err != nil {
		t.Fatalf("basic introductions: unexpected error %v", err)
	}
	if _, err := svc.Resolve(ctx, hr("missing")); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing company: expected ErrNotFound, got %v", err)
	}
}
