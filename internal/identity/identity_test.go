package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/aryan0dhankhar/hirebridge/internal/domain"
)

type recordingProvider struct {
	persisted []domain.Role
	err       error
}

func (p *recordingProvider) Claims(ctx context.Context, token string) (domain.Claims, error) {
	return domain.Claims{}, nil
}

func (p *recordingProvider) PersistActiveRole(ctx context.Context, principalID string, role domain.Role) error {
	if p.err != nil {
		return p.err
	}
	p.persisted = append(p.persisted, role)
	return nil
}

func TestResolve(t *testing.T) {
	cases := []struct {
		name       string
		claims     domain.Claims
		wantRole   domain.Role
		wantActive domain.Role
		wantDual   bool
		wantCo     string
	}{
		{
			name:     "professional",
			claims:   domain.Claims{Subject: "p-1", Role: "Professional", CompanyID: "ignored"},
			wantRole: domain.RoleProfessional, wantActive: domain.RoleProfessional,
		},
		{
			name:     "hr partner keeps company",
			claims:   domain.Claims{Subject: "h-1", Role: "HR_PARTNER", CompanyID: "c-1"},
			wantRole: domain.RoleHrPartner, wantActive: domain.RoleHrPartner, wantCo: "c-1",
		},
		{
			name:     "active role without dual flag is ignored",
			claims:   domain.Claims{Subject: "h-2", Role: "hr_partner", ActiveRole: "professional", CompanyID: "c-1"},
			wantRole: domain.RoleHrPartner, wantActive: domain.RoleHrPartner, wantCo: "c-1",
		},
		{
			name:     "dual role defaults active to primary",
			claims:   domain.Claims{Subject: "d-1", Role: "hr_partner", HasDualRole: true, CompanyID: "c-2"},
			wantRole: domain.RoleHrPartner, wantActive: domain.RoleHrPartner, wantDual: true, wantCo: "c-2",
		},
		{
			name:     "dual role with professional active",
			claims:   domain.Claims{Subject: "d-2", Role: "hr-partner", HasDualRole: true, ActiveRole: "PROFESSIONAL", CompanyID: "c-2"},
			wantRole: domain.RoleHrPartner, wantActive: domain.RoleProfessional, wantDual: true, wantCo: "c-2",
		},
		{
			name:     "admin",
			claims:   domain.Claims{Subject: "a-1", Role: "admin"},
			wantRole: domain.RoleAdmin, wantActive: domain.RoleAdmin,
		},
	}

	for _, tc := range cases {
		id, err := Resolve(tc.claims)
		if err != nil {
			t.Fatalf("%s: Resolve error: %v", tc.name, err)
		}
		if id.Role() != tc.wantRole || id.EffectiveRole() != tc.wantActive || id.HasDualRole() != tc.wantDual || id.CompanyID != tc.wantCo {
			t.Fatalf("%s: got role=%s effective=%s dual=%v company=%q", tc.name, id.Role(), id.EffectiveRole(), id.HasDualRole(), id.CompanyID)
		}
	}
}

func TestResolveRejectsMalformedClaims(t *testing.T) {
	if _, err := Resolve(domain.Claims{Subject: "x", Role: "recruiter"}); !errors.Is(err, domain.ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
	if _, err := Resolve(domain.Claims{Subject: "x", Role: "hr_partner", HasDualRole: true, ActiveRole: "boss"}); !errors.Is(err, domain.ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole for active role, got %v", err)
	}

	var idErr *domain.IdentityError
	if _, err := Resolve(domain.Claims{Role: "professional"}); !errors.As(err, &idErr) || idErr.Kind != domain.IdentityErrMissingSubject {
		t.Fatalf("expected missing subject error, got %v", err)
	}
	if _, err := Resolve(domain.Claims{Subject: "x", Role: "admin", HasDualRole: true}); !errors.As(err, &idErr) {
		t.Fatalf("expected admin dual role to be rejected, got %v", err)
	}
}

func TestSwitchActiveRole(t *testing.T) {
	provider := &recordingProvider{}
	switcher := NewSwitcher(provider, nil, nil)
	ctx := context.Background()

	id, err := Resolve(domain.Claims{Subject: "d-1", Role: "hr_partner", HasDualRole: true, CompanyID: "c-1"})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}

	switched, err := switcher.SwitchActiveRole(ctx, id, domain.RoleProfessional)
	if err != nil {
		t.Fatalf("SwitchActiveRole error: %v", err)
	}
	if switched.EffectiveRole() != domain.RoleProfessional {
		t.Fatalf("effective=%s want professional", switched.EffectiveRole())
	}

	again, err := switcher.SwitchActiveRole(ctx, switched, domain.RoleProfessional)
	if err != nil {
		t.Fatalf("idempotent switch error: %v", err)
	}
	if again.EffectiveRole() != domain.RoleProfessional {
		t.Fatalf("effective=%s want professional", again.EffectiveRole())
	}
	if len(provider.persisted) != 1 {
		t.Fatalf("persisted %d times, want 1", len(provider.persisted))
	}
}

func TestSwitchActiveRoleRequiresDualRole(t *testing.T) {
	switcher := NewSwitcher(&recordingProvider{}, nil, nil)
	id, _ := Resolve(domain.Claims{Subject: "p-1", Role: "professional"})
	if _, err := switcher.SwitchActiveRole(context.Background(), id, domain.RoleHrPartner); !errors.Is(err, domain.ErrNotDualRole) {
		t.Fatalf("expected ErrNotDualRole, got %v", err)
	}

	dual, _ := Resolve(domain.Claims{Subject: "d-1", Role: "hr_partner", HasDualRole: true})
	if _, err := switcher.SwitchActiveRole(context.Background(), dual, domain.RoleAdmin); err == nil {
		t.Fatal("expected switching to admin to fail")
	}
}

func TestSwitchActiveRolePropagatesProviderError(t *testing.T) {
	boom := errors.New("profile store down")
	switcher := NewSwitcher(&recordingProvider{err: boom}, nil, nil)
	dual, _ := Resolve(domain.Claims{Subject: "d-1", Role: "hr_partner", HasDualRole: true})

	got, err := switcher.SwitchActiveRole(context.Background(), dual, domain.RoleProfessional)
	if !errors.Is(err, boom) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if got.EffectiveRole() != domain.RoleHrPartner {
		t.Fatal("expected identity to be unchanged on failure")
	}
}
