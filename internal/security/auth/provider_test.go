package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aryan0dhankhar/hirebridge/internal/domain"
)

type fakeProfiles struct {
	active map[string]domain.Role
}

func (f *fakeProfiles) FindProfessional(ctx context.Context, id string) (*domain.Professional, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeProfiles) GetActiveRole(ctx context.Context, principalID string) (domain.Role, bool, error) {
	role, ok := f.active[principalID]
	return role, ok, nil
}

func (f *fakeProfiles) SaveActiveRole(ctx context.Context, principalID string, role domain.Role) error {
	f.active[principalID] = role
	return nil
}

func TestTokenRoundTripCarriesRoleClaims(t *testing.T) {
	tm := NewTokenManager("secret", "hirebridge-test")
	token, err := tm.GenerateToken(domain.Claims{
		Subject:     "hr-1",
		Role:        "hr_partner",
		HasDualRole: true,
		ActiveRole:  "professional",
		CompanyID:   "company-1",
	}, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	claims, err := tm.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken error: %v", err)
	}
	raw := claims.Raw()
	if raw.Subject != "hr-1" || raw.Role != "hr_partner" || !raw.HasDualRole || raw.ActiveRole != "professional" || raw.CompanyID != "company-1" {
		t.Fatalf("unexpected claims: %+v", raw)
	}
}

func TestValidateTokenRejectsForeignAndExpiredTokens(t *testing.T) {
	tm := NewTokenManager("secret", "hirebridge")
	other := NewTokenManager("other-secret", "hirebridge")

	token, _ := other.GenerateToken(domain.Claims{Subject: "p-1", Role: "professional"}, time.Hour)
	if _, err := tm.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for foreign signature, got %v", err)
	}

	expired, _ := tm.GenerateToken(domain.Claims{Subject: "p-1", Role: "professional"}, -time.Minute)
	if _, err := tm.ValidateToken(expired); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestExtractToken(t *testing.T) {
	if tok, err := ExtractToken("Bearer abc"); err != nil || tok != "abc" {
		t.Fatalf("ExtractToken=%q,%v", tok, err)
	}
	for _, header := range []string{"", "Bearer", "Basic abc", "Bearer a b"} {
		if _, err := ExtractToken(header); err == nil {
			t.Fatalf("expected error for header %q", header)
		}
	}
}

func TestProviderOverlaysPersistedActiveRole(t *testing.T) {
	tm := NewTokenManager("secret", "hirebridge")
	profiles := &fakeProfiles{active: map[string]domain.Role{}}
	provider := NewProvider(tm, profiles, nil)
	ctx := context.Background()

	token, _ := tm.GenerateToken(domain.Claims{Subject: "hr-1", Role: "hr_partner", HasDualRole: true, CompanyID: "c-1"}, time.Hour)

	claims, err := provider.Claims(ctx, token)
	if err != nil {
		t.Fatalf("Claims error: %v", err)
	}
	if claims.ActiveRole != "" {
		t.Fatalf("expected no active role before a switch, got %q", claims.ActiveRole)
	}

	if err := provider.PersistActiveRole(ctx, "hr-1", domain.RoleProfessional); err != nil {
		t.Fatalf("PersistActiveRole error: %v", err)
	}
	claims, err = provider.Claims(ctx, token)
	if err != nil {
		t.Fatalf("Claims error: %v", err)
	}
	if claims.ActiveRole != string(domain.RoleProfessional) {
		t.Fatalf("active role=%q want professional", claims.ActiveRole)
	}
}
