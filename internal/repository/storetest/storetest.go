// Package storetest is a behavioural suite every domain.Store implementation must pass.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aryan0dhankhar/hirebridge/internal/domain"
)

// Opener returns a fresh, empty store for one test
type Opener func(t *testing.T) domain.Store

var base = time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)

// Run executes the suite against stores produced by open
func Run(t *testing.T, open Opener) {
	t.Run("companies", func(t *testing.T) { testCompanies(t, open(t)) })
	t.Run("credit_adjustments", func(t *testing.T) { testCreditAdjustments(t, open(t)) })
	t.Run("create_reserves_credit", func(t *testing.T) { testCreateReservesCredit(t, open(t)) })
	t.Run("concurrent_create", func(t *testing.T) { testConcurrentCreate(t, open(t)) })
	t.Run("state_change", func(t *testing.T) { testStateChange(t, open(t)) })
	t.Run("pending_expired", func(t *testing.T) { testPendingExpired(t, open(t)) })
	t.Run("listing", func(t *testing.T) { testListing(t, open(t)) })
	t.Run("active_role", func(t *testing.T) { testActiveRole(t, open(t)) })
	t.Run("reference_data", func(t *testing.T) { testReferenceData(t, open(t)) })
}

func seed(t *testing.T, s domain.Store, companyID string, credits int, professionals ...string) {
	t.Helper()
	ctx := context.Background()
	if err := s.SaveCompany(ctx, &domain.Company{
		ID:                  companyID,
		Name:                "Company " + companyID,
		Tier:                domain.TierProfessional,
		IntroductionCredits: credits,
	}); err != nil {
		t.Fatalf("SaveCompany(%s): %v", companyID, err)
	}
	for _, id := range professionals {
		if err := s.SaveProfessional(ctx, &domain.Professional{ID: id, DisplayName: "Pro " + id}); err != nil {
			t.Fatalf("SaveProfessional(%s): %v", id, err)
		}
	}
}

func newRequest(id, companyID, professionalID string, createdAt time.Time) *domain.IntroductionRequest {
	return &domain.IntroductionRequest{
		ID:             id,
		CompanyID:      companyID,
		ProfessionalID: professionalID,
		JobRoleID:      "role-1",
		State:          domain.StatePending,
		CreatedAt:      createdAt,
		ExpiresAt:      createdAt.Add(domain.IntroductionValidity),
	}
}

func credits(t *testing.T, s domain.Store, companyID string) int {
	t.Helper()
	c, err := s.FindCompany(context.Background(), companyID)
	if err != nil {
		t.Fatalf("FindCompany(%s): %v", companyID, err)
	}
	return c.IntroductionCredits
}

func testCompanies(t *testing.T, s domain.Store) {
	ctx := context.Background()
	if _, err := s.FindCompany(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	expires := base.Add(30 * 24 * time.Hour)
	if err := s.SaveCompany(ctx, &domain.Company{
		ID: "c-1", Name: "Acme", Tier: domain.TierEnterprise, SubscriptionExpiresAt: &expires, IntroductionCredits: 4,
	}); err != nil {
		t.Fatalf("SaveCompany: %v", err)
	}
	c, err := s.FindCompany(ctx, "c-1")
	if err != nil {
		t.Fatalf("FindCompany: %v", err)
	}
	if c.Tier != domain.TierEnterprise || c.IntroductionCredits != 4 || c.SubscriptionExpiresAt == nil || !c.SubscriptionExpiresAt.Equal(expires) {
		t.Fatalf("unexpected company: %+v", c)
	}

	if _, err := s.FindProfessional(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for professional, got %v", err)
	}
}

func testCreditAdjustments(t *testing.T, s domain.Store) {
	ctx := context.Background()
	seed(t, s, "c-1", 2)

	balance, err := s.UpdateCompanyCredits(ctx, "c-1", 3, nil)
	if err != nil || balance != 5 {
		t.Fatalf("grant: balance=%d err=%v", balance, err)
	}

	stale := 2
	if _, err := s.UpdateCompanyCredits(ctx, "c-1", 1, &stale); !errors.Is(err, domain.ErrBalanceChanged) {
		t.Fatalf("expected ErrBalanceChanged, got %v", err)
	}
	current := 5
	if balance, err := s.UpdateCompanyCredits(ctx, "c-1", -5, &current); err != nil || balance != 0 {
		t.Fatalf("cas debit: balance=%d err=%v", balance, err)
	}
	if _, err := s.UpdateCompanyCredits(ctx, "c-1", -1, nil); !errors.Is(err, domain.ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}
	if _, err := s.UpdateCompanyCredits(ctx, "missing", 1, nil); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if got := credits(t, s, "c-1"); got != 0 {
		t.Fatalf("credits=%d want 0", got)
	}
}

func testCreateReservesCredit(t *testing.T, s domain.Store) {
	ctx := context.Background()
	seed(t, s, "c-1", 1, "p-1")

	req := newRequest("r-1", "c-1", "p-1", base)
	if err := s.CreateIntroductionRequest(ctx, req); err != nil {
		t.Fatalf("CreateIntroductionRequest: %v", err)
	}
	if got := credits(t, s, "c-1"); got != 0 {
		t.Fatalf("credits=%d want 0", got)
	}

	stored, err := s.GetIntroductionRequest(ctx, "r-1")
	if err != nil {
		t.Fatalf("GetIntroductionRequest: %v", err)
	}
	if stored.State != domain.StatePending || !stored.ExpiresAt.Equal(req.ExpiresAt) || stored.DecidedAt != nil {
		t.Fatalf("unexpected stored request: %+v", stored)
	}

	if err := s.CreateIntroductionRequest(ctx, newRequest("r-2", "c-1", "p-1", base)); !errors.Is(err, domain.ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}
	if _, err := s.GetIntroductionRequest(ctx, "r-2"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected rejected request not to be stored, got %v", err)
	}
	if err := s.CreateIntroductionRequest(ctx, newRequest("r-3", "missing", "p-1", base)); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown company, got %v", err)
	}
}

func testConcurrentCreate(t *testing.T, s domain.Store) {
	const (
		available = 3
		attempts  = 12
	)
	seed(t, s, "c-1", available, "p-1")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.CreateIntroductionRequest(context.Background(), newRequest(fmt.Sprintf("r-%02d", i), "c-1", "p-1", base))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, domain.ErrInsufficientCredits):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if succeeded != available || rejected != attempts-available {
		t.Fatalf("succeeded=%d rejected=%d, want %d/%d", succeeded, rejected, available, attempts-available)
	}
	if got := credits(t, s, "c-1"); got != 0 {
		t.Fatalf("credits=%d want 0", got)
	}
	pending, err := s.ListIntroductionRequests(context.Background(), domain.IntroductionFilter{CompanyID: "c-1", State: domain.StatePending})
	if err != nil {
		t.Fatalf("ListIntroductionRequests: %v", err)
	}
	if len(pending) != available {
		t.Fatalf("pending=%d want %d", len(pending), available)
	}
}

func testStateChange(t *testing.T, s domain.Store) {
	ctx := context.Background()
	seed(t, s, "c-1", 2, "p-1")
	if err := s.CreateIntroductionRequest(ctx, newRequest("r-1", "c-1", "p-1", base)); err != nil {
		t.Fatalf("CreateIntroductionRequest: %v", err)
	}

	decided := base.Add(time.Hour)
	change := domain.StateChange{ID: "r-1", From: domain.StatePending, To: domain.StateDeclined, DecidedAt: decided, CreditRefund: 1}
	updated, err := s.UpdateRequestState(ctx, change)
	if err != nil {
		t.Fatalf("UpdateRequestState: %v", err)
	}
	if updated.State != domain.StateDeclined || updated.DecidedAt == nil || !updated.DecidedAt.Equal(decided) {
		t.Fatalf("unexpected updated request: %+v", updated)
	}
	if got := credits(t, s, "c-1"); got != 2 {
		t.Fatalf("credits=%d want 2 after refund", got)
	}

	if _, err := s.UpdateRequestState(ctx, change); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on replay, got %v", err)
	}
	if got := credits(t, s, "c-1"); got != 2 {
		t.Fatalf("credits=%d want 2 after rejected replay", got)
	}

	change.ID = "missing"
	if _, err := s.UpdateRequestState(ctx, change); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testPendingExpired(t *testing.T, s domain.Store) {
	ctx := context.Background()
	seed(t, s, "c-1", 5, "p-1")
	for i := 0; i < 4; i++ {
		req := newRequest(fmt.Sprintf("r-%d", i), "c-1", "p-1", base.Add(time.Duration(i)*time.Hour))
		if err := s.CreateIntroductionRequest(ctx, req); err != nil {
			t.Fatalf("CreateIntroductionRequest: %v", err)
		}
	}
	if _, err := s.UpdateRequestState(ctx, domain.StateChange{
		ID: "r-0", From: domain.StatePending, To: domain.StateAccepted, DecidedAt: base.Add(time.Minute),
	}); err != nil {
		t.Fatalf("accept r-0: %v", err)
	}

	// r-1 expires exactly at cutoff, r-2 and r-3 later
	cutoff := base.Add(time.Hour + domain.IntroductionValidity)
	due, err := s.ListPendingExpired(ctx, cutoff, 10)
	if err != nil {
		t.Fatalf("ListPendingExpired: %v", err)
	}
	if len(due) != 1 || due[0].ID != "r-1" {
		t.Fatalf("due=%v want [r-1]", ids(due))
	}

	due, err = s.ListPendingExpired(ctx, cutoff.Add(2*time.Hour), 2)
	if err != nil {
		t.Fatalf("ListPendingExpired: %v", err)
	}
	if len(due) != 2 || due[0].ID != "r-1" || due[1].ID != "r-2" {
		t.Fatalf("due=%v want [r-1 r-2]", ids(due))
	}
}

func testListing(t *testing.T, s domain.Store) {
	ctx := context.Background()
	seed(t, s, "c-1", 5, "p-1", "p-2")
	seed(t, s, "c-2", 5)
	reqs := []*domain.IntroductionRequest{
		newRequest("r-1", "c-1", "p-1", base),
		newRequest("r-2", "c-1", "p-2", base.Add(time.Minute)),
		newRequest("r-3", "c-2", "p-1", base.Add(2*time.Minute)),
	}
	for _, r := range reqs {
		if err := s.CreateIntroductionRequest(ctx, r); err != nil {
			t.Fatalf("CreateIntroductionRequest(%s): %v", r.ID, err)
		}
	}

	sent, err := s.ListIntroductionRequests(ctx, domain.IntroductionFilter{CompanyID: "c-1"})
	if err != nil {
		t.Fatalf("list sent: %v", err)
	}
	if got := ids(sent); len(got) != 2 || got[0] != "r-2" || got[1] != "r-1" {
		t.Fatalf("sent=%v want [r-2 r-1]", got)
	}

	received, err := s.ListIntroductionRequests(ctx, domain.IntroductionFilter{ProfessionalID: "p-1", Limit: 1})
	if err != nil {
		t.Fatalf("list received: %v", err)
	}
	if got := ids(received); len(got) != 1 || got[0] != "r-3" {
		t.Fatalf("received=%v want [r-3]", got)
	}
}

func testActiveRole(t *testing.T, s domain.Store) {
	ctx := context.Background()
	if _, ok, err := s.GetActiveRole(ctx, "d-1"); err != nil || ok {
		t.Fatalf("expected no active role, ok=%v err=%v", ok, err)
	}
	for _, role := range []domain.Role{domain.RoleProfessional, domain.RoleHrPartner} {
		if err := s.SaveActiveRole(ctx, "d-1", role); err != nil {
			t.Fatalf("SaveActiveRole: %v", err)
		}
		got, ok, err := s.GetActiveRole(ctx, "d-1")
		if err != nil || !ok || got != role {
			t.Fatalf("GetActiveRole=%s,%v,%v want %s", got, ok, err, role)
		}
	}
}

func testReferenceData(t *testing.T, s domain.Store) {
	ctx := context.Background()
	regions, err := s.ListRegions(ctx)
	if err != nil {
		t.Fatalf("ListRegions: %v", err)
	}
	if len(regions) == 0 {
		t.Fatal("expected seeded regions")
	}
	cities, err := s.ListCities(ctx, regions[0].Code)
	if err != nil {
		t.Fatalf("ListCities: %v", err)
	}
	for _, c := range cities {
		if c.RegionCode != regions[0].Code {
			t.Fatalf("city %s belongs to %s, want %s", c.ID, c.RegionCode, regions[0].Code)
		}
	}
	if cities, _ := s.ListCities(ctx, "ZZ"); len(cities) != 0 {
		t.Fatalf("expected no cities for unknown region, got %d", len(cities))
	}
}

func ids(reqs []*domain.IntroductionRequest) []string {
	out := make([]string, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, r.ID)
	}
	return out
}
