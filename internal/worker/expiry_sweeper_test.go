package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aryan0dhankhar/hirebridge/internal/domain"
	"github.com/aryan0dhankhar/hirebridge/internal/reliability/circuitbreaker"
	"github.com/aryan0dhankhar/hirebridge/internal/repository/memory"
)

var sweepNow = time.Date(2026, time.July, 1, 12, 0, 0, 0, time.UTC)

// storeExpirer expires requests directly against the store
type storeExpirer struct {
	store *memory.Store
	fail  map[string]bool
	calls int
}

func (e *storeExpirer) Expire(ctx context.Context, id string) (bool, error) {
	e.calls++
	if e.fail[id] {
		return false, errors.New("store unavailable")
	}
	req, err := e.store.GetIntroductionRequest(ctx, id)
	if err != nil {
		return false, err
	}
	if req.State != domain.StatePending || !req.IsPastDeadline(sweepNow) {
		return false, nil
	}
	_, err = e.store.UpdateRequestState(ctx, domain.StateChange{
		ID:           id,
		From:         domain.StatePending,
		To:           domain.StateExpired,
		DecidedAt:    sweepNow,
		CreditRefund: 1,
	})
	if errors.Is(err, domain.ErrInvalidTransition) {
		return false, nil
	}
	return err == nil, err
}

func seed(t *testing.T, store *memory.Store, overdue, open int) {
	t.Helper()
	ctx := context.Background()
	if err := store.SaveCompany(ctx, &domain.Company{ID: "c-1", Tier: domain.TierBasic, IntroductionCredits: overdue + open}); err != nil {
		t.Fatalf("SaveCompany: %v", err)
	}
	for i := 0; i < overdue+open; i++ {
		created := sweepNow.Add(-domain.IntroductionValidity - time.Duration(overdue-i)*time.Minute)
		if i >= overdue {
			created = sweepNow.Add(-time.Hour)
		}
		req := &domain.IntroductionRequest{
			ID:             fmt.Sprintf("req-%03d", i),
			CompanyID:      "c-1",
			ProfessionalID: "p-1",
			State:          domain.StatePending,
			CreatedAt:      created,
			ExpiresAt:      created.Add(domain.IntroductionValidity),
		}
		if err := store.CreateIntroductionRequest(ctx, req); err != nil {
			t.Fatalf("CreateIntroductionRequest: %v", err)
		}
	}
}

func credits(t *testing.T, store *memory.Store) int {
	t.Helper()
	c, err := store.FindCompany(context.Background(), "c-1")
	if err != nil {
		t.Fatalf("FindCompany: %v", err)
	}
	return c.IntroductionCredits
}

func TestRunOncePagesThroughOverdueRequests(t *testing.T) {
	store := memory.New()
	seed(t, store, 7, 2)
	expirer := &storeExpirer{store: store}
	sweeper := NewExpirySweeper(store, expirer, nil, nil, time.Minute, 3).WithClock(func() time.Time { return sweepNow })

	n, err := sweeper.RunOnce(context.Background(), "test")
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if n != 7 {
		t.Fatalf("expired=%d want 7", n)
	}
	if got := credits(t, store); got != 7 {
		t.Fatalf("credits=%d want 7", got)
	}

	n, err = sweeper.RunOnce(context.Background(), "test")
	if err != nil || n != 0 {
		t.Fatalf("second RunOnce = (%d, %v), want (0, nil)", n, err)
	}
}

func TestRunOnceStopsWhenExpiryFails(t *testing.T) {
	store := memory.New()
	seed(t, store, 2, 0)
	expirer := &storeExpirer{store: store, fail: map[string]bool{"req-000": true, "req-001": true}}
	sweeper := NewExpirySweeper(store, expirer, nil, nil, time.Minute, 2).WithClock(func() time.Time { return sweepNow })

	n, err := sweeper.RunOnce(context.Background(), "test")
	if err == nil {
		t.Fatal("expected an error when no request could be expired")
	}
	if n != 0 || expirer.calls != 2 {
		t.Fatalf("expired=%d calls=%d, want 0 and 2", n, expirer.calls)
	}
}

func TestRunOnceReportsRowsStillPending(t *testing.T) {
	store := memory.New()
	seed(t, store, 0, 2)
	// The sweeper's clock runs a week ahead of the expirer's, so every listed row stays pending.
	expirer := &storeExpirer{store: store}
	sweeper := NewExpirySweeper(store, expirer, nil, nil, time.Minute, 2).
		WithClock(func() time.Time { return sweepNow.Add(domain.IntroductionValidity) })

	n, err := sweeper.RunOnce(context.Background(), "test")
	if err == nil {
		t.Fatal("expected an error for a full page that stays pending")
	}
	if n != 0 || expirer.calls != 2 {
		t.Fatalf("expired=%d calls=%d, want 0 and 2", n, expirer.calls)
	}
}

// racedRepo runs interleave once, after the first page is listed and before it is expired
type racedRepo struct {
	*memory.Store
	interleave func()
}

func (r *racedRepo) ListPendingExpired(ctx context.Context, before time.Time, limit int) ([]*domain.IntroductionRequest, error) {
	due, err := r.Store.ListPendingExpired(ctx, before, limit)
	if r.interleave != nil {
		run := r.interleave
		r.interleave = nil
		run()
	}
	return due, err
}

func TestRunOnceLosingRaceToAnotherSweepIsNotAnError(t *testing.T) {
	store := memory.New()
	seed(t, store, 2, 0)
	clock := func() time.Time { return sweepNow }

	other := NewExpirySweeper(store, &storeExpirer{store: store}, nil, nil, time.Minute, 2).WithClock(clock)
	repo := &racedRepo{Store: store}
	repo.interleave = func() {
		if n, err := other.RunOnce(context.Background(), "admin"); err != nil || n != 2 {
			t.Errorf("other sweep = (%d, %v), want (2, nil)", n, err)
		}
	}
	breaker := circuitbreaker.NewCircuitBreaker("race-test", 1, 1, time.Hour)
	sweeper := NewExpirySweeper(repo, &storeExpirer{store: store}, breaker, nil, time.Minute, 2).WithClock(clock)

	n, err := sweeper.RunOnce(context.Background(), "ticker")
	if err != nil {
		t.Fatalf("RunOnce after losing the race: %v", err)
	}
	if n != 0 {
		t.Fatalf("expired=%d want 0", n)
	}
	if _, err := sweeper.RunOnce(context.Background(), "ticker"); err != nil {
		t.Fatalf("next tick: %v", err)
	}
	if breaker.GetState() != circuitbreaker.StateClosed {
		t.Fatalf("breaker state=%s want closed", breaker.GetState())
	}
	if got := credits(t, store); got != 2 {
		t.Fatalf("credits=%d want 2 (each refunded once)", got)
	}
}

func TestRunOnceSkipsRequestsWithdrawnMidSweep(t *testing.T) {
	store := memory.New()
	seed(t, store, 2, 0)
	repo := &racedRepo{Store: store}
	repo.interleave = func() {
		for _, id := range []string{"req-000", "req-001"} {
			if _, err := store.UpdateRequestState(context.Background(), domain.StateChange{
				ID: id, From: domain.StatePending, To: domain.StateWithdrawn, DecidedAt: sweepNow, CreditRefund: 1,
			}); err != nil {
				t.Errorf("withdraw %s: %v", id, err)
			}
		}
	}
	sweeper := NewExpirySweeper(repo, &storeExpirer{store: store}, nil, nil, time.Minute, 2).WithClock(func() time.Time { return sweepNow })

	n, err := sweeper.RunOnce(context.Background(), "ticker")
	if err != nil || n != 0 {
		t.Fatalf("RunOnce = (%d, %v), want (0, nil)", n, err)
	}
	if got := credits(t, store); got != 2 {
		t.Fatalf("credits=%d want 2", got)
	}
}

type failingRepo struct {
	*memory.Store
	calls int
}

func (r *failingRepo) ListPendingExpired(ctx context.Context, before time.Time, limit int) ([]*domain.IntroductionRequest, error) {
	r.calls++
	return nil, errors.New("connection reset")
}

func TestRunOnceTripsBreaker(t *testing.T) {
	repo := &failingRepo{Store: memory.New()}
	breaker := circuitbreaker.NewCircuitBreaker("sweeper-test", 2, 1, time.Hour)
	sweeper := NewExpirySweeper(repo, &storeExpirer{store: repo.Store}, breaker, nil, time.Minute, 10)

	for i := 0; i < 2; i++ {
		if _, err := sweeper.RunOnce(context.Background(), "test"); err == nil {
			t.Fatalf("attempt %d: expected list error", i)
		}
	}
	if _, err := sweeper.RunOnce(context.Background(), "test"); !errors.Is(err, circuitbreaker.ErrOpen) {
		t.Fatalf("expected ErrOpen, got %v", err)
	}
	if repo.calls != 2 {
		t.Fatalf("repository called %d times, want 2", repo.calls)
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	store := memory.New()
	seed(t, store, 1, 0)
	sweeper := NewExpirySweeper(store, &storeExpirer{store: store}, nil, nil, 5*time.Millisecond, 10).WithClock(func() time.Time { return sweepNow })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Start(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for credits(t, store) != 1 {
		select {
		case <-deadline:
			t.Fatal("sweeper never ran")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}
