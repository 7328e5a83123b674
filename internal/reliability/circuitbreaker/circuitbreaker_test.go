package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBreakerOpensAndRecovers(t *testing.T) {
	now := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	var transitions []string
	cb := NewCircuitBreaker("test", 2, 1, time.Minute).WithClock(func() time.Time { return now })
	cb.SetStateChangeCallback(func(from, to State) {
		transitions = append(transitions, from.String()+"->"+to.String())
	})

	boom := errors.New("boom")
	failing := func(context.Context) error { return boom }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := cb.Execute(ctx, failing); !errors.Is(err, boom) {
			t.Fatalf("attempt %d: expected boom, got %v", i, err)
		}
	}
	if cb.GetState() != StateOpen {
		t.Fatalf("state=%s want open", cb.GetState())
	}
	if err := cb.Execute(ctx, func(context.Context) error { return nil }); !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen, got %v", err)
	}

	now = now.Add(time.Minute)
	if err := cb.Execute(ctx, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Fatalf("state=%s want closed", cb.GetState())
	}

	want := []string{"closed->open", "open->half-open", "half-open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions=%v want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Fatalf("transitions=%v want %v", transitions, want)
		}
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	now := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker("test", 1, 2, time.Second).WithClock(func() time.Time { return now })

	cb.RecordFailure()
	now = now.Add(time.Second)
	if !cb.AllowRequest() {
		t.Fatal("expected a probe after the timeout")
	}
	cb.RecordFailure()
	if cb.GetState() != StateOpen {
		t.Fatalf("state=%s want open", cb.GetState())
	}
	if cb.AllowRequest() {
		t.Fatal("expected the reopened breaker to reject until the next timeout")
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker("test", 2, 1, time.Minute)
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	if cb.GetState() != StateClosed {
		t.Fatalf("state=%s, non-consecutive failures must not trip the breaker", cb.GetState())
	}
}

func TestCancellationIsNotAFailure(t *testing.T) {
	cb := NewCircuitBreaker("test", 1, 1, time.Minute)
	err := cb.Execute(context.Background(), func(context.Context) error { return context.Canceled })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Fatalf("state=%s want closed", cb.GetState())
	}
}
