package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig(attempts int) *Config {
	return &Config{
		MaxAttempts:       attempts,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2,
	}
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fastConfig(3), nil, "connect", func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("connection refused")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if got != "ok" || calls != 3 {
		t.Fatalf("got %q after %d calls", got, calls)
	}
}

func TestDoGivesUp(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	_, err := Do(context.Background(), fastConfig(2), nil, "connect", func(context.Context) (int, error) {
		calls++
		return 0, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls=%d want 2", calls)
	}
}

func TestDoStopsOnPermanentError(t *testing.T) {
	bad := errors.New("bad credentials")
	calls := 0
	_, err := Do(context.Background(), fastConfig(5), nil, "connect", func(context.Context) (int, error) {
		calls++
		return 0, Permanent(bad)
	})
	if !errors.Is(err, bad) || calls != 1 {
		t.Fatalf("err=%v calls=%d, want bad credentials after 1 call", err, calls)
	}
}

func TestDoHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := &Config{MaxAttempts: 3, InitialBackoff: time.Hour, MaxBackoff: time.Hour, BackoffMultiplier: 1}
	_, err := Do(ctx, cfg, nil, "connect", func(context.Context) (int, error) {
		cancel()
		return 0, errors.New("unreachable")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCalculateBackoffIsCapped(t *testing.T) {
	cfg := &Config{InitialBackoff: time.Second, MaxBackoff: 3 * time.Second, BackoffMultiplier: 2}
	if got := calculateBackoff(0, cfg); got != time.Second {
		t.Fatalf("backoff(0)=%s", got)
	}
	if got := calculateBackoff(1, cfg); got != 2*time.Second {
		t.Fatalf("backoff(1)=%s", got)
	}
	if got := calculateBackoff(5, cfg); got != 3*time.Second {
		t.Fatalf("backoff(5)=%s", got)
	}
}
