package ratelimit

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestLimiterSlidingWindow(t *testing.T) {
	lim := NewLimiter(2, time.Minute)
	defer lim.Stop()

	now := time.Date(2026, time.January, 1, 9, 0, 0, 0, time.UTC)
	lim.now = func() time.Time { return now }

	if !lim.Allow("p-1") || !lim.Allow("p-1") {
		t.Fatal("expected the first two requests to pass")
	}
	if lim.Allow("p-1") {
		t.Fatal("expected the third request to be limited")
	}
	if !lim.Allow("p-2") {
		t.Fatal("expected a different key to have its own window")
	}

	now = now.Add(time.Minute + time.Second)
	if !lim.Allow("p-1") {
		t.Fatal("expected the window to slide")
	}
}

func TestLimiterEmptyKeyNeverLimited(t *testing.T) {
	lim := NewLimiter(1, time.Minute)
	defer lim.Stop()
	for i := 0; i < 5; i++ {
		if !lim.Allow("") {
			t.Fatal("expected anonymous requests to pass")
		}
	}
}

func TestRedisLimiterEnforcesLimit(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	lim := NewRedisLimiter(client, 2, time.Second, nil, nil)
	if !lim.Allow("p-1") || !lim.Allow("p-1") {
		t.Fatal("expected the first two requests to pass")
	}
	if lim.Allow("p-1") {
		t.Fatal("expected the third request to be limited")
	}

	mr.FastForward(2 * time.Second)
	if !lim.Allow("p-1") {
		t.Fatal("expected the window to reset after expiry")
	}
}

func TestRedisLimiterFallsBackWhenUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:         "127.0.0.1:1",
		DialTimeout:  5 * time.Millisecond,
		ReadTimeout:  5 * time.Millisecond,
		WriteTimeout: 5 * time.Millisecond,
		MaxRetries:   0,
	})
	defer client.Close()

	fallback := NewLimiter(1, time.Minute)
	defer fallback.Stop()

	lim := NewRedisLimiter(client, 10, time.Minute, fallback, nil)
	if !lim.Allow("p-1") {
		t.Fatal("expected fallback to allow the first request")
	}
	if lim.Allow("p-1") {
		t.Fatal("expected fallback to enforce its own limit")
	}
}
