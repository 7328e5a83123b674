package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aryan0dhankhar/hirebridge/internal/observability/metrics"
)

// ErrOpen is returned by Execute while the breaker is rejecting calls
var ErrOpen = errors.New("circuit breaker open")

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker provides fast-fail behavior when a dependency fails repeatedly
type CircuitBreaker struct {
	name             string
	failureThreshold int
	successThreshold int
	timeout          time.Duration

	mu            sync.Mutex
	state         State
	failureCount  int
	successCount  int
	openedAt      time.Time
	now           func() time.Time
	onStateChange func(from, to State)
}

// NewCircuitBreaker creates a new circuit breaker. It opens after failureThreshold consecutive
// failures, lets a probe through once timeout has passed, and closes again after
// successThreshold probe successes.
func NewCircuitBreaker(name string, failureThreshold, successThreshold int, timeout time.Duration) *CircuitBreaker {
	if failureThreshold < 1 {
		failureThreshold = 1
	}
	if successThreshold < 1 {
		successThreshold = 1
	}
	cb := &CircuitBreaker{
		name:             name,
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		timeout:          timeout,
		now:              time.Now,
	}
	metrics.SetBreakerState(name, int(StateClosed))
	return cb
}

// WithClock replaces the time source
func (cb *CircuitBreaker) WithClock(now func() time.Time) *CircuitBreaker {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.now = now
	return cb
}

// SetStateChangeCallback registers a callback for state transitions
func (cb *CircuitBreaker) SetStateChangeCallback(fn func(from, to State)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onStateChange = fn
}

// Name returns the breaker's name
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// AllowRequest returns true if the circuit allows a request
func (cb *CircuitBreaker) AllowRequest() bool {
	cb.mu.Lock()
	if cb.state != StateOpen {
		cb.mu.Unlock()
		return true
	}
	if cb.now().Sub(cb.openedAt) < cb.timeout {
		cb.mu.Unlock()
		return false
	}
	notify := cb.transition(StateHalfOpen)
	cb.mu.Unlock()
	notify()
	return true
}

// RecordSuccess resets the failure count, and closes a half-open breaker once enough probes pass
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	notify := func() {}
	switch cb.state {
	case StateHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.successThreshold {
			notify = cb.transition(StateClosed)
		}
	case StateClosed:
		cb.failureCount = 0
	}
	cb.mu.Unlock()
	notify()
}

// RecordFailure may trip the breaker open. Any failure while half-open reopens it.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	notify := func() {}
	switch cb.state {
	case StateClosed:
		cb.failureCount++
		if cb.failureCount >= cb.failureThreshold {
			notify = cb.transition(StateOpen)
		}
	case StateHalfOpen:
		notify = cb.transition(StateOpen)
	}
	cb.mu.Unlock()
	notify()
}

// GetState returns the current state
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Execute runs fn if the breaker allows it and records the outcome.
// Context cancellation is not counted as a dependency failure.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if !cb.AllowRequest() {
		return ErrOpen
	}
	err := fn(ctx)
	switch {
	case err == nil:
		cb.RecordSuccess()
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
	default:
		cb.RecordFailure()
	}
	return err
}

// transition must be called with mu held. The returned func runs the callback and must be
// called after mu is released.
func (cb *CircuitBreaker) transition(to State) func() {
	from := cb.state
	cb.state = to
	cb.failureCount = 0
	cb.successCount = 0
	if to == StateOpen {
		cb.openedAt = cb.now()
	}
	if from == to {
		return func() {}
	}
	fn := cb.onStateChange
	name := cb.name
	return func() {
		metrics.SetBreakerState(name, int(to))
		if fn != nil {
			fn(from, to)
		}
	}
}
