package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/hirebridge/internal/domain"
	"github.com/aryan0dhankhar/hirebridge/internal/observability/metrics"
	"github.com/aryan0dhankhar/hirebridge/internal/reliability/circuitbreaker"
)

// DefaultBatchSize is how many overdue requests a sweep loads per page
const DefaultBatchSize = 100

// Expirer expires one overdue pending request. It reports false when there was nothing to do.
type Expirer interface {
	Expire(ctx context.Context, requestID string) (bool, error)
}

// ExpirySweeper periodically moves overdue pending introduction requests to Expired,
// refunding their credits
type ExpirySweeper struct {
	intros    domain.IntroductionRepository
	expirer   Expirer
	breaker   *circuitbreaker.CircuitBreaker
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
	now       func() time.Time
}

// NewExpirySweeper creates a new expiry sweeper
func NewExpirySweeper(
	intros domain.IntroductionRepository,
	expirer Expirer,
	breaker *circuitbreaker.CircuitBreaker,
	logger *slog.Logger,
	interval time.Duration,
	batchSize int,
) *ExpirySweeper {
	if logger == nil {
		logger = slog.Default()
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &ExpirySweeper{
		intros:    intros,
		expirer:   expirer,
		breaker:   breaker,
		logger:    logger,
		interval:  interval,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// WithClock replaces the time source used to select overdue requests
func (w *ExpirySweeper) WithClock(now func() time.Time) *ExpirySweeper {
	w.now = now
	return w
}

// Start runs a sweep every interval until ctx is done
func (w *ExpirySweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("expiry sweeper started",
		slog.Duration("interval", w.interval),
		slog.Int("batch_size", w.batchSize),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("expiry sweeper stopped")
			return
		case <-ticker.C:
			if _, err := w.RunOnce(ctx, "scheduled"); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error("expiry sweep failed", slog.String("error", err.Error()))
			}
		}
	}
}

// RunOnce expires every request that is pending and past its deadline, and returns how many
// it expired. Running it again immediately expires nothing.
func (w *ExpirySweeper) RunOnce(ctx context.Context, source string) (int, error) {
	var expired int
	run := func(ctx context.Context) error {
		n, err := w.sweep(ctx)
		expired = n
		return err
	}

	var err error
	if w.breaker != nil {
		err = w.breaker.Execute(ctx, run)
	} else {
		err = run(ctx)
	}

	switch {
	case errors.Is(err, circuitbreaker.ErrOpen):
		metrics.ObserveSweep(source, "skipped", 0)
		w.logger.Warn("expiry sweep skipped, store breaker open", slog.String("source", source))
	case err != nil:
		metrics.ObserveSweep(source, "error", expired)
	default:
		metrics.ObserveSweep(source, "ok", expired)
		if expired > 0 {
			w.logger.Info("expiry sweep complete",
				slog.String("source", source),
				slog.Int("expired", expired),
			)
		}
	}
	return expired, err
}

func (w *ExpirySweeper) sweep(ctx context.Context) (int, error) {
	now := w.now().UTC()
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		due, err := w.intros.ListPendingExpired(ctx, now, w.batchSize)
		if err != nil {
			return total, fmt.Errorf("list overdue requests: %w", err)
		}

		progressed := 0
		var lastErr error
		for _, req := range due {
			ok, err := w.expirer.Expire(ctx, req.ID)
			if err != nil {
				lastErr = err
				w.logger.Error("failed to expire introduction request",
					slog.String("request_id", req.ID),
					slog.String("error", err.Error()),
				)
				continue
			}
			if ok {
				total++
				progressed++
				continue
			}
			// Another sweep or a user action may have settled it first; it has left the overdue set.
			if w.settled(ctx, req.ID) {
				progressed++
			}
		}

		if len(due) < w.batchSize {
			return total, lastErr
		}
		// A full page of rows that are still pending would be returned again unchanged.
		if progressed == 0 {
			if lastErr == nil {
				lastErr = errors.New("no progress on a full page of overdue requests")
			}
			return total, lastErr
		}
	}
}

// settled reports whether a request the expirer skipped is no longer pending
func (w *ExpirySweeper) settled(ctx context.Context, id string) bool {
	req, err := w.intros.GetIntroductionRequest(ctx, id)
	if err != nil {
		return errors.Is(err, domain.ErrNotFound)
	}
	return req.State != domain.StatePending
}
