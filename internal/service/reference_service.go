package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/hirebridge/internal/domain"
	"github.com/aryan0dhankhar/hirebridge/internal/observability/metrics"
)

// DefaultReferenceTTL is how long reference data stays cached
const DefaultReferenceTTL = 6 * time.Hour

// ReferenceCache stores encoded reference data with a TTL
type ReferenceCache interface {
	Fetch(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// ReferenceService serves near-static onboarding data through a get-or-populate cache
type ReferenceService struct {
	repo   domain.ReferenceRepository
	cache  ReferenceCache
	ttl    time.Duration
	logger *slog.Logger
}

// NewReferenceService creates a new reference data service
func NewReferenceService(repo domain.ReferenceRepository, cache ReferenceCache, ttl time.Duration, logger *slog.Logger) *ReferenceService {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = DefaultReferenceTTL
	}
	return &ReferenceService{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

// Regions returns every region
func (s *ReferenceService) Regions(ctx context.Context) ([]domain.Region, error) {
	return getOrPopulate(ctx, s, "reference:regions", func(ctx context.Context) ([]domain.Region, error) {
		return s.repo.ListRegions(ctx)
	})
}

// Cities returns the cities of a region
func (s *ReferenceService) Cities(ctx context.Context, regionCode string) ([]domain.City, error) {
	return getOrPopulate(ctx, s, "reference:cities:"+regionCode, func(ctx context.Context) ([]domain.City, error) {
		return s.repo.ListCities(ctx, regionCode)
	})
}

// getOrPopulate reads key from the cache, falling back to load. Cache failures are
// logged and never fail the request.
func getOrPopulate[T any](ctx context.Context, s *ReferenceService, key string, load func(context.Context) ([]T, error)) ([]T, error) {
	if s.cache != nil {
		raw, ok, err := s.cache.Fetch(ctx, key)
		if err != nil {
			s.logger.Warn("reference cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		if ok {
			var out []T
			if err := json.Unmarshal(raw, &out); err == nil {
				metrics.ObserveCacheLookup(true)
				return out, nil
			}
			s.logger.Warn("discarding undecodable cache entry", slog.String("key", key))
		}
	}
	metrics.ObserveCacheLookup(false)

	out, err := load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	if out == nil {
		out = []T{}
	}

	if s.cache != nil {
		raw, err := json.Marshal(out)
		if err == nil {
			err = s.cache.Put(ctx, key, raw, s.ttl)
		}
		if err != nil {
			s.logger.Warn("reference cache write failed", slog.String("key", key), slog.String("error", err.Error()))
		}
	}
	return out, nil
}
