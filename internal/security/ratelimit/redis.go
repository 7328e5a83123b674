package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

var windowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// RedisLimiter is a fixed window limiter shared by every replica.
// It degrades to the in-process fallback when Redis is unreachable.
type RedisLimiter struct {
	client   redis.UniversalClient
	maxReqs  int
	window   time.Duration
	prefix   string
	fallback Allower
	logger   *slog.Logger
}

func NewRedisLimiter(client redis.UniversalClient, maxRequests int, window time.Duration, fallback Allower, logger *slog.Logger) *RedisLimiter {
	if maxRequests <= 0 {
		maxRequests = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisLimiter{
		client:   client,
		maxReqs:  maxRequests,
		window:   window,
		prefix:   "hirebridge:rl:",
		fallback: fallback,
		logger:   logger,
	}
}

func (l *RedisLimiter) Allow(key string) bool {
	if key == "" {
		return true
	}
	if l.client == nil {
		return l.fallbackAllow(key)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	count, err := windowScript.Run(ctx, l.client, []string{l.prefix + key}, l.window.Milliseconds()).Int64()
	if err != nil {
		l.logger.Warn("redis rate limit unavailable, using fallback", slog.String("error", err.Error()))
		return l.fallbackAllow(key)
	}
	return int(count) <= l.maxReqs
}

func (l *RedisLimiter) fallbackAllow(key string) bool {
	if l.fallback == nil {
		return true
	}
	return l.fallback.Allow(key)
}
