package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aryan0dhankhar/hirebridge/internal/reliability/retry"
)

// ErrInvalidURL is returned when REDIS_URL cannot be parsed. Retrying does not help.
var ErrInvalidURL = errors.New("invalid redis url")

// Client wraps the Redis client with our custom methods
type Client struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// NewClient creates a new Redis client
func NewClient(ctx context.Context, url string, logger *slog.Logger) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}

	rdb := redis.NewClient(opts)

	// Test connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return Wrap(rdb, logger), nil
}

// Connect dials Redis with backoff. A malformed URL fails on the first attempt.
func Connect(ctx context.Context, url string, cfg *retry.Config, logger *slog.Logger) (*Client, error) {
	return retry.Do(ctx, cfg, logger, "connect redis", func(ctx context.Context) (*Client, error) {
		c, err := NewClient(ctx, url, logger)
		if errors.Is(err, ErrInvalidURL) {
			return nil, retry.Permanent(err)
		}
		return c, err
	})
}

// Wrap adopts an existing go-redis client
func Wrap(rdb *redis.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{rdb: rdb, logger: logger}
}

// Raw exposes the underlying client for scripts
func (c *Client) Raw() redis.UniversalClient {
	return c.rdb
}

// Fetch returns the value stored at key. A missing key is not an error.
func (c *Client) Fetch(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// Put stores a value with optional TTL
func (c *Client) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// Ping checks connectivity
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}
