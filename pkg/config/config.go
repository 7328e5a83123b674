package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config holds the application configuration
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	ServerPort  int    `env:"SERVER_PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	StoreDriver       string        `env:"STORE_DRIVER" envDefault:"postgres"`
	DBHost            string        `env:"DB_HOST" envDefault:"localhost"`
	DBPort            int           `env:"DB_PORT" envDefault:"5432"`
	DBUser            string        `env:"DB_USER" envDefault:"hirebridge"`
	DBPassword        string        `env:"DB_PASSWORD"`
	DBName            string        `env:"DB_NAME" envDefault:"hirebridge"`
	DBSSLMode         string        `env:"DB_SSLMODE" envDefault:"disable"`
	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
	SQLitePath        string        `env:"SQLITE_PATH" envDefault:"hirebridge.db"`
	SeedDemoData      bool          `env:"SEED_DEMO_DATA" envDefault:"false"`

	// RedisURL is optional; without it the rate limiter and reference cache stay in process
	RedisURL string `env:"REDIS_URL"`

	JWTSecret string `env:"JWT_SECRET"`
	JWTIssuer string `env:"JWT_ISSUER" envDefault:"hirebridge"`

	SweepInterval  time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
	SweepBatchSize int           `env:"SWEEP_BATCH_SIZE" envDefault:"100"`

	RateLimitRequests int           `env:"RATE_LIMIT_REQUESTS" envDefault:"120"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`

	ReferenceCacheTTL time.Duration `env:"REFERENCE_CACHE_TTL" envDefault:"6h"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://localhost:3000"`

	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	return load(env.Options{})
}

// LoadFrom reads configuration from the given variables instead of the process environment
func LoadFrom(environ map[string]string) (*Config, error) {
	return load(env.Options{Environment: environ})
}

func load(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Validate rejects configurations the server cannot start with
func (c *Config) Validate() error {
	var errs []error
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid SERVER_PORT %d", c.ServerPort))
	}
	switch c.StoreDriver {
	case DriverPostgres, DriverSQLite, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}
	if c.StoreDriver == DriverSQLite && strings.TrimSpace(c.SQLitePath) == "" {
		errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite driver"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	} else if c.IsProduction() && len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 bytes in production"))
	}
	if c.SweepInterval <= 0 {
		errs = append(errs, fmt.Errorf("invalid SWEEP_INTERVAL %s", c.SweepInterval))
	}
	if c.SweepBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("invalid SWEEP_BATCH_SIZE %d", c.SweepBatchSize))
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive"))
	}
	return errors.Join(errs...)
}
