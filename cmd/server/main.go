package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/aryan0dhankhar/hirebridge/internal/domain"
	"github.com/aryan0dhankhar/hirebridge/internal/events"
	"github.com/aryan0dhankhar/hirebridge/internal/featureflags"
	"github.com/aryan0dhankhar/hirebridge/internal/handler"
	"github.com/aryan0dhankhar/hirebridge/internal/identity"
	"github.com/aryan0dhankhar/hirebridge/internal/infrastructure/logger"
	"github.com/aryan0dhankhar/hirebridge/internal/infrastructure/redis"
	"github.com/aryan0dhankhar/hirebridge/internal/observability/tracing"
	"github.com/aryan0dhankhar/hirebridge/internal/reliability/circuitbreaker"
	"github.com/aryan0dhankhar/hirebridge/internal/reliability/retry"
	"github.com/aryan0dhankhar/hirebridge/internal/repository"
	"github.com/aryan0dhankhar/hirebridge/internal/repository/memory"
	"github.com/aryan0dhankhar/hirebridge/internal/repository/sqlite"
	"github.com/aryan0dhankhar/hirebridge/internal/security"
	"github.com/aryan0dhankhar/hirebridge/internal/security/audit"
	"github.com/aryan0dhankhar/hirebridge/internal/security/auth"
	"github.com/aryan0dhankhar/hirebridge/internal/security/ratelimit"
	"github.com/aryan0dhankhar/hirebridge/internal/service"
	"github.com/aryan0dhankhar/hirebridge/internal/worker"
	"github.com/aryan0dhankhar/hirebridge/pkg/cache"
	"github.com/aryan0dhankhar/hirebridge/pkg/config"
	"github.com/aryan0dhankhar/hirebridge/pkg/database"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting HireBridge server",
		slog.String("environment", cfg.Environment),
		slog.String("store", cfg.StoreDriver),
	)

	// 3. Verify the capability table before serving anything
	catalog, err := security.DefaultCatalog()
	if err != nil {
		log.Error("invalid authorization configuration", slog.String("error", err.Error()))
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, log, cfg.OTLPEndpoint, "hirebridge", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Open the store
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	if cfg.SeedDemoData {
		if err := seedDemoData(ctx, store); err != nil {
			log.Error("failed to seed demo data", slog.String("error", err.Error()))
			os.Exit(1)
		}
		log.Info("demo data seeded")
	}

	// 5. Optional Redis for the shared rate limiter and reference cache
	memLimiter := ratelimit.NewLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	defer memLimiter.Stop()
	var (
		limiter        ratelimit.Allower      = memLimiter
		limiterBackend                        = "memory"
		referenceCache service.ReferenceCache = cache.New()
		redisPing      handler.Pinger
	)
	if cfg.RedisURL != "" {
		redisClient, err := redis.Connect(ctx, cfg.RedisURL, retry.DefaultConfig(), log)
		if err != nil {
			log.Error("failed to connect to Redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer redisClient.Close()

		limiter = ratelimit.NewRedisLimiter(redisClient.Raw(), cfg.RateLimitRequests, cfg.RateLimitWindow, memLimiter, log)
		limiterBackend = "redis"
		referenceCache = redisClient
		redisPing = redisClient
	}

	// 6. Initialize security components
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer)
	provider := auth.NewProvider(tokenManager, store, log)
	gate := security.NewAccessGate(catalog, log)
	auditLogger := audit.NewLogger(log)

	// 7. Initialize services
	hub := events.NewHub()
	entitlements := service.NewEntitlementService(store, log)
	introductions := service.NewIntroductionService(store, store, store, gate, entitlements, hub, auditLogger, log).
		WithExpireOnRead(featureflags.Enabled(featureflags.ExpireOnRead))
	reference := service.NewReferenceService(store, referenceCache, cfg.ReferenceCacheTTL, log)
	switcher := identity.NewSwitcher(provider, auditLogger, log)

	// 8. Start the expiry sweeper in background
	breaker := circuitbreaker.NewCircuitBreaker("store", 5, 1, 30*time.Second)
	breaker.SetStateChangeCallback(func(from, to circuitbreaker.State) {
		log.Warn("circuit breaker state changed",
			slog.String("breaker", breaker.Name()),
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})
	sweeper := worker.NewExpirySweeper(store, introductions, breaker, log, cfg.SweepInterval, cfg.SweepBatchSize)
	go sweeper.Start(ctx)

	// 9. Setup HTTP routes
	router := handler.NewRouter(handler.Dependencies{
		Provider:       provider,
		Gate:           gate,
		Limiter:        limiter,
		LimiterBackend: limiterBackend,
		Entitlements:   entitlements,
		Introductions:  introductions,
		Reference:      reference,
		Switcher:       switcher,
		Sweeper:        sweeper,
		Hub:            hub,
		Audit:          auditLogger,
		Health:         map[string]handler.Pinger{"store": store, "redis": redisPing},
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         log,
	})

	// 10. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      otelhttp.NewHandler(router, "hirebridge"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("rate_limit_backend", limiterBackend),
		slog.Int("rate_limit", cfg.RateLimitRequests),
		slog.Duration("rate_limit_window", cfg.RateLimitWindow),
		slog.Duration("sweep_interval", cfg.SweepInterval),
	)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-sigChan:
		log.Info("shutdown signal received")
	case err := <-serverErr:
		log.Error("server error", slog.String("error", err.Error()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}
	cancel() // Stop the sweeper
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}

// openStore opens the backend named by STORE_DRIVER
func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (domain.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		log.Warn("using in-memory store, data is lost on restart")
		return memory.New(), nil
	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.DriverPostgres:
		dbCfg := database.DefaultConfig()
		dbCfg.Host = cfg.DBHost
		dbCfg.Port = cfg.DBPort
		dbCfg.User = cfg.DBUser
		dbCfg.Password = cfg.DBPassword
		dbCfg.Database = cfg.DBName
		dbCfg.SSLMode = cfg.DBSSLMode
		dbCfg.MaxOpenConns = cfg.DBMaxOpenConns
		dbCfg.MaxIdleConns = cfg.DBMaxIdleConns
		dbCfg.ConnMaxLifetime = cfg.DBConnMaxLifetime

		pool, err := retry.Do(ctx, retry.DefaultConfig(), log, "connect postgres", func(ctx context.Context) (*database.ConnectionPool, error) {
			return database.NewConnectionPool(ctx, dbCfg, log)
		})
		if err != nil {
			return nil, err
		}
		store := repository.NewPostgresStore(pool.GetDB(), log)
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// seedDemoData loads a company and two professionals for local development
func seedDemoData(ctx context.Context, seeder domain.Seeder) error {
	now := time.Now().UTC()
	if err := seeder.SaveCompany(ctx, &domain.Company{
		ID:                  "demo-company",
		Name:                "Demo Talent Partners",
		Tier:                domain.TierProfessional,
		IntroductionCredits: 5,
		CreatedAt:           now,
		UpdatedAt:           now,
	}); err != nil {
		return err
	}
	for _, p := range []domain.Professional{
		{ID: "demo-pro-1", DisplayName: "Asha Rao", Verified: true, CreatedAt: now},
		{ID: "demo-pro-2", DisplayName: "Vikram Iyer", CreatedAt: now},
	} {
		if err := seeder.SaveProfessional(ctx, &p); err != nil {
			return err
		}
	}
	return nil
}
