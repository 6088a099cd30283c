// Package main is the Rada.ke API server.
//
// Start-up order matters: the process refuses to serve unless the database
// answers and every table in the schema registry exists afterwards. Redis,
// object storage and admin login are optional and degrade individual
// features when absent.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/radake/rada-ke/config"
	"github.com/radake/rada-ke/internal/application/command"
	"github.com/radake/rada-ke/internal/application/query"
	"github.com/radake/rada-ke/internal/domain/leaderboard"
	"github.com/radake/rada-ke/internal/domain/shared"
	"github.com/radake/rada-ke/internal/infrastructure/messaging"
	"github.com/radake/rada-ke/internal/infrastructure/notify"
	"github.com/radake/rada-ke/internal/infrastructure/persistence/catalog"
	"github.com/radake/rada-ke/internal/infrastructure/persistence/postgres"
	"github.com/radake/rada-ke/internal/infrastructure/persistence/projections"
	"github.com/radake/rada-ke/internal/infrastructure/persistence/redis"
	"github.com/radake/rada-ke/internal/infrastructure/storage"
	httpserver "github.com/radake/rada-ke/internal/interface/http"
	"github.com/radake/rada-ke/internal/interface/http/handlers"
	"github.com/radake/rada-ke/pkg/logger"
	"github.com/radake/rada-ke/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	httpLog := logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     logger.ParseLevel(cfg.Log.Level),
		AddCaller: cfg.App.Debug,
	}).With(logger.String("service", cfg.App.Name))

	log.Info("starting Rada.ke API",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"timezone", cfg.App.Location.String(),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. DATABASE
	// ─────────────────────────────────────────────────────────────────────────
	dbConn, err := connectDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing database connection")
		dbConn.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 4. SCHEMA RECONCILIATION
	// ─────────────────────────────────────────────────────────────────────────
	reconciler, err := postgres.NewReconciler(postgres.NewPGCatalog(dbConn), postgres.DefaultRegistry(), log)
	if err != nil {
		return fmt.Errorf("schema registry: %w", err)
	}
	result, err := reconciler.Reconcile(ctx)
	if err != nil {
		return fmt.Errorf("schema reconciliation: %w", err)
	}
	log.Info("schema reconciled",
		"present", len(result.Present),
		"created", len(result.Created),
		"failed", len(result.Failed),
		"duration", result.Duration,
	)
	if err := result.Err(); err != nil {
		return err
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REDIS (optional)
	// ─────────────────────────────────────────────────────────────────────────
	var (
		cache      *redis.Cache
		boardCache *redis.LeaderboardCache
	)
	if cfg.RedisEnabled() {
		cache, err = connectRedis(ctx, cfg, log)
		if err != nil {
			log.Warn("redis unavailable, caching and shared limits disabled", "error", err)
			cache = nil
		} else {
			defer cache.Close()
			log.Info("redis connection established")
			if cfg.Features.IsEnabled(config.FeatureLeaderboardCache, "") {
				boardCache = redis.NewLeaderboardCache(cache)
			}
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. REPOSITORIES
	// ─────────────────────────────────────────────────────────────────────────
	users := postgres.NewUserRepository(dbConn)
	learningRepo := postgres.NewLearningRepository(dbConn)
	communityRepo := postgres.NewCommunityRepository(dbConn)
	badges := postgres.NewBadgeRepository(dbConn)
	uow := postgres.NewUnitOfWork(dbConn)

	civicRepo, err := catalog.Open(dbConn.SQLDB(), cfg.Database.LogQueries)
	if err != nil {
		return fmt.Errorf("civic catalogue: %w", err)
	}
	board := projections.NewLeaderboardView(dbConn.SQLDB())
	ledger := projections.NewLedgerView(dbConn.SQLDB())

	// ─────────────────────────────────────────────────────────────────────────
	// 7. EVENTS
	// ─────────────────────────────────────────────────────────────────────────
	localBus := messaging.NewLocalBus(log)
	var publisher shared.EventPublisher = localBus

	hub := notify.NewHub(cfg.HTTP.AllowedOrigins, log)
	go hub.Run(ctx)
	localBus.SubscribeAll(hub.Deliver)

	if cache != nil && cfg.Features.IsEnabled(config.FeatureRealtimeFanout, "") {
		redisBus := messaging.NewRedisBus(messaging.GoRedis{Client: cache.Client()}, localBus, cfg.Redis.EventChannel, log)
		if err := redisBus.Start(ctx); err != nil {
			log.Warn("event fan-out disabled", "error", err)
		} else {
			defer redisBus.Close()
			publisher = redisBus
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. OBJECT STORAGE (optional)
	// ─────────────────────────────────────────────────────────────────────────
	var media command.MediaStore
	if cfg.Storage.Enabled() && cfg.Features.IsEnabled(config.FeatureMemoryPhotos, "") {
		uploader, err := storage.NewS3Uploader(ctx, storage.Config{
			Endpoint:        cfg.Storage.Endpoint,
			Region:          cfg.Storage.Region,
			Bucket:          cfg.Storage.Bucket,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
			PublicBaseURL:   cfg.Storage.PublicBaseURL,
			MaxUploadBytes:  cfg.HTTP.MaxUploadBytes,
		}, httpLog)
		if err != nil {
			log.Warn("photo uploads disabled", "error", err)
		} else {
			media = uploader
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	var (
		boardReads   leaderboard.Cache
		boardUpdates command.LeaderboardUpdater
	)
	if boardCache != nil {
		boardReads = boardCache
		boardUpdates = boardCache
	}

	awards := command.NewAwardXPHandler(uow, publisher, boardUpdates, log)

	deps := httpserver.Dependencies{
		Users:   command.NewUserHandler(users),
		Awards:  awards,
		Quizzes: command.NewSubmitQuizHandler(learningRepo, uow, awards),
		Actions: command.NewCivicActionsHandler(communityRepo, learningRepo, uow, awards),
		Content: command.NewContentHandler(learningRepo, communityRepo, badges, media),
		Catalog: command.NewCatalogHandler(civicRepo, log),

		Leaderboard: query.NewGetLeaderboardHandler(board, boardReads, log),
		Profiles:    query.NewGetProfileHandler(users, badges, ledger, boardReads),
		Memories:    query.NewGetMemoryHandler(communityRepo, ledger),

		Learning:  learningRepo,
		Community: communityRepo,
		Civic:     civicRepo,

		Reconciler:    reconciler,
		HealthChecker: healthChecker(cfg, dbConn, cache),
		Events:        realtimeGate(cfg.Features, hub),
		Logger:        httpLog,
	}

	if cfg.Admin.Enabled() {
		deps.Auth = handlers.NewAdminAuth(cfg.Admin.Username, cfg.Admin.PasswordHash, cfg.Admin.JWTSecret, cfg.Admin.TokenTTL)
	} else {
		log.Warn("admin login is not configured, admin endpoints answer 503")
	}
	if cache != nil && cfg.Features.IsEnabled(config.FeatureSharedRateLimit, "") {
		deps.RateLimiter = cache
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 10. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	httpConfig := httpserver.DefaultConfig()
	httpConfig.Host = cfg.HTTP.Host
	httpConfig.Port = cfg.HTTP.Port
	httpConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	httpConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	httpConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	httpConfig.MaxBodyBytes = cfg.HTTP.MaxBodyBytes
	httpConfig.MaxUploadBytes = cfg.HTTP.MaxUploadBytes
	httpConfig.AllowedOrigins = cfg.HTTP.AllowedOrigins
	httpConfig.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
	httpConfig.Version = cfg.App.Version

	server := httpserver.NewServer(httpConfig, deps)
	errCh := server.StartAsync()

	log.Info("Rada.ke API is running", "address", httpConfig.Address())

	// ─────────────────────────────────────────────────────────────────────────
	// 11. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	select {
	case <-ctx.Done():
		log.Info("received shutdown signal")
	case err, ok := <-errCh:
		if ok && err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", "error", err)
		return err
	}
	log.Info("shutdown completed", "published_events", localBus.Published())
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// connectDatabase retries while Postgres comes up and gives up after the
// startup budget, which makes the process exit non-zero.
func connectDatabase(ctx context.Context, cfg *config.Config, log *slog.Logger) (*postgres.Connection, error) {
	pgCfg := postgres.DefaultConfig()
	pgCfg.URL = cfg.Database.URL
	pgCfg.MaxConns = cfg.Database.MaxConns
	pgCfg.MinConns = cfg.Database.MinConns
	pgCfg.MaxConnLifetime = cfg.Database.MaxConnLifetime
	pgCfg.MaxConnIdleTime = cfg.Database.MaxConnIdleTime
	pgCfg.ConnectTimeout = cfg.Database.ConnectTimeout

	retrier := retry.StartupRetrier(func(attempt int, err error, delay time.Duration) {
		log.Warn("database not reachable yet", "attempt", attempt, "retry_in", delay, "error", err)
	})

	var conn *postgres.Connection
	err := retrier.Do(ctx, func(ctx context.Context) error {
		var err error
		conn, err = postgres.NewConnection(ctx, pgCfg)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	log.Info("database connection established")
	return conn, nil
}

// connectRedis gives redis a few quick tries; callers run without it on error.
func connectRedis(ctx context.Context, cfg *config.Config, log *slog.Logger) (*redis.Cache, error) {
	var cache *redis.Cache
	err := retry.CacheRetrier(func(attempt int, err error, delay time.Duration) {
		log.Warn("redis not reachable yet", "attempt", attempt, "retry_in", delay, "error", err)
	}).Do(ctx, func(ctx context.Context) error {
		var err error
		cache, err = redis.NewCache(ctx, redisConfig(cfg))
		return err
	})
	return cache, err
}

func redisConfig(cfg *config.Config) redis.Config {
	rc := redis.DefaultConfig()
	rc.URL = cfg.Redis.URL
	rc.Host = cfg.Redis.Host
	rc.Port = cfg.Redis.Port
	rc.Password = cfg.Redis.Password
	rc.DB = cfg.Redis.DB
	rc.PoolSize = cfg.Redis.PoolSize
	rc.MinIdleConns = cfg.Redis.MinIdleConns
	rc.DialTimeout = cfg.Redis.DialTimeout
	rc.ReadTimeout = cfg.Redis.ReadTimeout
	rc.WriteTimeout = cfg.Redis.WriteTimeout
	return rc
}

func healthChecker(cfg *config.Config, db *postgres.Connection, cache *redis.Cache) *handlers.CompositeHealthChecker {
	hc := handlers.NewCompositeHealthChecker(cfg.App.Version)
	hc.AddCheck("postgres", handlers.PingCheck(db))
	if cache != nil {
		hc.AddOptionalCheck("redis", handlers.PingCheck(cache))
	}
	return hc
}

// realtimeGate serves the websocket hub to users inside the rollout.
func realtimeGate(flags *config.FeatureFlags, hub http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !flags.IsEnabled(config.FeatureRealtimeEvents, r.URL.Query().Get("user_id")) {
			http.NotFound(w, r)
			return
		}
		hub.ServeHTTP(w, r)
	})
}

func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if cfg.App.Debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Log.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	log := slog.New(handler).With("service", cfg.App.Name)
	slog.SetDefault(log)
	return log
}
