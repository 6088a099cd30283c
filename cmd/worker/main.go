// Package main is the Rada.ke background worker.
//
// The worker runs periodic maintenance:
// - expiring streaks of users who missed a Nairobi calendar day
// - rebuilding the redis leaderboards from Postgres
//
// Several workers may run at once; the leaderboard rebuild takes a redis
// lock and streak expiry is an idempotent UPDATE.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/radake/rada-ke/config"
	"github.com/radake/rada-ke/internal/infrastructure/persistence/postgres"
	"github.com/radake/rada-ke/internal/infrastructure/persistence/projections"
	"github.com/radake/rada-ke/internal/infrastructure/persistence/redis"
	"github.com/radake/rada-ke/internal/infrastructure/scheduler"
	"github.com/radake/rada-ke/internal/infrastructure/scheduler/jobs"
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
	// 1. CONFIGURATION AND LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := setupLogger(cfg)

	if !cfg.Scheduler.Enabled {
		log.Info("scheduler disabled, nothing to do")
		return nil
	}
	log.Info("starting Rada.ke worker",
		"env", cfg.App.Environment,
		"timezone", cfg.App.Location.String(),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. DATABASE
	// ─────────────────────────────────────────────────────────────────────────
	pgCfg := postgres.DefaultConfig()
	pgCfg.URL = cfg.Database.URL
	pgCfg.MaxConns = 4
	pgCfg.MinConns = 1
	pgCfg.ConnectTimeout = cfg.Database.ConnectTimeout

	var dbConn *postgres.Connection
	retrier := retry.StartupRetrier(func(attempt int, err error, delay time.Duration) {
		log.Warn("database not reachable yet", "attempt", attempt, "retry_in", delay, "error", err)
	})
	if err := retrier.Do(ctx, func(ctx context.Context) error {
		var err error
		dbConn, err = postgres.NewConnection(ctx, pgCfg)
		return err
	}); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	defer dbConn.Close()

	// The jobs touch users and xp_transactions, so the schema must be whole.
	reconciler, err := postgres.NewReconciler(postgres.NewPGCatalog(dbConn), postgres.DefaultRegistry(), log)
	if err != nil {
		return fmt.Errorf("schema registry: %w", err)
	}
	result, err := reconciler.Reconcile(ctx)
	if err != nil {
		return fmt.Errorf("schema reconciliation: %w", err)
	}
	if err := result.Err(); err != nil {
		return err
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	sched, err := scheduler.New(scheduler.Config{
		Logger:   log,
		Location: cfg.App.Location,
	})
	if err != nil {
		return err
	}
	sched.OnJobError(func(jobName string, err error) {
		log.Error("job failed", "job", jobName, "error", err)
	})

	users := postgres.NewUserRepository(dbConn)
	if err := sched.Register(jobs.NewExpireStreaksJob(users, log), scheduler.Every(cfg.Scheduler.StreakExpiryInterval)); err != nil {
		return err
	}

	var warmJob string
	if cfg.RedisEnabled() && cfg.Features.IsEnabled(config.FeatureLeaderboardCache, "") {
		cache, err := connectRedis(ctx, cfg, log)
		if err != nil {
			log.Warn("redis unavailable, leaderboard warm-up disabled", "error", err)
		} else {
			defer cache.Close()
			job := jobs.NewWarmLeaderboardJob(
				projections.NewLeaderboardView(dbConn.SQLDB()),
				redis.NewLeaderboardCache(cache),
				cache,
				log,
			)
			if err := sched.Register(job, scheduler.Every(cfg.Scheduler.LeaderboardWarmInterval)); err != nil {
				return err
			}
			warmJob = job.Name()
		}
	}

	if err := sched.Start(ctx); err != nil {
		return err
	}
	log.Info("worker is running", "jobs", len(sched.ListJobs()))

	// A fresh deploy should not serve a cold board for a whole interval.
	if warmJob != "" {
		if res, err := sched.RunNow(ctx, warmJob); err != nil {
			log.Warn("initial leaderboard warm-up failed", "error", err)
		} else {
			log.Info("initial leaderboard warm-up done", "duration", res.Duration)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	<-ctx.Done()
	log.Info("received shutdown signal")

	if err := sched.Stop(); err != nil {
		log.Error("failed to stop scheduler", "error", err)
		return err
	}
	m := sched.GetMetrics().Snapshot()
	log.Info("shutdown completed", "executions", m.TotalExecutions, "failures", m.TotalFailures)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

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
	rc.PoolSize = 4
	rc.DialTimeout = cfg.Redis.DialTimeout
	rc.ReadTimeout = cfg.Redis.ReadTimeout
	rc.WriteTimeout = cfg.Redis.WriteTimeout
	return rc
}

func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.App.Debug || cfg.Log.Level == "debug" {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Log.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	log := slog.New(handler).With("service", cfg.App.Name+"-worker")
	slog.SetDefault(log)
	return log
}
