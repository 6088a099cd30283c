package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/radake/rada-ke/internal/domain/leaderboard"
)

// ══════════════════════════════════════════════════════════════════════════════
// WARM LEADERBOARD JOB
// ══════════════════════════════════════════════════════════════════════════════

// Locker is a cross-process mutex. Several workers may run; only the lock
// holder rebuilds.
type Locker interface {
	AcquireLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name, owner string) error
}

// WarmLeaderboardJob reloads the cached boards from Postgres. Scores written
// after each award drift when the cache was down or evicted; a periodic
// rebuild makes the cache converge.
type WarmLeaderboardJob struct {
	repo    leaderboard.Repository
	cache   leaderboard.Cache
	locker  Locker
	owner   string
	lockTTL time.Duration
	logger  *slog.Logger
}

// NewWarmLeaderboardJob creates the job. locker may be nil for a single worker.
func NewWarmLeaderboardJob(
	repo leaderboard.Repository,
	cache leaderboard.Cache,
	locker Locker,
	logger *slog.Logger,
) *WarmLeaderboardJob {
	if logger == nil {
		logger = slog.Default()
	}
	host, _ := os.Hostname()
	return &WarmLeaderboardJob{
		repo:    repo,
		cache:   cache,
		locker:  locker,
		owner:   host + "/" + uuid.NewString(),
		lockTTL: 2 * time.Minute,
		logger:  logger.With("job", "warm_leaderboard"),
	}
}

func (j *WarmLeaderboardJob) Name() string { return "warm_leaderboard" }

func (j *WarmLeaderboardJob) Description() string {
	return "Rebuilds the cached national and regional leaderboards from the database"
}

// Run rebuilds the cache unless another worker holds the lock.
func (j *WarmLeaderboardJob) Run(ctx context.Context) error {
	if j.locker != nil {
		ok, err := j.locker.AcquireLock(ctx, j.Name(), j.owner, j.lockTTL)
		if err != nil {
			return fmt.Errorf("acquire lock: %w", err)
		}
		if !ok {
			j.logger.Debug("another worker is rebuilding, skipping")
			return nil
		}
		defer func() {
			// ctx may already be cancelled on shutdown.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := j.locker.ReleaseLock(releaseCtx, j.Name(), j.owner); err != nil {
				j.logger.Warn("failed to release lock", "error", err)
			}
		}()
	}

	start := time.Now()
	entries, err := j.repo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("load leaderboard: %w", err)
	}
	if err := j.cache.Rebuild(ctx, entries); err != nil {
		return fmt.Errorf("rebuild cache: %w", err)
	}

	j.logger.Info("leaderboard cache rebuilt",
		"entries", len(entries),
		"duration", time.Since(start).String(),
	)
	return nil
}
