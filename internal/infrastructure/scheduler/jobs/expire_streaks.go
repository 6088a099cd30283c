// Package jobs holds the worker's scheduled jobs.
package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/radake/rada-ke/internal/domain/user"
	"github.com/radake/rada-ke/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXPIRE STREAKS JOB
// ══════════════════════════════════════════════════════════════════════════════

// ExpireStreaksJob zeroes the current streak of everyone who was not active
// yesterday or today. Awards already restart broken streaks lazily; this
// keeps stored streaks honest for users who stopped coming back.
type ExpireStreaksJob struct {
	users  user.Repository
	clock  timeutil.Clock
	logger *slog.Logger
}

// NewExpireStreaksJob creates the job.
func NewExpireStreaksJob(users user.Repository, logger *slog.Logger) *ExpireStreaksJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExpireStreaksJob{
		users:  users,
		clock:  timeutil.SystemClock,
		logger: logger.With("job", "expire_streaks"),
	}
}

func (j *ExpireStreaksJob) Name() string { return "expire_streaks" }

func (j *ExpireStreaksJob) Description() string {
	return "Resets current streaks that missed a Nairobi calendar day"
}

// Run expires every streak whose last active day is before yesterday.
func (j *ExpireStreaksJob) Run(ctx context.Context) error {
	cutoff := timeutil.Yesterday(j.clock())
	n, err := j.users.ExpireStreaks(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("expire streaks: %w", err)
	}
	j.logger.Info("streaks expired", "count", n, "cutoff", timeutil.DayKey(cutoff))
	return nil
}
