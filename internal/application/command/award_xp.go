// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/radake/rada-ke/internal/domain/leaderboard"
	"github.com/radake/rada-ke/internal/domain/reward"
	"github.com/radake/rada-ke/internal/domain/shared"
	"github.com/radake/rada-ke/internal/domain/user"
	"github.com/radake/rada-ke/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// AWARD XP COMMAND
// The reward ledger. Every XP change in the system goes through here: the
// ledger row, the balance, the streak and badge unlocks commit together.
// ══════════════════════════════════════════════════════════════════════════════

// AwardXPCommand contains the data to grant XP.
type AwardXPCommand struct {
	UserID string
	Kind   reward.ActionKind
	Amount int
	Source reward.SourceRef

	// At overrides the award time; zero means now.
	At time.Time
}

// AwardXPResult contains the outcome of a committed award.
type AwardXPResult struct {
	Transaction *reward.Transaction

	// NewXP is the balance after the award.
	NewXP int
	Level user.Level

	// Entry is the user's unranked leaderboard row after the award.
	Entry          leaderboard.Entry
	Streak         user.Streak
	StreakExtended bool

	// UnlockedBadges lists badges first earned by this award.
	UnlockedBadges []reward.Badge

	// Events are published once the transaction has committed.
	Events []shared.Event
}

// XPEarned returns the amount granted, zero for a nil result.
func (r *AwardXPResult) XPEarned() int {
	if r == nil || r.Transaction == nil {
		return 0
	}
	return r.Transaction.Amount
}

// LeaderboardUpdater receives new balances after commit.
type LeaderboardUpdater interface {
	UpdateScore(ctx context.Context, e leaderboard.Entry) error
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// AwardXPHandler handles AwardXPCommand.
type AwardXPHandler struct {
	uow       reward.UnitOfWork
	publisher shared.EventPublisher
	board     LeaderboardUpdater
	clock     timeutil.Clock
	logger    *slog.Logger
}

// NewAwardXPHandler creates a new AwardXPHandler. board may be nil.
func NewAwardXPHandler(
	uow reward.UnitOfWork,
	publisher shared.EventPublisher,
	board LeaderboardUpdater,
	logger *slog.Logger,
) *AwardXPHandler {
	if publisher == nil {
		publisher = shared.NopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AwardXPHandler{
		uow:       uow,
		publisher: publisher,
		board:     board,
		clock:     timeutil.SystemClock,
		logger:    logger.With("handler", "award_xp"),
	}
}

// WithClock replaces the time source. Used by tests.
func (h *AwardXPHandler) WithClock(c timeutil.Clock) *AwardXPHandler {
	h.clock = c
	return h
}

// Now returns the handler's current time.
func (h *AwardXPHandler) Now() time.Time {
	return h.clock()
}

// Handle executes the award in its own transaction.
func (h *AwardXPHandler) Handle(ctx context.Context, cmd AwardXPCommand) (*AwardXPResult, error) {
	var res *AwardXPResult
	err := h.uow.Do(ctx, func(tx reward.Tx) error {
		var err error
		res, err = h.AwardInTx(ctx, tx, cmd)
		return err
	})
	if err != nil {
		return nil, err
	}

	h.AfterCommit(ctx, res)
	return res, nil
}

// AwardInTx performs the award inside a caller-owned transaction. Nothing is
// published; the caller must call AfterCommit once its transaction commits.
func (h *AwardXPHandler) AwardInTx(ctx context.Context, tx reward.Tx, cmd AwardXPCommand) (*AwardXPResult, error) {
	now := cmd.At
	if now.IsZero() {
		now = h.clock()
	}

	t, err := reward.NewTransaction(cmd.UserID, cmd.Kind, cmd.Amount, cmd.Source, now)
	if err != nil {
		return nil, err
	}

	u, err := tx.LockUser(ctx, t.UserID)
	if err != nil {
		return nil, err
	}

	if err := tx.AppendTransaction(ctx, t); err != nil {
		return nil, err
	}

	newXP, err := tx.IncrementXP(ctx, t.UserID, t.Amount)
	if err != nil {
		return nil, fmt.Errorf("award_xp: increment: %w", err)
	}

	extended := u.ApplyAward(t.Amount, now)
	u.XP = user.XP(newXP)
	if extended {
		u.Streak.UserID = u.ID
		if err := tx.SaveStreak(ctx, u.Streak); err != nil {
			return nil, fmt.Errorf("award_xp: save streak: %w", err)
		}
	}

	unlocked, err := h.evaluateBadges(ctx, tx, u)
	if err != nil {
		return nil, err
	}

	res := &AwardXPResult{
		Transaction:    t,
		NewXP:          newXP,
		Level:          u.Level(),
		Entry:          leaderboard.NewEntry(0, u.ID, u.Nickname, u.Emoji, u.Region, newXP),
		Streak:         u.Streak,
		StreakExtended: extended,
		UnlockedBadges: unlocked,
	}
	res.Events = append(res.Events,
		shared.NewXPAwardedEvent(u.ID, t.Kind.String(), t.Amount, newXP, int(res.Level)))
	if extended && u.Streak.Current > 1 {
		res.Events = append(res.Events,
			shared.NewStreakExtendedEvent(u.ID, u.Streak.Current, u.Streak.Longest))
	}
	for _, b := range unlocked {
		res.Events = append(res.Events, shared.NewBadgeUnlockedEvent(u.ID, b.Code, b.Name, b.Emoji))
	}
	return res, nil
}

// evaluateBadges grants every pending badge whose criteria the user now meets.
func (h *AwardXPHandler) evaluateBadges(ctx context.Context, tx reward.Tx, u *user.User) ([]reward.Badge, error) {
	all, err := tx.ListBadges(ctx)
	if err != nil {
		return nil, fmt.Errorf("award_xp: list badges: %w", err)
	}
	earned, err := tx.EarnedBadgeIDs(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("award_xp: earned badges: %w", err)
	}
	pending := reward.Pending(all, earned)
	if len(pending) == 0 {
		return nil, nil
	}

	progress := reward.Progress{
		XP:            int(u.XP),
		LongestStreak: u.Streak.Longest,
		ActionCounts:  make(map[reward.ActionKind]int),
	}
	for _, kind := range reward.CountedKinds(pending) {
		n, err := tx.CountActions(ctx, u.ID, kind)
		if err != nil {
			return nil, fmt.Errorf("award_xp: count %s: %w", kind, err)
		}
		progress.ActionCounts[kind] = n
	}

	var unlocked []reward.Badge
	for _, b := range reward.Eligible(pending, progress) {
		inserted, err := tx.GrantBadge(ctx, u.ID, b.ID, h.clock())
		if err != nil {
			return nil, fmt.Errorf("award_xp: grant %s: %w", b.Code, err)
		}
		if inserted {
			unlocked = append(unlocked, b)
		}
	}
	return unlocked, nil
}

// AfterCommit publishes events and refreshes the leaderboard for committed
// awards. Failures are logged and never reach the caller.
func (h *AwardXPHandler) AfterCommit(ctx context.Context, results ...*AwardXPResult) {
	for _, res := range results {
		if res == nil || res.Transaction == nil {
			continue
		}
		if err := h.publisher.Publish(ctx, res.Events...); err != nil {
			h.logger.Warn("failed to publish award events",
				"user_id", res.Transaction.UserID,
				"error", err,
			)
		}
		if h.board == nil {
			continue
		}
		if err := h.board.UpdateScore(ctx, res.Entry); err != nil {
			h.logger.Warn("failed to update leaderboard",
				"user_id", res.Transaction.UserID,
				"error", err,
			)
		}
	}
}
