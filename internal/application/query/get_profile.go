package query

import (
	"context"
	"time"

	"github.com/radake/rada-ke/internal/domain/leaderboard"
	"github.com/radake/rada-ke/internal/domain/reward"
	"github.com/radake/rada-ke/internal/domain/shared"
	"github.com/radake/rada-ke/internal/domain/user"
	"github.com/radake/rada-ke/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROFILE QUERY
// ══════════════════════════════════════════════════════════════════════════════

const recentTransactions = 20

// BadgeDTO is an earned badge.
type BadgeDTO struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Emoji    string `json:"emoji"`
	EarnedAt string `json:"earned_at"`
}

// TransactionDTO is one ledger row.
type TransactionDTO struct {
	Kind      string `json:"kind"`
	Amount    int    `json:"amount"`
	Source    string `json:"source,omitempty"`
	CreatedAt string `json:"created_at"`
}

// ProfileDTO is the public view of a user.
type ProfileDTO struct {
	UserID         string           `json:"user_id"`
	Nickname       string           `json:"nickname"`
	Emoji          string           `json:"emoji"`
	Region         string           `json:"region,omitempty"`
	XP             int              `json:"xp"`
	Level          int              `json:"level"`
	XPToNextLevel  int              `json:"xp_to_next_level"`
	CurrentStreak  int              `json:"current_streak"`
	LongestStreak  int              `json:"longest_streak"`
	LastActiveDate string           `json:"last_active_date,omitempty"`
	DaysUntilBreak int              `json:"days_until_break"`
	Rank           int              `json:"rank,omitempty"`
	Badges         []BadgeDTO       `json:"badges"`
	RecentActivity []TransactionDTO `json:"recent_activity"`
}

// GetProfileHandler assembles a user profile.
type GetProfileHandler struct {
	users  user.Repository
	badges reward.BadgeRepository
	ledger reward.TransactionReader
	ranks  leaderboard.Cache
	clock  timeutil.Clock
}

// NewGetProfileHandler creates a new handler. ranks may be nil.
func NewGetProfileHandler(
	users user.Repository,
	badges reward.BadgeRepository,
	ledger reward.TransactionReader,
	ranks leaderboard.Cache,
) *GetProfileHandler {
	return &GetProfileHandler{
		users:  users,
		badges: badges,
		ledger: ledger,
		ranks:  ranks,
		clock:  timeutil.SystemClock,
	}
}

// Handle executes the query.
func (h *GetProfileHandler) Handle(ctx context.Context, userID string) (*ProfileDTO, error) {
	if err := shared.RequireID("user", "GetProfile", "user_id", userID); err != nil {
		return nil, err
	}

	u, err := h.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	earned, err := h.badges.ListEarned(ctx, userID)
	if err != nil {
		return nil, shared.WrapError("query", "GetProfile", shared.ErrPersistence, "failed to load badges", err)
	}
	txs, err := h.ledger.ListByUser(ctx, userID, recentTransactions)
	if err != nil {
		return nil, shared.WrapError("query", "GetProfile", shared.ErrPersistence, "failed to load activity", err)
	}

	dto := &ProfileDTO{
		UserID:         u.ID,
		Nickname:       u.Nickname,
		Emoji:          u.Emoji,
		Region:         string(u.Region),
		XP:             int(u.XP),
		Level:          int(u.Level()),
		XPToNextLevel:  user.XPToNextLevel(u.XP),
		CurrentStreak:  u.Streak.Current,
		LongestStreak:  u.Streak.Longest,
		DaysUntilBreak: u.Streak.DaysUntilBreak(h.clock()),
		Badges:         make([]BadgeDTO, 0, len(earned)),
		RecentActivity: make([]TransactionDTO, 0, len(txs)),
	}
	if !u.Streak.LastActiveDate.IsZero() {
		dto.LastActiveDate = timeutil.DayKey(u.Streak.LastActiveDate)
	}
	if h.ranks != nil {
		if rank, err := h.ranks.GetRank(ctx, leaderboard.National, u.ID); err == nil {
			dto.Rank = int(rank)
		}
	}

	for _, e := range earned {
		dto.Badges = append(dto.Badges, BadgeDTO{
			Code:     e.Badge.Code,
			Name:     e.Badge.Name,
			Emoji:    e.Badge.Emoji,
			EarnedAt: e.EarnedAt.UTC().Format(time.RFC3339),
		})
	}
	for _, t := range txs {
		item := TransactionDTO{
			Kind:      t.Kind.String(),
			Amount:    t.Amount,
			CreatedAt: t.CreatedAt.UTC().Format(time.RFC3339),
		}
		if !t.Source.IsZero() {
			item.Source = t.Source.String()
		}
		dto.RecentActivity = append(dto.RecentActivity, item)
	}
	return dto, nil
}
