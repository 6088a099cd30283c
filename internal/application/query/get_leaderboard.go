// Package query contains read operations following CQRS pattern.
// Queries never modify state; they only read and return data.
package query

import (
	"context"
	"log/slog"
	"time"

	"github.com/radake/rada-ke/internal/domain/leaderboard"
	"github.com/radake/rada-ke/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Top users by XP, nationally or for one region. Served from the cache when
// it has data, otherwise from the database.
// ══════════════════════════════════════════════════════════════════════════════

// GetLeaderboardQuery contains the leaderboard request parameters.
type GetLeaderboardQuery struct {
	// Region filters to one region; empty means national.
	Region string
	Limit  int
	Offset int
}

// LeaderboardEntryDTO is one leaderboard row.
type LeaderboardEntryDTO struct {
	Rank     int    `json:"rank"`
	UserID   string `json:"user_id"`
	Nickname string `json:"nickname"`
	Emoji    string `json:"emoji"`
	Region   string `json:"region,omitempty"`
	XP       int    `json:"xp"`
	Level    int    `json:"level"`
}

// GetLeaderboardResult contains one page of the board.
type GetLeaderboardResult struct {
	Entries     []LeaderboardEntryDTO `json:"entries"`
	TotalCount  int                   `json:"total_count"`
	Scope       string                `json:"scope"`
	Source      string                `json:"source"`
	HasMore     bool                  `json:"has_more"`
	GeneratedAt time.Time             `json:"generated_at"`
}

// GetLeaderboardHandler handles leaderboard queries.
type GetLeaderboardHandler struct {
	repo   leaderboard.Repository
	cache  leaderboard.Cache
	logger *slog.Logger
}

// NewGetLeaderboardHandler creates a new handler. cache may be nil.
func NewGetLeaderboardHandler(repo leaderboard.Repository, cache leaderboard.Cache, logger *slog.Logger) *GetLeaderboardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GetLeaderboardHandler{
		repo:   repo,
		cache:  cache,
		logger: logger.With("handler", "get_leaderboard"),
	}
}

// Handle executes the query.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, q GetLeaderboardQuery) (*GetLeaderboardResult, error) {
	scope := leaderboard.Scope{Region: shared.NormalizeRegion(q.Region)}
	page := shared.NewPage(q.Limit, q.Offset)

	entries, source := h.fromCache(ctx, scope, page)
	if entries == nil {
		var err error
		entries, err = h.repo.GetTop(ctx, scope, page)
		if err != nil {
			return nil, shared.WrapError("query", "GetLeaderboard", shared.ErrPersistence, "failed to load leaderboard", err)
		}
		source = "database"
	}

	total, err := h.repo.GetTotalCount(ctx, scope)
	if err != nil {
		total = page.Offset + len(entries)
	}

	dtos := make([]LeaderboardEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = LeaderboardEntryDTO{
			Rank:     int(e.Rank),
			UserID:   e.UserID,
			Nickname: e.Nickname,
			Emoji:    e.Emoji,
			Region:   string(e.Region),
			XP:       e.XP,
			Level:    e.Level,
		}
	}

	return &GetLeaderboardResult{
		Entries:     dtos,
		TotalCount:  total,
		Scope:       scope.String(),
		Source:      source,
		HasMore:     page.Offset+len(entries) < total,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// fromCache returns nil entries when the cache is absent, failing or empty.
func (h *GetLeaderboardHandler) fromCache(ctx context.Context, scope leaderboard.Scope, page shared.Page) ([]leaderboard.Entry, string) {
	if h.cache == nil {
		return nil, ""
	}
	entries, err := h.cache.GetTop(ctx, scope, page)
	if err != nil {
		h.logger.Warn("leaderboard cache read failed", "scope", scope.String(), "error", err)
		return nil, ""
	}
	if len(entries) == 0 {
		return nil, ""
	}
	return entries, "cache"
}
