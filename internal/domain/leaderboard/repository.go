package leaderboard

import (
	"context"

	"github.com/radake/rada-ke/internal/domain/shared"
)

// Repository reads the board from the system of record.
type Repository interface {
	// GetTop returns a page of the board ordered by XP.
	GetTop(ctx context.Context, scope Scope, page shared.Page) ([]Entry, error)

	// GetTotalCount returns how many users the scope holds.
	GetTotalCount(ctx context.Context, scope Scope) (int, error)

	// GetAll returns every (user, xp) pair, used to rebuild caches.
	GetAll(ctx context.Context) ([]Entry, error)
}

// Cache is a fast, possibly stale copy of the board.
type Cache interface {
	GetTop(ctx context.Context, scope Scope, page shared.Page) ([]Entry, error)
	GetRank(ctx context.Context, scope Scope, userID string) (Rank, error)
	Rebuild(ctx context.Context, entries []Entry) error
}
