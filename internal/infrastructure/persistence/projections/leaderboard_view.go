// Package projections holds the read side of Rada.ke: queries that never
// write and never join a ledger transaction. They run through sqlx over the
// same pool the write side uses.
package projections

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/radake/rada-ke/internal/domain/leaderboard"
	"github.com/radake/rada-ke/internal/domain/shared"
)

// DriverName is the database/sql driver registered by pgx/v5/stdlib.
const DriverName = "pgx"

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD VIEW
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardView reads the board straight from users. Ties are broken by
// user id so pages are stable.
type LeaderboardView struct {
	db *sqlx.DB
}

var _ leaderboard.Repository = (*LeaderboardView)(nil)

// NewLeaderboardView wraps sqlDB.
func NewLeaderboardView(sqlDB *sql.DB) *LeaderboardView {
	return &LeaderboardView{db: sqlx.NewDb(sqlDB, DriverName)}
}

// boardRow is one users row as the board sees it.
type boardRow struct {
	ID       string `db:"id"`
	Nickname string `db:"nickname"`
	Emoji    string `db:"emoji"`
	Region   string `db:"region"`
	XP       int    `db:"xp"`
}

func (r boardRow) entry(rank leaderboard.Rank) leaderboard.Entry {
	return leaderboard.NewEntry(rank, r.ID, r.Nickname, r.Emoji, shared.Region(r.Region), r.XP)
}

// GetTop returns one page of scope ordered by XP.
func (v *LeaderboardView) GetTop(ctx context.Context, scope leaderboard.Scope, page shared.Page) ([]leaderboard.Entry, error) {
	var rows []boardRow
	err := v.db.SelectContext(ctx, &rows, `
		SELECT id, nickname, emoji, region, xp
		FROM users
		WHERE $1 = '' OR region = $1
		ORDER BY xp DESC, id
		LIMIT $2 OFFSET $3
	`, string(scope.Region), page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}

	entries := make([]leaderboard.Entry, len(rows))
	for i, r := range rows {
		entries[i] = r.entry(leaderboard.Rank(page.Offset + i + 1))
	}
	return entries, nil
}

// GetTotalCount returns how many users scope holds.
func (v *LeaderboardView) GetTotalCount(ctx context.Context, scope leaderboard.Scope) (int, error) {
	var n int
	err := v.db.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM users WHERE $1 = '' OR region = $1
	`, string(scope.Region))
	if err != nil {
		return 0, fmt.Errorf("failed to count leaderboard: %w", err)
	}
	return n, nil
}

// GetAll returns the national board in rank order.
func (v *LeaderboardView) GetAll(ctx context.Context) ([]leaderboard.Entry, error) {
	var rows []boardRow
	err := v.db.SelectContext(ctx, &rows, `
		SELECT id, nickname, emoji, region, xp
		FROM users
		ORDER BY xp DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}

	entries := make([]leaderboard.Entry, len(rows))
	for i, r := range rows {
		entries[i] = r.entry(leaderboard.Rank(i + 1))
	}
	return entries, nil
}
