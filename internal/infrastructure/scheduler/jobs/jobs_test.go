package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radake/rada-ke/internal/domain/leaderboard"
	"github.com/radake/rada-ke/internal/domain/shared"
	"github.com/radake/rada-ke/internal/domain/user"
	"github.com/radake/rada-ke/pkg/timeutil"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// ─────────────────────────────────────────────────────────────────────────────
// Fakes
// ─────────────────────────────────────────────────────────────────────────────

type fakeUsers struct {
	user.Repository
	cutoff time.Time
	err    error
}

func (f *fakeUsers) ExpireStreaks(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 3, f.err
}

type fakeBoard struct {
	entries []leaderboard.Entry
	err     error
}

func (f *fakeBoard) GetTop(context.Context, leaderboard.Scope, shared.Page) ([]leaderboard.Entry, error) {
	return nil, nil
}

func (f *fakeBoard) GetTotalCount(context.Context, leaderboard.Scope) (int, error) { return 0, nil }

func (f *fakeBoard) GetAll(context.Context) ([]leaderboard.Entry, error) { return f.entries, f.err }

type fakeCache struct {
	rebuilt [][]leaderboard.Entry
}

func (f *fakeCache) GetTop(context.Context, leaderboard.Scope, shared.Page) ([]leaderboard.Entry, error) {
	return nil, nil
}

func (f *fakeCache) GetRank(context.Context, leaderboard.Scope, string) (leaderboard.Rank, error) {
	return 0, nil
}

func (f *fakeCache) Rebuild(_ context.Context, entries []leaderboard.Entry) error {
	f.rebuilt = append(f.rebuilt, entries)
	return nil
}

type fakeLocker struct {
	held     bool
	released bool
}

func (f *fakeLocker) AcquireLock(context.Context, string, string, time.Duration) (bool, error) {
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLocker) ReleaseLock(context.Context, string, string) error {
	f.held = false
	f.released = true
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────────────────────────────────────

func TestExpireStreaksUsesYesterdayCutoff(t *testing.T) {
	users := &fakeUsers{}
	job := NewExpireStreaksJob(users, quiet)
	// 22:30 UTC on the 9th is already the 10th in Nairobi.
	job.clock = func() time.Time { return time.Date(2024, 5, 9, 22, 30, 0, 0, time.UTC) }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, "2024-05-09", timeutil.DayKey(users.cutoff))

	users.err = errors.New("db down")
	assert.Error(t, job.Run(context.Background()))
}

func TestWarmLeaderboardRebuildsCache(t *testing.T) {
	board := &fakeBoard{entries: []leaderboard.Entry{
		leaderboard.NewEntry(1, "u1", "a", "", "nairobi", 100),
		leaderboard.NewEntry(2, "u2", "b", "", "mombasa", 50),
	}}
	cache := &fakeCache{}
	locker := &fakeLocker{}
	job := NewWarmLeaderboardJob(board, cache, locker, quiet)

	require.NoError(t, job.Run(context.Background()))
	require.Len(t, cache.rebuilt, 1)
	assert.Len(t, cache.rebuilt[0], 2)
	assert.True(t, locker.released)
}

func TestWarmLeaderboardSkipsWhenLocked(t *testing.T) {
	cache := &fakeCache{}
	job := NewWarmLeaderboardJob(&fakeBoard{}, cache, &fakeLocker{held: true}, quiet)

	require.NoError(t, job.Run(context.Background()))
	assert.Empty(t, cache.rebuilt)
}

func TestWarmLeaderboardPropagatesLoadError(t *testing.T) {
	cache := &fakeCache{}
	job := NewWarmLeaderboardJob(&fakeBoard{err: errors.New("db down")}, cache, nil, quiet)

	assert.Error(t, job.Run(context.Background()))
	assert.Empty(t, cache.rebuilt)
}
