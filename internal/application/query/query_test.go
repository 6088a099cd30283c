package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radake/rada-ke/internal/domain/community"
	"github.com/radake/rada-ke/internal/domain/leaderboard"
	"github.com/radake/rada-ke/internal/domain/reward"
	"github.com/radake/rada-ke/internal/domain/shared"
	"github.com/radake/rada-ke/internal/domain/user"
)

type fakeBoardRepo struct {
	entries []leaderboard.Entry
	calls   int
}

func (r *fakeBoardRepo) GetTop(_ context.Context, scope leaderboard.Scope, page shared.Page) ([]leaderboard.Entry, error) {
	r.calls++
	var out []leaderboard.Entry
	for _, e := range r.entries {
		if !scope.IsRegional() || e.Region == scope.Region {
			out = append(out, e)
		}
	}
	leaderboard.AssignRanks(out, 0)
	if page.Offset >= len(out) {
		return nil, nil
	}
	end := page.Offset + page.Limit
	if end > len(out) {
		end = len(out)
	}
	return out[page.Offset:end], nil
}

func (r *fakeBoardRepo) GetTotalCount(_ context.Context, scope leaderboard.Scope) (int, error) {
	n := 0
	for _, e := range r.entries {
		if !scope.IsRegional() || e.Region == scope.Region {
			n++
		}
	}
	return n, nil
}

func (r *fakeBoardRepo) GetAll(context.Context) ([]leaderboard.Entry, error) {
	return r.entries, nil
}

type fakeBoardCache struct {
	entries []leaderboard.Entry
	err     error
}

func (c *fakeBoardCache) GetTop(context.Context, leaderboard.Scope, shared.Page) ([]leaderboard.Entry, error) {
	return c.entries, c.err
}

func (c *fakeBoardCache) GetRank(_ context.Context, _ leaderboard.Scope, userID string) (leaderboard.Rank, error) {
	for _, e := range c.entries {
		if e.UserID == userID {
			return e.Rank, nil
		}
	}
	return 0, errors.New("not ranked")
}

func (c *fakeBoardCache) Rebuild(context.Context, []leaderboard.Entry) error { return nil }

func sampleEntries() []leaderboard.Entry {
	return []leaderboard.Entry{
		leaderboard.NewEntry(0, "u1", "amani", "🦁", "nairobi", 120),
		leaderboard.NewEntry(0, "u2", "baraka", "🐘", "mombasa", 900),
		leaderboard.NewEntry(0, "u3", "chege", "🦒", "nairobi", 400),
	}
}

func TestGetLeaderboard_FallsBackToDatabase(t *testing.T) {
	repo := &fakeBoardRepo{entries: sampleEntries()}
	h := NewGetLeaderboardHandler(repo, &fakeBoardCache{err: errors.New("redis down")}, nil)

	res, err := h.Handle(context.Background(), GetLeaderboardQuery{Limit: 2})
	require.NoError(t, err)

	assert.Equal(t, "database", res.Source)
	assert.Equal(t, "national", res.Scope)
	assert.Equal(t, 3, res.TotalCount)
	assert.True(t, res.HasMore)
	require.Len(t, res.Entries, 2)
	assert.Equal(t, "baraka", res.Entries[0].Nickname)
	assert.Equal(t, 1, res.Entries[0].Rank)
	assert.Equal(t, 4, res.Entries[0].Level)
	assert.Equal(t, "chege", res.Entries[1].Nickname)
}

func TestGetLeaderboard_RegionalFromDatabase(t *testing.T) {
	repo := &fakeBoardRepo{entries: sampleEntries()}
	h := NewGetLeaderboardHandler(repo, nil, nil)

	res, err := h.Handle(context.Background(), GetLeaderboardQuery{Region: " Nairobi "})
	require.NoError(t, err)
	assert.Equal(t, "nairobi", res.Scope)
	require.Len(t, res.Entries, 2)
	assert.Equal(t, "u3", res.Entries[0].UserID)
	assert.False(t, res.HasMore)
}

func TestGetLeaderboard_PrefersCache(t *testing.T) {
	cached := sampleEntries()[:1]
	cached[0].Rank = 1
	repo := &fakeBoardRepo{entries: sampleEntries()}
	h := NewGetLeaderboardHandler(repo, &fakeBoardCache{entries: cached}, nil)

	res, err := h.Handle(context.Background(), GetLeaderboardQuery{})
	require.NoError(t, err)
	assert.Equal(t, "cache", res.Source)
	assert.Zero(t, repo.calls)
	require.Len(t, res.Entries, 1)
}

type fakeUsers struct {
	user.Repository
	users map[string]*user.User
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*user.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, shared.ErrUserNotFound
}

type fakeBadges struct {
	reward.BadgeRepository
	earned []reward.EarnedBadge
}

func (f *fakeBadges) ListEarned(context.Context, string) ([]reward.EarnedBadge, error) {
	return f.earned, nil
}

type fakeLedger struct {
	txs     []*reward.Transaction
	candles int
}

func (f *fakeLedger) ListByUser(context.Context, string, int) ([]*reward.Transaction, error) {
	return f.txs, nil
}

func (f *fakeLedger) SumByUser(context.Context, string) (int, error) { return 0, nil }

func (f *fakeLedger) CountBySource(_ context.Context, kind reward.ActionKind, _ reward.SourceRef) (int, error) {
	if kind == reward.ActionLightCandle {
		return f.candles, nil
	}
	return 0, nil
}

func TestGetProfile(t *testing.T) {
	now := time.Now()
	u, err := user.New("amani", "", "Nairobi", now)
	require.NoError(t, err)
	u.XP = 260
	u.Streak.RecordActivity(now)

	earnedAt := time.Date(2024, 3, 10, 6, 0, 0, 0, time.UTC)
	h := NewGetProfileHandler(
		&fakeUsers{users: map[string]*user.User{u.ID: u}},
		&fakeBadges{earned: []reward.EarnedBadge{{UserID: u.ID, Badge: reward.DefaultBadges()[0], EarnedAt: earnedAt}}},
		&fakeLedger{txs: []*reward.Transaction{
			{Kind: reward.ActionQuizPassed, Amount: 50, Source: reward.Ref("quiz", "q1"), CreatedAt: now},
			{Kind: reward.ActionPostCreated, Amount: 10, CreatedAt: now},
		}},
		&fakeBoardCache{entries: []leaderboard.Entry{{UserID: u.ID, Rank: 7}}},
	)

	p, err := h.Handle(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Level)
	assert.Equal(t, 240, p.XPToNextLevel)
	assert.Equal(t, 1, p.CurrentStreak)
	assert.Equal(t, 2, p.DaysUntilBreak)
	assert.Equal(t, 7, p.Rank)
	assert.Equal(t, "nairobi", p.Region)
	require.Len(t, p.Badges, 1)
	assert.Equal(t, "first_steps", p.Badges[0].Code)
	assert.Equal(t, "2024-03-10T06:00:00Z", p.Badges[0].EarnedAt)
	require.Len(t, p.RecentActivity, 2)
	assert.Equal(t, "quiz:q1", p.RecentActivity[0].Source)
	assert.Empty(t, p.RecentActivity[1].Source)

	_, err = h.Handle(context.Background(), shared.NewID())
	assert.True(t, shared.IsNotFound(err))
}

type fakeMemories struct {
	community.Repository
	m *community.Memory
}

func (f *fakeMemories) GetMemory(_ context.Context, id string) (*community.Memory, error) {
	if f.m != nil && f.m.ID == id {
		cp := *f.m
		return &cp, nil
	}
	return nil, shared.ErrMemoryNotFound
}

func TestGetMemory_CountsCandlesFromLedger(t *testing.T) {
	m, err := community.NewMemory(shared.NewID(), "Remembering the 2007 victims", "", "", time.Now())
	require.NoError(t, err)

	h := NewGetMemoryHandler(&fakeMemories{m: m}, &fakeLedger{candles: 12})
	got, err := h.Handle(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, 12, got.Candles)

	_, err = h.Handle(context.Background(), shared.NewID())
	assert.True(t, shared.IsNotFound(err))
}
