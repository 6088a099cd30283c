package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/radake/rada-ke/internal/domain/leaderboard"
	"github.com/radake/rada-ke/internal/domain/shared"
)

// ErrNotRanked is returned when a user is not on the cached board.
var ErrNotRanked = errors.New("leaderboard_cache: user not ranked")

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE
//
//   - Sorted set "leaderboard:xp:national" holds userID -> XP
//   - Sorted set "leaderboard:xp:region:{region}" holds the same per region
//   - Hash "leaderboard:info" holds userID -> entry JSON (nickname, emoji, region)
//
// Ranks are O(log N) lookups; a page is one ZREVRANGE plus one HMGET.
// ══════════════════════════════════════════════════════════════════════════════

const (
	keyNational    = PrefixLeaderboard + "xp:national"
	keyRegionScope = PrefixLeaderboard + "xp:region:"
	keyInfo        = PrefixLeaderboard + "info"
)

// LeaderboardCache implements leaderboard.Cache and receives score updates
// after awards commit.
type LeaderboardCache struct {
	client *redis.Client
}

var _ leaderboard.Cache = (*LeaderboardCache)(nil)

// NewLeaderboardCache creates a new LeaderboardCache.
func NewLeaderboardCache(cache *Cache) *LeaderboardCache {
	return &LeaderboardCache{client: cache.Client()}
}

// scopeKey returns the sorted set holding scope.
func scopeKey(scope leaderboard.Scope) string {
	if scope.IsRegional() {
		return keyRegionScope + string(scope.Region)
	}
	return keyNational
}

// cachedEntry is the hash payload. XP and rank come from the sorted set.
type cachedEntry struct {
	Nickname string `json:"nickname"`
	Emoji    string `json:"emoji"`
	Region   string `json:"region,omitempty"`
}

func encodeEntry(e leaderboard.Entry) ([]byte, error) {
	return json.Marshal(cachedEntry{Nickname: e.Nickname, Emoji: e.Emoji, Region: string(e.Region)})
}

func decodeEntry(userID string, xp int, raw any) (leaderboard.Entry, bool) {
	s, ok := raw.(string)
	if !ok {
		return leaderboard.Entry{}, false
	}
	var c cachedEntry
	if err := json.Unmarshal([]byte(s), &c); err != nil {
		return leaderboard.Entry{}, false
	}
	return leaderboard.NewEntry(0, userID, c.Nickname, c.Emoji, shared.Region(c.Region), xp), true
}

// ══════════════════════════════════════════════════════════════════════════════
// WRITE OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// UpdateScore writes the user's new balance to the national and regional sets.
func (l *LeaderboardCache) UpdateScore(ctx context.Context, e leaderboard.Entry) error {
	if e.UserID == "" {
		return ErrCacheKeyEmpty
	}
	data, err := encodeEntry(e)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	pipe := l.client.Pipeline()
	z := redis.Z{Score: float64(e.XP), Member: e.UserID}
	pipe.ZAdd(ctx, keyNational, z)
	pipe.Expire(ctx, keyNational, TTLLeaderboard)
	if e.Region != "" {
		key := scopeKey(leaderboard.Scope{Region: e.Region})
		pipe.ZAdd(ctx, key, z)
		pipe.Expire(ctx, key, TTLLeaderboard)
	}
	pipe.HSet(ctx, keyInfo, e.UserID, data)
	pipe.Expire(ctx, keyInfo, TTLLeaderboard)

	_, err = pipe.Exec(ctx)
	return err
}

// Rebuild replaces every cached board with entries in one MULTI/EXEC.
func (l *LeaderboardCache) Rebuild(ctx context.Context, entries []leaderboard.Entry) error {
	stale, err := l.regionKeys(ctx)
	if err != nil {
		return err
	}

	national := make([]redis.Z, 0, len(entries))
	regional := make(map[string][]redis.Z)
	info := make(map[string]any, len(entries))
	for _, e := range entries {
		if e.UserID == "" {
			continue
		}
		data, err := encodeEntry(e)
		if err != nil {
			return fmt.Errorf("failed to marshal entry: %w", err)
		}
		z := redis.Z{Score: float64(e.XP), Member: e.UserID}
		national = append(national, z)
		if e.Region != "" {
			key := scopeKey(leaderboard.Scope{Region: e.Region})
			regional[key] = append(regional[key], z)
		}
		info[e.UserID] = data
	}

	pipe := l.client.TxPipeline()
	pipe.Del(ctx, append(stale, keyNational, keyInfo)...)
	if len(national) > 0 {
		pipe.ZAdd(ctx, keyNational, national...)
		pipe.Expire(ctx, keyNational, TTLLeaderboard)
		pipe.HSet(ctx, keyInfo, info)
		pipe.Expire(ctx, keyInfo, TTLLeaderboard)
	}
	for key, members := range regional {
		pipe.ZAdd(ctx, key, members...)
		pipe.Expire(ctx, key, TTLLeaderboard)
	}

	_, err = pipe.Exec(ctx)
	return err
}

func (l *LeaderboardCache) regionKeys(ctx context.Context) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := l.client.Scan(ctx, cursor, keyRegionScope+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan region boards: %w", err)
		}
		keys = append(keys, batch...)
		if next == 0 {
			return keys, nil
		}
		cursor = next
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// READ OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// GetTop returns one page of the scope's board. An empty result means the
// cache is cold; callers fall back to the database.
func (l *LeaderboardCache) GetTop(ctx context.Context, scope leaderboard.Scope, page shared.Page) ([]leaderboard.Entry, error) {
	start := int64(page.Offset)
	stop := start + int64(page.Limit) - 1

	members, err := l.client.ZRevRangeWithScores(ctx, scopeKey(scope), start, stop).Result()
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}

	ids := make([]string, len(members))
	for i, m := range members {
		ids[i], _ = m.Member.(string)
	}
	raw, err := l.client.HMGet(ctx, keyInfo, ids...).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]leaderboard.Entry, 0, len(members))
	for i, m := range members {
		e, ok := decodeEntry(ids[i], int(m.Score), raw[i])
		if !ok {
			// Info hash lost the row; a partial page would misnumber ranks.
			return nil, nil
		}
		e.Rank = leaderboard.Rank(page.Offset + i + 1)
		entries = append(entries, e)
	}
	return entries, nil
}

// GetRank returns the 1-based rank of userID within scope.
func (l *LeaderboardCache) GetRank(ctx context.Context, scope leaderboard.Scope, userID string) (leaderboard.Rank, error) {
	rank, err := l.client.ZRevRank(ctx, scopeKey(scope), userID).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrNotRanked
	}
	if err != nil {
		return 0, err
	}
	return leaderboard.Rank(rank + 1), nil
}

// Count returns how many users the cached scope holds.
func (l *LeaderboardCache) Count(ctx context.Context, scope leaderboard.Scope) (int64, error) {
	return l.client.ZCard(ctx, scopeKey(scope)).Result()
}
