package projections

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/radake/rada-ke/internal/domain/leaderboard"
	"github.com/radake/rada-ke/internal/domain/reward"
	"github.com/radake/rada-ke/pkg/timeutil"
)

func TestBoardRowEntry(t *testing.T) {
	r := boardRow{ID: "u1", Nickname: "wanjiku", Emoji: "🌻", Region: "nakuru", XP: 250}
	e := r.entry(4)

	assert.Equal(t, leaderboard.Rank(4), e.Rank)
	assert.Equal(t, "wanjiku", e.Nickname)
	assert.Equal(t, 250, e.XP)
	assert.Equal(t, 2, e.Level)
}

func TestTransactionRowToDomain(t *testing.T) {
	created := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	r := transactionRow{
		ID:         "t1",
		UserID:     "u1",
		ActionKind: "light_candle",
		Amount:     5,
		SourceType: reward.SourceMemory,
		SourceID:   "m1",
		AwardDate:  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		DedupeKey:  sql.NullString{String: "memory:m1:2024-03-01", Valid: true},
		CreatedAt:  created,
	}

	tr := r.toDomain()
	assert.Equal(t, reward.ActionLightCandle, tr.Kind)
	assert.Equal(t, reward.Ref("memory", "m1"), tr.Source)
	assert.Equal(t, "2024-03-01", timeutil.DayKey(tr.AwardDate))
	if assert.NotNil(t, tr.DedupeKey) {
		assert.Equal(t, "memory:m1:2024-03-01", *tr.DedupeKey)
	}

	r.DedupeKey = sql.NullString{}
	assert.Nil(t, r.toDomain().DedupeKey)
}
