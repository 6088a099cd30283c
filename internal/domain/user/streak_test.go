package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radake/rada-ke/pkg/timeutil"
)

func day(d int) time.Time {
	return timeutil.Date(2024, time.June, d).Add(10 * time.Hour)
}

func TestStreak_RecordActivity(t *testing.T) {
	s := Streak{UserID: "u1"}

	assert.True(t, s.RecordActivity(day(1)))
	assert.Equal(t, 1, s.Current)
	assert.Equal(t, 1, s.Longest)

	// Same day twice does not count.
	assert.False(t, s.RecordActivity(day(1).Add(5*time.Hour)))
	assert.Equal(t, 1, s.Current)

	assert.True(t, s.RecordActivity(day(2)))
	assert.True(t, s.RecordActivity(day(3)))
	assert.Equal(t, 3, s.Current)
	assert.Equal(t, 3, s.Longest)

	// Gap restarts the streak but keeps the record.
	assert.True(t, s.RecordActivity(day(6)))
	assert.Equal(t, 1, s.Current)
	assert.Equal(t, 3, s.Longest)
}

func TestStreak_LateWriteIgnored(t *testing.T) {
	s := Streak{}
	s.RecordActivity(day(10))
	assert.False(t, s.RecordActivity(day(9)))
	assert.Equal(t, 1, s.Current)
	assert.Equal(t, timeutil.StartOfDay(day(10)), s.LastActiveDate)
}

func TestStreak_Expire(t *testing.T) {
	s := Streak{}
	s.RecordActivity(day(1))
	s.RecordActivity(day(2))

	assert.False(t, s.Expire(day(3)), "active yesterday keeps the streak alive")
	assert.Equal(t, 2, s.DaysUntilBreak(day(2)))
	assert.Equal(t, 1, s.DaysUntilBreak(day(3)))

	assert.True(t, s.Expire(day(5)))
	assert.Equal(t, 0, s.Current)
	assert.Equal(t, 2, s.Longest)
	assert.Equal(t, 0, s.DaysUntilBreak(day(5)))
}

func TestNewUser(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	u, err := New("  Wanjiku ", "", " Nairobi ", now)
	require.NoError(t, err)
	assert.Equal(t, "Wanjiku", u.Nickname)
	assert.Equal(t, DefaultEmoji, u.Emoji)
	assert.Equal(t, "nairobi", u.Region.String())
	assert.Equal(t, XP(0), u.XP)
	assert.Equal(t, Level(1), u.Level())

	_, err = New("x", "", "", now)
	assert.Error(t, err)
}

func TestCalculateLevel(t *testing.T) {
	assert.Equal(t, Level(1), CalculateLevel(0))
	assert.Equal(t, Level(1), CalculateLevel(249))
	assert.Equal(t, Level(2), CalculateLevel(250))
	assert.Equal(t, Level(5), CalculateLevel(1000))
	assert.Equal(t, 200, XPToNextLevel(50))
}
