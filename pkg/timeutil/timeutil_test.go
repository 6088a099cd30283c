package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayKey_UsesNairobiCalendar(t *testing.T) {
	// 22:30 UTC is already 01:30 the next day in Nairobi.
	utc := time.Date(2024, 3, 9, 22, 30, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-10", DayKey(utc))
}

func TestIsConsecutiveDay(t *testing.T) {
	d1 := Date(2024, time.February, 28)
	d2 := Date(2024, time.February, 29)
	d3 := Date(2024, time.March, 1)

	assert.True(t, IsConsecutiveDay(d1, d2))
	assert.True(t, IsConsecutiveDay(d2, d3))
	assert.False(t, IsConsecutiveDay(d1, d3))
	assert.False(t, IsConsecutiveDay(d2, d1))
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2024, 1, 1, 23, 0, 0, 0, NairobiTZ)
	b := time.Date(2024, 1, 4, 1, 0, 0, 0, NairobiTZ)
	assert.Equal(t, 3, DaysBetween(a, b))
	assert.Equal(t, 3, DaysBetween(b, a))
}

func TestParseDay_RoundTrip(t *testing.T) {
	d, err := ParseDay("2024-12-12")
	require.NoError(t, err)
	assert.Equal(t, "2024-12-12", DayKey(d))
	assert.True(t, d.Equal(StartOfDay(d)))
}
