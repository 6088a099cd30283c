// Package timeutil provides calendar-day helpers pinned to Nairobi time (EAT, UTC+3).
// Daily limits and streaks are counted in Kenyan calendar days regardless of
// where the server runs.
package timeutil

import (
	"time"
)

// NairobiTZ is East Africa Time (UTC+3, no DST).
var NairobiTZ = time.FixedZone("Africa/Nairobi", 3*60*60)

// Layouts.
const (
	// FormatDate is the ISO date layout used for day keys.
	FormatDate = "2006-01-02"

	// FormatDateTime is the layout for human-facing timestamps.
	FormatDateTime = "2006-01-02 15:04"
)

// Clock returns the current time. Tests replace it with a fixed clock.
type Clock func() time.Time

// SystemClock is the wall clock.
func SystemClock() time.Time {
	return time.Now()
}

// Now returns the current time in Nairobi.
func Now() time.Time {
	return time.Now().In(NairobiTZ)
}

// ToNairobi converts a time to Nairobi time.
func ToNairobi(t time.Time) time.Time {
	return t.In(NairobiTZ)
}

// Date creates midnight of the given Nairobi calendar day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, NairobiTZ)
}

// StartOfDay returns midnight of t's Nairobi calendar day.
func StartOfDay(t time.Time) time.Time {
	n := ToNairobi(t)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, NairobiTZ)
}

// EndOfDay returns the last nanosecond of t's Nairobi calendar day.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// DayKey formats t's Nairobi calendar day as YYYY-MM-DD.
func DayKey(t time.Time) string {
	return ToNairobi(t).Format(FormatDate)
}

// ParseDay parses a YYYY-MM-DD string as a Nairobi calendar day.
func ParseDay(value string) (time.Time, error) {
	return time.ParseInLocation(FormatDate, value, NairobiTZ)
}

// IsSameDay checks if two times fall on the same Nairobi day.
func IsSameDay(t1, t2 time.Time) bool {
	a1, a2 := ToNairobi(t1), ToNairobi(t2)
	return a1.Year() == a2.Year() && a1.YearDay() == a2.YearDay()
}

// IsConsecutiveDay checks if t2 is the day after t1.
func IsConsecutiveDay(t1, t2 time.Time) bool {
	return IsSameDay(StartOfDay(t1).AddDate(0, 0, 1), t2)
}

// DaysBetween returns the absolute number of calendar days between t1 and t2.
func DaysBetween(t1, t2 time.Time) int {
	a1 := StartOfDay(t1)
	a2 := StartOfDay(t2)
	days := int(a2.Sub(a1).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}

// Yesterday returns midnight of the day before t.
func Yesterday(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, -1)
}
