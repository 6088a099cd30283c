package user

import (
	"time"

	"github.com/radake/rada-ke/pkg/timeutil"
)

// Streak tracks consecutive Nairobi calendar days with at least one award.
type Streak struct {
	UserID string

	// Current is the running streak; zero after it expires.
	Current int

	// Longest is the best streak ever reached.
	Longest int

	// LastActiveDate is midnight of the last active day, zero if never active.
	LastActiveDate time.Time
}

// RecordActivity registers activity on date. Same-day activity is a no-op,
// the following day extends the streak and any gap restarts it at 1.
// It reports whether Current changed.
func (s *Streak) RecordActivity(date time.Time) bool {
	day := timeutil.StartOfDay(date)

	if s.LastActiveDate.IsZero() {
		s.Current = 1
		s.LastActiveDate = day
		s.bumpLongest()
		return true
	}

	last := timeutil.StartOfDay(s.LastActiveDate)
	switch {
	case !day.After(last):
		// Same day, or a late write for a day already counted.
		return false
	case timeutil.IsConsecutiveDay(last, day):
		s.Current++
	default:
		s.Current = 1
	}

	s.LastActiveDate = day
	s.bumpLongest()
	return true
}

func (s *Streak) bumpLongest() {
	if s.Current > s.Longest {
		s.Longest = s.Current
	}
}

// IsBroken reports whether the streak can no longer be extended as of now.
func (s *Streak) IsBroken(now time.Time) bool {
	if s.LastActiveDate.IsZero() {
		return false
	}
	return timeutil.StartOfDay(s.LastActiveDate).Before(timeutil.Yesterday(now))
}

// Expire zeroes Current when the streak is broken. Longest is kept.
func (s *Streak) Expire(now time.Time) bool {
	if s.Current == 0 || !s.IsBroken(now) {
		return false
	}
	s.Current = 0
	return true
}

// DaysUntilBreak returns 2 if the user was active today, 1 if they must be
// active today to keep the streak and 0 if the streak is already gone.
func (s *Streak) DaysUntilBreak(now time.Time) int {
	if s.LastActiveDate.IsZero() || s.Current == 0 {
		return 0
	}
	switch timeutil.DaysBetween(s.LastActiveDate, now) {
	case 0:
		return 2
	case 1:
		return 1
	default:
		return 0
	}
}
