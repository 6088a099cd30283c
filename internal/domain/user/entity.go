// Package user contains the anonymous participant model of Rada.ke.
// A user is identified by an opaque UUID token handed out on first visit.
package user

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/radake/rada-ke/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// XP represents cumulative experience points.
type XP int

// IsValid checks that XP is non-negative.
func (x XP) IsValid() bool {
	return x >= 0
}

// Level is derived from XP and never stored.
type Level int

// XPPerLevel is how much XP one level takes.
const XPPerLevel = 250

// CalculateLevel returns the level for an XP total. Everyone starts at level 1.
func CalculateLevel(xp XP) Level {
	if xp < 0 {
		return 1
	}
	return Level(1 + int(xp)/XPPerLevel)
}

// XPToNextLevel returns how much XP is missing to reach the next level.
func XPToNextLevel(xp XP) int {
	if xp < 0 {
		xp = 0
	}
	return XPPerLevel - int(xp)%XPPerLevel
}

const (
	// DefaultEmoji is shown for users who did not pick one.
	DefaultEmoji = "🇰🇪"

	minNicknameLen = 2
	maxNicknameLen = 40
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: USER
// ══════════════════════════════════════════════════════════════════════════════

// User is an anonymous participant. XP and streak fields are only mutated by
// the reward ledger.
type User struct {
	ID       string
	Nickname string
	Emoji    string
	Region   shared.Region

	XP     XP
	Streak Streak

	CreatedAt time.Time
	UpdatedAt time.Time
}

// New validates the profile fields and returns a fresh user with zero XP.
func New(nickname, emoji, region string, now time.Time) (*User, error) {
	nickname = strings.TrimSpace(nickname)
	if n := utf8.RuneCountInString(nickname); n < minNicknameLen || n > maxNicknameLen {
		return nil, shared.ErrInvalidNickname
	}
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		emoji = DefaultEmoji
	}

	id := shared.NewID()
	return &User{
		ID:        id,
		Nickname:  nickname,
		Emoji:     emoji,
		Region:    shared.NormalizeRegion(region),
		Streak:    Streak{UserID: id},
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}, nil
}

// Level returns the user's current level.
func (u *User) Level() Level {
	return CalculateLevel(u.XP)
}

// ApplyAward adds amount to the balance and records activity on day.
// It reports whether the streak moved forward.
func (u *User) ApplyAward(amount int, day time.Time) bool {
	u.XP += XP(amount)
	u.UpdatedAt = time.Now().UTC()
	return u.Streak.RecordActivity(day)
}
