package reward

import (
	"strings"
	"time"

	"github.com/radake/rada-ke/internal/domain/shared"
)

// CriteriaType selects what a badge threshold is compared against.
type CriteriaType string

const (
	CriteriaXP          CriteriaType = "xp"
	CriteriaActionCount CriteriaType = "action_count"
	CriteriaStreak      CriteriaType = "streak"
)

// Criteria is the unlock rule of a badge.
type Criteria struct {
	Type       CriteriaType
	ActionKind ActionKind // only for CriteriaActionCount
	Threshold  int
}

// Validate checks the rule is well formed.
func (c Criteria) Validate() error {
	if c.Threshold <= 0 {
		return shared.Validationf("reward", "CreateBadge", "threshold must be positive")
	}
	switch c.Type {
	case CriteriaXP, CriteriaStreak:
		return nil
	case CriteriaActionCount:
		if c.ActionKind == "" {
			return shared.Validationf("reward", "CreateBadge", "action_count criteria need an action kind")
		}
		return nil
	default:
		return shared.Validationf("reward", "CreateBadge", "unknown criteria type %q", c.Type)
	}
}

// Badge is a named unlockable.
type Badge struct {
	ID          string
	Code        string
	Name        string
	Description string
	Emoji       string
	Criteria    Criteria
}

// NewBadge validates and builds a catalogue entry.
func NewBadge(code, name, description, emoji string, c Criteria) (*Badge, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	name = strings.TrimSpace(name)
	if code == "" || name == "" {
		return nil, shared.Validationf("reward", "CreateBadge", "code and name are required")
	}
	c.ActionKind = c.ActionKind.Normalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &Badge{
		ID:          shared.NewID(),
		Code:        code,
		Name:        name,
		Description: strings.TrimSpace(description),
		Emoji:       emoji,
		Criteria:    c,
	}, nil
}

// EarnedBadge records who earned what and when.
type EarnedBadge struct {
	UserID   string
	Badge    Badge
	EarnedAt time.Time
}

// Progress is the state badge criteria are evaluated against.
type Progress struct {
	XP            int
	LongestStreak int
	ActionCounts  map[ActionKind]int
}

// Satisfied reports whether p meets the criteria.
func (c Criteria) Satisfied(p Progress) bool {
	switch c.Type {
	case CriteriaXP:
		return p.XP >= c.Threshold
	case CriteriaStreak:
		return p.LongestStreak >= c.Threshold
	case CriteriaActionCount:
		return p.ActionCounts[c.ActionKind] >= c.Threshold
	default:
		return false
	}
}

// Pending returns the badges not yet in earned.
func Pending(all []Badge, earned map[string]bool) []Badge {
	out := make([]Badge, 0, len(all))
	for _, b := range all {
		if !earned[b.ID] {
			out = append(out, b)
		}
	}
	return out
}

// CountedKinds lists the action kinds whose tallies are needed to evaluate
// badges, without duplicates.
func CountedKinds(badges []Badge) []ActionKind {
	seen := make(map[ActionKind]bool)
	var kinds []ActionKind
	for _, b := range badges {
		if b.Criteria.Type != CriteriaActionCount || seen[b.Criteria.ActionKind] {
			continue
		}
		seen[b.Criteria.ActionKind] = true
		kinds = append(kinds, b.Criteria.ActionKind)
	}
	return kinds
}

// Eligible returns the badges whose criteria p satisfies.
func Eligible(badges []Badge, p Progress) []Badge {
	var out []Badge
	for _, b := range badges {
		if b.Criteria.Satisfied(p) {
			out = append(out, b)
		}
	}
	return out
}

// DefaultBadges is the starter catalogue inserted when the badges table is
// first created.
func DefaultBadges() []Badge {
	return []Badge{
		{Code: "first_steps", Name: "First Steps", Emoji: "👣", Description: "Earn your first 10 XP",
			Criteria: Criteria{Type: CriteriaXP, Threshold: 10}},
		{Code: "active_citizen", Name: "Active Citizen", Emoji: "🗳️", Description: "Reach 500 XP",
			Criteria: Criteria{Type: CriteriaXP, Threshold: 500}},
		{Code: "civic_champion", Name: "Civic Champion", Emoji: "🏆", Description: "Reach 2000 XP",
			Criteria: Criteria{Type: CriteriaXP, Threshold: 2000}},
		{Code: "quiz_master", Name: "Quiz Master", Emoji: "🎓", Description: "Pass 5 quizzes",
			Criteria: Criteria{Type: CriteriaActionCount, ActionKind: ActionQuizPassed, Threshold: 5}},
		{Code: "voice_of_the_people", Name: "Voice of the People", Emoji: "📢", Description: "Vote in 10 polls",
			Criteria: Criteria{Type: CriteriaActionCount, ActionKind: ActionPollVoted, Threshold: 10}},
		{Code: "keeper_of_memory", Name: "Keeper of Memory", Emoji: "🕯️", Description: "Light 7 candles",
			Criteria: Criteria{Type: CriteriaActionCount, ActionKind: ActionLightCandle, Threshold: 7}},
		{Code: "week_streak", Name: "Seven Days Strong", Emoji: "🔥", Description: "Keep a 7 day streak",
			Criteria: Criteria{Type: CriteriaStreak, Threshold: 7}},
	}
}
