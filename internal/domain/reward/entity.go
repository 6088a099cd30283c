// Package reward models the XP ledger: action policies, immutable reward
// transactions and badges. Every XP change is one Transaction; the user's
// balance always equals the sum of their transactions.
package reward

import (
	"strings"
	"time"

	"github.com/radake/rada-ke/internal/domain/shared"
	"github.com/radake/rada-ke/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACTION KINDS
// ══════════════════════════════════════════════════════════════════════════════

// ActionKind tags why XP was granted. The vocabulary is open; kinds without a
// registered policy are treated as unlimited.
type ActionKind string

const (
	ActionQuizPassed         ActionKind = "quiz_passed"
	ActionLessonCompleted    ActionKind = "lesson_completed"
	ActionPostCreated        ActionKind = "post_created"
	ActionCommentCreated     ActionKind = "comment_created"
	ActionPostLiked          ActionKind = "post_liked"
	ActionPollVoted          ActionKind = "poll_voted"
	ActionLightCandle        ActionKind = "light_candle"
	ActionChallengeCompleted ActionKind = "challenge_completed"
	ActionDailyCheckIn       ActionKind = "daily_checkin"
)

// String returns the kind tag.
func (k ActionKind) String() string {
	return string(k)
}

// Normalize trims and lowercases the tag.
func (k ActionKind) Normalize() ActionKind {
	return ActionKind(strings.ToLower(strings.TrimSpace(string(k))))
}

// Scope decides which earlier awards make a new one a duplicate.
type Scope int

const (
	// ScopeUnlimited never deduplicates.
	ScopeUnlimited Scope = iota
	// ScopeOncePerSource allows one award per (user, kind, source).
	ScopeOncePerSource
	// ScopeDailyPerSource allows one award per (user, kind, source, day).
	ScopeDailyPerSource
)

// String returns the scope name.
func (s Scope) String() string {
	switch s {
	case ScopeOncePerSource:
		return "once_per_source"
	case ScopeDailyPerSource:
		return "daily_per_source"
	default:
		return "unlimited"
	}
}

// Policy is the award rule for one action kind.
type Policy struct {
	Kind      ActionKind
	DefaultXP int
	Scope     Scope
}

var policies = map[ActionKind]Policy{
	ActionQuizPassed:         {ActionQuizPassed, 50, ScopeOncePerSource},
	ActionLessonCompleted:    {ActionLessonCompleted, 20, ScopeOncePerSource},
	ActionPostCreated:        {ActionPostCreated, 10, ScopeUnlimited},
	ActionCommentCreated:     {ActionCommentCreated, 3, ScopeUnlimited},
	ActionPostLiked:          {ActionPostLiked, 2, ScopeOncePerSource},
	ActionPollVoted:          {ActionPollVoted, 10, ScopeOncePerSource},
	ActionLightCandle:        {ActionLightCandle, 5, ScopeDailyPerSource},
	ActionChallengeCompleted: {ActionChallengeCompleted, 25, ScopeOncePerSource},
	ActionDailyCheckIn:       {ActionDailyCheckIn, 5, ScopeDailyPerSource},
}

// PolicyFor returns the registered policy for kind, or an unlimited policy
// with zero default XP.
func PolicyFor(kind ActionKind) Policy {
	if p, ok := policies[kind.Normalize()]; ok {
		return p
	}
	return Policy{Kind: kind.Normalize(), Scope: ScopeUnlimited}
}

// ══════════════════════════════════════════════════════════════════════════════
// SOURCE REFERENCE
// ══════════════════════════════════════════════════════════════════════════════

// Source type tags.
const (
	SourceQuiz      = "quiz"
	SourceLesson    = "lesson"
	SourcePost      = "post"
	SourceComment   = "comment"
	SourcePoll      = "poll"
	SourceMemory    = "memory"
	SourceChallenge = "challenge"
	SourceUser      = "user"
)

// SourceRef points at the entity that caused an award.
type SourceRef struct {
	Type string
	ID   string
}

// Ref builds a SourceRef.
func Ref(typ, id string) SourceRef {
	return SourceRef{Type: typ, ID: id}
}

// IsZero reports whether no source is set.
func (s SourceRef) IsZero() bool {
	return s.Type == "" && s.ID == ""
}

// Validate requires both parts when either is set.
func (s SourceRef) Validate() error {
	if s.IsZero() {
		return nil
	}
	if strings.TrimSpace(s.Type) == "" || strings.TrimSpace(s.ID) == "" {
		return shared.ErrInvalidSource
	}
	return nil
}

// String renders type:id.
func (s SourceRef) String() string {
	return s.Type + ":" + s.ID
}

// DedupeKey returns the uniqueness key an award must claim under scope, or
// nil when the award is never a duplicate.
func DedupeKey(scope Scope, src SourceRef, at time.Time) *string {
	var key string
	switch scope {
	case ScopeOncePerSource:
		key = src.String()
	case ScopeDailyPerSource:
		key = src.String() + ":" + timeutil.DayKey(at)
	default:
		return nil
	}
	return &key
}

// ══════════════════════════════════════════════════════════════════════════════
// TRANSACTION
// ══════════════════════════════════════════════════════════════════════════════

// Transaction is one immutable XP grant.
type Transaction struct {
	ID        string
	UserID    string
	Kind      ActionKind
	Amount    int
	Source    SourceRef
	AwardDate time.Time
	DedupeKey *string
	CreatedAt time.Time
}

// NewTransaction validates the award input and derives the dedupe key from
// the kind's policy.
func NewTransaction(userID string, kind ActionKind, amount int, src SourceRef, now time.Time) (*Transaction, error) {
	if err := shared.RequireID("reward", "Award", "user_id", userID); err != nil {
		return nil, err
	}
	kind = kind.Normalize()
	if kind == "" {
		return nil, shared.ErrInvalidAction
	}
	if amount <= 0 {
		return nil, shared.ErrInvalidAmount
	}
	if err := src.Validate(); err != nil {
		return nil, err
	}

	policy := PolicyFor(kind)
	if policy.Scope != ScopeUnlimited && src.IsZero() {
		return nil, shared.Validationf("reward", "Award", "%s requires a source reference", kind)
	}

	return &Transaction{
		ID:        shared.NewID(),
		UserID:    userID,
		Kind:      kind,
		Amount:    amount,
		Source:    src,
		AwardDate: timeutil.StartOfDay(now),
		DedupeKey: DedupeKey(policy.Scope, src, now),
		CreatedAt: now.UTC(),
	}, nil
}
