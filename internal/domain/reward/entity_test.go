package reward

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radake/rada-ke/internal/domain/shared"
	"github.com/radake/rada-ke/pkg/timeutil"
)

func TestPolicyFor(t *testing.T) {
	p := PolicyFor(" Quiz_Passed ")
	assert.Equal(t, ActionQuizPassed, p.Kind)
	assert.Equal(t, 50, p.DefaultXP)
	assert.Equal(t, ScopeOncePerSource, p.Scope)

	assert.Equal(t, ScopeDailyPerSource, PolicyFor(ActionLightCandle).Scope)
	assert.Equal(t, ScopeUnlimited, PolicyFor(ActionPostCreated).Scope)

	unknown := PolicyFor("shared_on_radio")
	assert.Equal(t, ScopeUnlimited, unknown.Scope)
	assert.Zero(t, unknown.DefaultXP)
}

func TestDedupeKey(t *testing.T) {
	src := Ref(SourceMemory, "m1")
	// 22:30 UTC is already the next day in Nairobi.
	at := time.Date(2024, 3, 9, 22, 30, 0, 0, time.UTC)

	assert.Nil(t, DedupeKey(ScopeUnlimited, src, at))

	once := DedupeKey(ScopeOncePerSource, src, at)
	require.NotNil(t, once)
	assert.Equal(t, "memory:m1", *once)

	daily := DedupeKey(ScopeDailyPerSource, src, at)
	require.NotNil(t, daily)
	assert.Equal(t, "memory:m1:2024-03-10", *daily)
}

func TestNewTransaction(t *testing.T) {
	uid := shared.NewID()
	now := time.Date(2024, 3, 9, 10, 0, 0, 0, timeutil.NairobiTZ)

	tx, err := NewTransaction(uid, "Quiz_Passed", 50, Ref(SourceQuiz, "q1"), now)
	require.NoError(t, err)
	assert.Equal(t, ActionQuizPassed, tx.Kind)
	require.NotNil(t, tx.DedupeKey)
	assert.Equal(t, "quiz:q1", *tx.DedupeKey)
	assert.True(t, tx.AwardDate.Equal(timeutil.StartOfDay(now)))

	tx, err = NewTransaction(uid, ActionPostCreated, 10, SourceRef{}, now)
	require.NoError(t, err)
	assert.Nil(t, tx.DedupeKey)
}

func TestNewTransaction_Validation(t *testing.T) {
	uid := shared.NewID()
	now := time.Now()

	cases := map[string]struct {
		userID string
		kind   ActionKind
		amount int
		src    SourceRef
	}{
		"zero amount":         {uid, ActionPostCreated, 0, SourceRef{}},
		"negative amount":     {uid, ActionPostCreated, -5, SourceRef{}},
		"empty kind":          {uid, "  ", 5, SourceRef{}},
		"bad user id":         {"not-a-uuid", ActionPostCreated, 5, SourceRef{}},
		"half source":         {uid, ActionPostCreated, 5, SourceRef{Type: "post"}},
		"once without source": {uid, ActionQuizPassed, 50, SourceRef{}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewTransaction(tc.userID, tc.kind, tc.amount, tc.src, now)
			assert.True(t, shared.IsValidation(err), "got %v", err)
		})
	}
}
