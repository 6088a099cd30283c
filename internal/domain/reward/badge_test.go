package reward

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radake/rada-ke/internal/domain/shared"
)

func TestEligible(t *testing.T) {
	badges := DefaultBadges()
	for i := range badges {
		badges[i].ID = badges[i].Code
	}

	p := Progress{
		XP:            520,
		LongestStreak: 3,
		ActionCounts:  map[ActionKind]int{ActionQuizPassed: 5, ActionLightCandle: 6},
	}

	var codes []string
	for _, b := range Eligible(badges, p) {
		codes = append(codes, b.Code)
	}
	assert.ElementsMatch(t, []string{"first_steps", "active_citizen", "quiz_master"}, codes)
}

func TestPending(t *testing.T) {
	all := []Badge{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	got := Pending(all, map[string]bool{"b": true})
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "c", got[1].ID)
}

func TestCountedKinds(t *testing.T) {
	kinds := CountedKinds([]Badge{
		{Criteria: Criteria{Type: CriteriaXP, Threshold: 1}},
		{Criteria: Criteria{Type: CriteriaActionCount, ActionKind: ActionPollVoted, Threshold: 1}},
		{Criteria: Criteria{Type: CriteriaActionCount, ActionKind: ActionPollVoted, Threshold: 10}},
		{Criteria: Criteria{Type: CriteriaActionCount, ActionKind: ActionLightCandle, Threshold: 7}},
	})
	assert.Equal(t, []ActionKind{ActionPollVoted, ActionLightCandle}, kinds)
}

func TestNewBadge(t *testing.T) {
	b, err := NewBadge(" Town_Hall ", "Town Hall", "", "🏛️",
		Criteria{Type: CriteriaActionCount, ActionKind: " POST_CREATED", Threshold: 3})
	require.NoError(t, err)
	assert.Equal(t, "town_hall", b.Code)
	assert.Equal(t, ActionPostCreated, b.Criteria.ActionKind)

	_, err = NewBadge("x", "X", "", "", Criteria{Type: CriteriaXP})
	assert.True(t, shared.IsValidation(err))

	_, err = NewBadge("x", "X", "", "", Criteria{Type: "karma", Threshold: 1})
	assert.True(t, shared.IsValidation(err))

	_, err = NewBadge("x", "X", "", "", Criteria{Type: CriteriaActionCount, Threshold: 1})
	assert.True(t, shared.IsValidation(err))
}

func TestDefaultBadgesAreValid(t *testing.T) {
	seen := map[string]bool{}
	for _, b := range DefaultBadges() {
		assert.NoError(t, b.Criteria.Validate(), b.Code)
		assert.False(t, seen[b.Code], "duplicate code %s", b.Code)
		seen[b.Code] = true
	}
}
