package learning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radake/rada-ke/internal/domain/shared"
)

func TestScorePercent_RoundsHalfUp(t *testing.T) {
	cases := []struct {
		correct, total, want int
	}{
		{4, 5, 80},
		{0, 5, 0},
		{5, 5, 100},
		{1, 8, 13},  // 12.5
		{3, 8, 38},  // 37.5
		{2, 3, 67},  // 66.67
		{1, 3, 33},  // 33.33
		{1, 6, 17},  // 16.67
		{7, 10, 70}, // boundary
		{0, 0, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ScorePercent(tc.correct, tc.total), "%d/%d", tc.correct, tc.total)
	}
}

func fiveQuestionQuiz(t *testing.T, passing int) *Quiz {
	t.Helper()
	qs := make([]Question, 0, 5)
	for _, ans := range []string{"A", "B", "C", "D", "A"} {
		qs = append(qs, Question{Prompt: "q", Options: []string{"A", "B", "C", "D"}, CorrectAnswer: ans})
	}
	q, err := NewQuiz(shared.NewID(), "The Kenyan Constitution", passing, 0, qs)
	require.NoError(t, err)
	return q
}

func TestQuiz_Grade(t *testing.T) {
	q := fiveQuestionQuiz(t, 0)
	assert.Equal(t, "the-kenyan-constitution", q.Slug)
	assert.Equal(t, DefaultPassingScore, q.EffectivePassingScore())
	assert.Equal(t, DefaultQuizXP, q.EffectiveXP())

	g, err := q.Grade([]string{"a", " B ", "C", "D", "B"})
	require.NoError(t, err)
	assert.Equal(t, 4, g.Correct)
	assert.Equal(t, 80, g.Score)
	assert.True(t, g.Passed)

	g, err = q.Grade([]string{"A", "B", "C"})
	require.NoError(t, err)
	assert.Equal(t, 60, g.Score, "missing answers count as wrong")
	assert.False(t, g.Passed)
}

func TestQuiz_GradeValidation(t *testing.T) {
	q := fiveQuestionQuiz(t, 0)

	_, err := q.Grade(nil)
	assert.True(t, shared.IsValidation(err))

	_, err = q.Grade([]string{"A", "B", "C", "D", "A", "B"})
	assert.ErrorIs(t, err, shared.ErrTooManyAnswers)

	empty := &Quiz{}
	_, err = empty.Grade([]string{"A"})
	assert.ErrorIs(t, err, shared.ErrQuizEmpty)
}

func TestNewQuiz_RejectsCorrectAnswerOutsideOptions(t *testing.T) {
	_, err := NewQuiz(shared.NewID(), "Bad", 70, 50, []Question{
		{Prompt: "?", Options: []string{"yes", "no"}, CorrectAnswer: "maybe"},
	})
	assert.True(t, shared.IsValidation(err))
}

func TestAttempt_MonotonicBestAndStickyCompletion(t *testing.T) {
	a := &Attempt{UserID: "u", QuizID: "q"}
	assert.Equal(t, StateNotAttempted, a.State())
	now := time.Now()

	firstPasses := 0
	for _, score := range []int{40, 90, 60} {
		if a.Record(Grade{Score: score, Passed: score >= 70}, now) {
			firstPasses++
		}
	}

	assert.Equal(t, 1, firstPasses)
	assert.Equal(t, 3, a.AttemptCount)
	assert.Equal(t, 90, a.BestScore)
	assert.Equal(t, 60, a.LastScore)
	assert.True(t, a.Completed)
	assert.NotNil(t, a.CompletedAt)
	assert.Equal(t, StatePassed, a.State())
}

func TestAttempt_FailingStaysAttempted(t *testing.T) {
	a := &Attempt{}
	a.Record(Grade{Score: 20}, time.Now())
	a.Record(Grade{Score: 10}, time.Now())
	assert.Equal(t, StateAttempted, a.State())
	assert.Equal(t, 20, a.BestScore)
	assert.False(t, a.Completed)
}
