package learning

import (
	"time"

	"github.com/radake/rada-ke/internal/domain/shared"
)

// Grade is the outcome of scoring one submission.
type Grade struct {
	Correct int
	Total   int
	Score   int
	Passed  bool
}

// ScorePercent returns correct/total as a percentage rounded half up
// (12.5 -> 13, 66.67 -> 67). It uses integer arithmetic only.
func ScorePercent(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return (correct*200 + total) / (2 * total)
}

// Grade scores answers positionally against the quiz's questions. Missing
// trailing answers count as wrong.
func (q *Quiz) Grade(answers []string) (Grade, error) {
	if len(q.Questions) == 0 {
		return Grade{}, shared.ErrQuizEmpty
	}
	if len(answers) == 0 {
		return Grade{}, shared.ErrNoAnswers
	}
	if len(answers) > len(q.Questions) {
		return Grade{}, shared.ErrTooManyAnswers
	}

	correct := 0
	for i, question := range q.Questions {
		if i < len(answers) && question.Matches(answers[i]) {
			correct++
		}
	}

	score := ScorePercent(correct, len(q.Questions))
	return Grade{
		Correct: correct,
		Total:   len(q.Questions),
		Score:   score,
		Passed:  score >= q.EffectivePassingScore(),
	}, nil
}

// Attempt is the per-(user, quiz) record. BestScore never decreases and
// Completed never goes back to false.
type Attempt struct {
	UserID       string
	QuizID       string
	AttemptCount int
	BestScore    int
	LastScore    int
	Completed    bool
	CompletedAt  *time.Time
	UpdatedAt    time.Time
}

// AttemptState is the position in NotAttempted -> Attempted -> Passed.
type AttemptState string

const (
	StateNotAttempted AttemptState = "not_attempted"
	StateAttempted    AttemptState = "attempted"
	StatePassed       AttemptState = "passed"
)

// State returns the attempt's position in the state machine.
func (a *Attempt) State() AttemptState {
	switch {
	case a == nil || a.AttemptCount == 0:
		return StateNotAttempted
	case a.Completed:
		return StatePassed
	default:
		return StateAttempted
	}
}

// Record applies one graded submission and reports whether this is the first
// passing attempt, which is the only one that earns XP.
func (a *Attempt) Record(g Grade, now time.Time) (firstPass bool) {
	a.AttemptCount++
	a.LastScore = g.Score
	if g.Score > a.BestScore {
		a.BestScore = g.Score
	}
	if g.Passed && !a.Completed {
		a.Completed = true
		t := now.UTC()
		a.CompletedAt = &t
		firstPass = true
	}
	a.UpdatedAt = now.UTC()
	return firstPass
}
