// Package learning models civic-education content: modules, lessons and
// quizzes, plus each user's attempt record per quiz.
package learning

import (
	"strings"
	"time"

	"github.com/gosimple/slug"

	"github.com/radake/rada-ke/internal/domain/shared"
)

const (
	// DefaultPassingScore applies when a quiz does not configure one.
	DefaultPassingScore = 70

	// DefaultQuizXP is granted on the first pass when a quiz does not configure XP.
	DefaultQuizXP = 50

	// DefaultLessonXP is granted once per completed lesson.
	DefaultLessonXP = 20
)

// Module groups lessons and quizzes on one civic topic.
type Module struct {
	ID          string
	Slug        string
	Title       string
	Description string
	Position    int
	CreatedAt   time.Time
}

// NewModule builds a module with a slug derived from the title.
func NewModule(title, description string, position int) (*Module, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, shared.Validationf("learning", "CreateModule", "title is required")
	}
	return &Module{
		ID:          shared.NewID(),
		Slug:        slug.Make(title),
		Title:       title,
		Description: strings.TrimSpace(description),
		Position:    position,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// Lesson is a readable unit inside a module.
type Lesson struct {
	ID       string
	ModuleID string
	Slug     string
	Title    string
	Body     string
	Position int
	XPReward int
}

// NewLesson builds a lesson; xp <= 0 falls back to DefaultLessonXP.
func NewLesson(moduleID, title, body string, position, xp int) (*Lesson, error) {
	if err := shared.RequireID("learning", "CreateLesson", "module_id", moduleID); err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, shared.Validationf("learning", "CreateLesson", "title is required")
	}
	if xp <= 0 {
		xp = DefaultLessonXP
	}
	return &Lesson{
		ID:       shared.NewID(),
		ModuleID: moduleID,
		Slug:     slug.Make(title),
		Title:    title,
		Body:     body,
		Position: position,
		XPReward: xp,
	}, nil
}

// Question is one multiple-choice item of a quiz.
type Question struct {
	ID            string
	QuizID        string
	Position      int
	Prompt        string
	Options       []string
	CorrectAnswer string
}

// Matches reports whether answer equals the correct answer, ignoring case and
// surrounding whitespace.
func (q Question) Matches(answer string) bool {
	a := strings.TrimSpace(answer)
	return a != "" && strings.EqualFold(a, strings.TrimSpace(q.CorrectAnswer))
}

// Quiz is a scored set of questions belonging to a module.
type Quiz struct {
	ID           string
	ModuleID     string
	Slug         string
	Title        string
	PassingScore int
	XPReward     int
	Questions    []Question
	CreatedAt    time.Time
}

// NewQuiz validates and builds a quiz. A zero passing score or XP reward
// selects the defaults.
func NewQuiz(moduleID, title string, passingScore, xp int, questions []Question) (*Quiz, error) {
	const op = "CreateQuiz"
	if err := shared.RequireID("learning", op, "module_id", moduleID); err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, shared.Validationf("learning", op, "title is required")
	}
	if passingScore < 0 || passingScore > 100 {
		return nil, shared.Validationf("learning", op, "passing score must be between 0 and 100")
	}
	if xp < 0 {
		return nil, shared.Validationf("learning", op, "xp reward cannot be negative")
	}
	if len(questions) == 0 {
		return nil, shared.ErrQuizEmpty
	}

	q := &Quiz{
		ID:           shared.NewID(),
		ModuleID:     moduleID,
		Slug:         slug.Make(title),
		Title:        title,
		PassingScore: passingScore,
		XPReward:     xp,
		CreatedAt:    time.Now().UTC(),
	}
	for i, question := range questions {
		if strings.TrimSpace(question.Prompt) == "" || strings.TrimSpace(question.CorrectAnswer) == "" {
			return nil, shared.Validationf("learning", op, "question %d needs a prompt and a correct answer", i)
		}
		if len(question.Options) > 0 && !containsFold(question.Options, question.CorrectAnswer) {
			return nil, shared.Validationf("learning", op, "question %d: correct answer is not one of the options", i)
		}
		question.ID = shared.NewID()
		question.QuizID = q.ID
		question.Position = i
		q.Questions = append(q.Questions, question)
	}
	return q, nil
}

func containsFold(options []string, s string) bool {
	s = strings.TrimSpace(s)
	for _, o := range options {
		if strings.EqualFold(strings.TrimSpace(o), s) {
			return true
		}
	}
	return false
}

// EffectivePassingScore returns the configured passing score or the default.
func (q *Quiz) EffectivePassingScore() int {
	if q.PassingScore <= 0 {
		return DefaultPassingScore
	}
	return q.PassingScore
}

// EffectiveXP returns the configured reward or the default.
func (q *Quiz) EffectiveXP() int {
	if q.XPReward <= 0 {
		return DefaultQuizXP
	}
	return q.XPReward
}
