package learning

import "context"

// Repository stores learning content.
type Repository interface {
	CreateModule(ctx context.Context, m *Module) error
	ListModules(ctx context.Context) ([]*Module, error)
	GetModule(ctx context.Context, id string) (*Module, error)

	CreateLesson(ctx context.Context, l *Lesson) error
	GetLesson(ctx context.Context, id string) (*Lesson, error)

	// CreateQuiz stores the quiz and its questions atomically.
	CreateQuiz(ctx context.Context, q *Quiz) error

	// GetQuiz returns the quiz with its questions ordered by position.
	GetQuiz(ctx context.Context, id string) (*Quiz, error)

	ListQuizzes(ctx context.Context, moduleID string) ([]*Quiz, error)
}

// AttemptTx is the attempt bookkeeping available inside a unit of work.
type AttemptTx interface {
	// LockAttempt returns the (user, quiz) attempt row locked for update,
	// creating an empty one on first sight.
	LockAttempt(ctx context.Context, userID, quizID string) (*Attempt, error)

	// SaveAttempt writes back counters, scores and the completed flag.
	SaveAttempt(ctx context.Context, a *Attempt) error
}
