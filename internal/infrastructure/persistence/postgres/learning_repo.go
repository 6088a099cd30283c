package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/radake/rada-ke/internal/domain/learning"
	"github.com/radake/rada-ke/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEARNING REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// LearningRepository implements learning.Repository for PostgreSQL.
type LearningRepository struct {
	conn *Connection
}

// NewLearningRepository creates a new LearningRepository.
func NewLearningRepository(conn *Connection) *LearningRepository {
	return &LearningRepository{conn: conn}
}

// ─────────────────────────────────────────────────────────────────────────────
// Modules
// ─────────────────────────────────────────────────────────────────────────────

func (r *LearningRepository) CreateModule(ctx context.Context, m *learning.Module) error {
	_, err := r.conn.Exec(ctx, `
		INSERT INTO learning_modules (id, slug, title, description, position, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, m.ID, m.Slug, m.Title, m.Description, m.Position, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create module: %w", err)
	}
	return nil
}

func (r *LearningRepository) ListModules(ctx context.Context) ([]*learning.Module, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT id, slug, title, description, position, created_at
		FROM learning_modules
		ORDER BY position, title
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list modules: %w", err)
	}
	defer rows.Close()

	var modules []*learning.Module
	for rows.Next() {
		m, err := scanModule(rows)
		if err != nil {
			return nil, err
		}
		modules = append(modules, m)
	}
	return modules, rows.Err()
}

func (r *LearningRepository) GetModule(ctx context.Context, id string) (*learning.Module, error) {
	if !shared.IsValidID(id) {
		return nil, shared.ErrModuleNotFound
	}
	row := r.conn.QueryRow(ctx, `
		SELECT id, slug, title, description, position, created_at
		FROM learning_modules WHERE id = $1
	`, id)
	m, err := scanModule(row)
	if IsNoRows(err) {
		return nil, shared.ErrModuleNotFound
	}
	return m, err
}

func scanModule(row pgx.Row) (*learning.Module, error) {
	var m learning.Module
	if err := row.Scan(&m.ID, &m.Slug, &m.Title, &m.Description, &m.Position, &m.CreatedAt); err != nil {
		if IsNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan module: %w", err)
	}
	return &m, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Lessons
// ─────────────────────────────────────────────────────────────────────────────

func (r *LearningRepository) CreateLesson(ctx context.Context, l *learning.Lesson) error {
	_, err := r.conn.Exec(ctx, `
		INSERT INTO lessons (id, module_id, slug, title, body, position, xp_reward)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, l.ID, l.ModuleID, l.Slug, l.Title, l.Body, l.Position, l.XPReward)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return shared.ErrModuleNotFound
		}
		return fmt.Errorf("failed to create lesson: %w", err)
	}
	return nil
}

func (r *LearningRepository) GetLesson(ctx context.Context, id string) (*learning.Lesson, error) {
	if !shared.IsValidID(id) {
		return nil, shared.ErrLessonNotFound
	}
	var l learning.Lesson
	err := r.conn.QueryRow(ctx, `
		SELECT id, module_id, slug, title, body, position, xp_reward
		FROM lessons WHERE id = $1
	`, id).Scan(&l.ID, &l.ModuleID, &l.Slug, &l.Title, &l.Body, &l.Position, &l.XPReward)
	if IsNoRows(err) {
		return nil, shared.ErrLessonNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lesson: %w", err)
	}
	return &l, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Quizzes
// ─────────────────────────────────────────────────────────────────────────────

// CreateQuiz inserts the quiz and its questions in one transaction.
func (r *LearningRepository) CreateQuiz(ctx context.Context, q *learning.Quiz) error {
	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO quizzes (id, module_id, slug, title, passing_score, xp_reward, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, q.ID, q.ModuleID, q.Slug, q.Title, q.PassingScore, q.XPReward, q.CreatedAt)
		if err != nil {
			if IsForeignKeyViolation(err) {
				return shared.ErrModuleNotFound
			}
			return fmt.Errorf("failed to insert quiz: %w", err)
		}

		batch := &pgx.Batch{}
		for _, question := range q.Questions {
			options := question.Options
			if options == nil {
				options = []string{}
			}
			batch.Queue(`
				INSERT INTO quiz_questions (id, quiz_id, position, prompt, options, correct_answer)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, question.ID, q.ID, question.Position, question.Prompt, options, question.CorrectAnswer)
		}

		br := tx.SendBatch(ctx, batch)
		defer br.Close()

		for range q.Questions {
			if _, err := br.Exec(); err != nil {
				return fmt.Errorf("failed to insert question: %w", err)
			}
		}
		return nil
	})
}

// GetQuiz returns the quiz with questions ordered by position.
func (r *LearningRepository) GetQuiz(ctx context.Context, id string) (*learning.Quiz, error) {
	if !shared.IsValidID(id) {
		return nil, shared.ErrQuizNotFound
	}
	row := r.conn.QueryRow(ctx, `
		SELECT id, module_id, slug, title, passing_score, xp_reward, created_at
		FROM quizzes WHERE id = $1
	`, id)
	q, err := scanQuiz(row)
	if IsNoRows(err) {
		return nil, shared.ErrQuizNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.conn.Query(ctx, `
		SELECT id, position, prompt, options, correct_answer
		FROM quiz_questions
		WHERE quiz_id = $1
		ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		question := learning.Question{QuizID: q.ID}
		if err := rows.Scan(
			&question.ID,
			&question.Position,
			&question.Prompt,
			&question.Options,
			&question.CorrectAnswer,
		); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		q.Questions = append(q.Questions, question)
	}
	return q, rows.Err()
}

// ListQuizzes returns quizzes without questions, optionally for one module.
func (r *LearningRepository) ListQuizzes(ctx context.Context, moduleID string) ([]*learning.Quiz, error) {
	query := `
		SELECT id, module_id, slug, title, passing_score, xp_reward, created_at
		FROM quizzes
	`
	var args []any
	if moduleID != "" {
		if !shared.IsValidID(moduleID) {
			return nil, nil
		}
		query += ` WHERE module_id = $1`
		args = append(args, moduleID)
	}
	query += ` ORDER BY created_at`

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}
	defer rows.Close()

	var quizzes []*learning.Quiz
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		quizzes = append(quizzes, q)
	}
	return quizzes, rows.Err()
}

func scanQuiz(row pgx.Row) (*learning.Quiz, error) {
	var q learning.Quiz
	err := row.Scan(&q.ID, &q.ModuleID, &q.Slug, &q.Title, &q.PassingScore, &q.XPReward, &q.CreatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan quiz: %w", err)
	}
	return &q, nil
}
