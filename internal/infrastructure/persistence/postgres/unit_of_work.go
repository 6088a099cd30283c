package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/radake/rada-ke/internal/domain/community"
	"github.com/radake/rada-ke/internal/domain/learning"
	"github.com/radake/rada-ke/internal/domain/reward"
	"github.com/radake/rada-ke/internal/domain/shared"
	"github.com/radake/rada-ke/internal/domain/user"
	"github.com/radake/rada-ke/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// UNIT OF WORK
// Every award runs in one READ COMMITTED transaction that starts by locking
// the user row. Duplicate guards are unique indexes hit with
// ON CONFLICT DO NOTHING so a duplicate never aborts the transaction.
// ══════════════════════════════════════════════════════════════════════════════

// UnitOfWork implements reward.UnitOfWork.
type UnitOfWork struct {
	conn    *Connection
	retrier *retry.Retrier
}

// NewUnitOfWork creates a new UnitOfWork.
func NewUnitOfWork(conn *Connection) *UnitOfWork {
	return &UnitOfWork{conn: conn, retrier: retry.TxRetrier(IsTransient)}
}

// Do runs fn in a transaction; an error from fn rolls everything back.
// Two awards locking the same rows in different order can deadlock; the
// loser is replayed from the start, so fn must only touch tx and its own
// results.
func (u *UnitOfWork) Do(ctx context.Context, fn func(tx reward.Tx) error) error {
	return u.retrier.Do(ctx, func(ctx context.Context) error {
		return u.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
			return fn(&ledgerTx{tx: tx})
		})
	})
}

// ledgerTx implements reward.Tx over one pgx transaction.
type ledgerTx struct {
	tx pgx.Tx
}

var _ reward.Tx = (*ledgerTx)(nil)

// ─────────────────────────────────────────────────────────────────────────────
// Ledger
// ─────────────────────────────────────────────────────────────────────────────

func (t *ledgerTx) LockUser(ctx context.Context, userID string) (*user.User, error) {
	if !shared.IsValidID(userID) {
		return nil, shared.ErrUserNotFound
	}
	row := t.tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, userID)
	return scanUser(row)
}

func (t *ledgerTx) AppendTransaction(ctx context.Context, tr *reward.Transaction) error {
	tag, err := t.tx.Exec(ctx, `
		INSERT INTO xp_transactions (
			id, user_id, action_kind, amount, source_type, source_id,
			award_date, dedupe_key, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7::date, $8, $9)
		ON CONFLICT (user_id, action_kind, dedupe_key) WHERE dedupe_key IS NOT NULL DO NOTHING
	`,
		tr.ID,
		tr.UserID,
		string(tr.Kind),
		tr.Amount,
		tr.Source.Type,
		tr.Source.ID,
		dayParam(tr.AwardDate),
		tr.DedupeKey,
		tr.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrAlreadyPerformed
	}
	return nil
}

func (t *ledgerTx) IncrementXP(ctx context.Context, userID string, amount int) (int, error) {
	var xp int
	err := t.tx.QueryRow(ctx, `
		UPDATE users SET xp = xp + $1, updated_at = NOW()
		WHERE id = $2
		RETURNING xp
	`, amount, userID).Scan(&xp)
	if IsNoRows(err) {
		return 0, shared.ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment xp: %w", err)
	}
	return xp, nil
}

func (t *ledgerTx) SaveStreak(ctx context.Context, s user.Streak) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE users SET
			current_streak = $1,
			longest_streak = $2,
			last_active_date = $3::date,
			updated_at = NOW()
		WHERE id = $4
	`, s.Current, s.Longest, dayParam(s.LastActiveDate), s.UserID)
	if err != nil {
		return fmt.Errorf("failed to save streak: %w", err)
	}
	return nil
}

func (t *ledgerTx) CountActions(ctx context.Context, userID string, kind reward.ActionKind) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM xp_transactions WHERE user_id = $1 AND action_kind = $2
	`, userID, string(kind)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count actions: %w", err)
	}
	return n, nil
}

func (t *ledgerTx) ListBadges(ctx context.Context) ([]reward.Badge, error) {
	return queryBadges(ctx, t.tx)
}

func (t *ledgerTx) EarnedBadgeIDs(ctx context.Context, userID string) (map[string]bool, error) {
	rows, err := t.tx.Query(ctx, `SELECT badge_id FROM user_badges WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list earned badges: %w", err)
	}
	defer rows.Close()

	earned := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		earned[id] = true
	}
	return earned, rows.Err()
}

func (t *ledgerTx) GrantBadge(ctx context.Context, userID, badgeID string, at time.Time) (bool, error) {
	tag, err := t.tx.Exec(ctx, `
		INSERT INTO user_badges (user_id, badge_id, earned_at) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, badge_id) DO NOTHING
	`, userID, badgeID, at.UTC())
	if err != nil {
		return false, fmt.Errorf("failed to grant badge: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Quiz attempts
// ─────────────────────────────────────────────────────────────────────────────

func (t *ledgerTx) LockAttempt(ctx context.Context, userID, quizID string) (*learning.Attempt, error) {
	if _, err := t.tx.Exec(ctx, `
		INSERT INTO user_quiz_attempts (user_id, quiz_id) VALUES ($1, $2)
		ON CONFLICT (user_id, quiz_id) DO NOTHING
	`, userID, quizID); err != nil {
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}

	a := learning.Attempt{UserID: userID, QuizID: quizID}
	err := t.tx.QueryRow(ctx, `
		SELECT attempt_count, best_score, last_score, completed, completed_at, updated_at
		FROM user_quiz_attempts
		WHERE user_id = $1 AND quiz_id = $2
		FOR UPDATE
	`, userID, quizID).Scan(
		&a.AttemptCount,
		&a.BestScore,
		&a.LastScore,
		&a.Completed,
		&a.CompletedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to lock attempt: %w", err)
	}
	return &a, nil
}

func (t *ledgerTx) SaveAttempt(ctx context.Context, a *learning.Attempt) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE user_quiz_attempts SET
			attempt_count = $1,
			best_score = $2,
			last_score = $3,
			completed = $4,
			completed_at = $5,
			updated_at = $6
		WHERE user_id = $7 AND quiz_id = $8
	`,
		a.AttemptCount,
		a.BestScore,
		a.LastScore,
		a.Completed,
		a.CompletedAt,
		a.UpdatedAt,
		a.UserID,
		a.QuizID,
	)
	if err != nil {
		return fmt.Errorf("failed to save attempt: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Community actions
// ─────────────────────────────────────────────────────────────────────────────

func (t *ledgerTx) InsertPost(ctx context.Context, p *community.Post) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO posts (id, author_id, body, region, created_at) VALUES ($1, $2, $3, $4, $5)
	`, p.ID, p.AuthorID, p.Body, string(p.Region), p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}
	return nil
}

func (t *ledgerTx) InsertComment(ctx context.Context, c *community.Comment) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO comments (id, post_id, author_id, body, created_at) VALUES ($1, $2, $3, $4, $5)
	`, c.ID, c.PostID, c.AuthorID, c.Body, c.CreatedAt)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return shared.ErrPostNotFound
		}
		return fmt.Errorf("failed to insert comment: %w", err)
	}
	return nil
}

func (t *ledgerTx) InsertPostLike(ctx context.Context, postID, userID string) error {
	return t.insertOnce(ctx, shared.ErrAlreadyLiked, `
		INSERT INTO post_likes (post_id, user_id) VALUES ($1, $2)
		ON CONFLICT (post_id, user_id) DO NOTHING
	`, postID, userID)
}

func (t *ledgerTx) InsertPollVote(ctx context.Context, pollID, optionID, userID string) error {
	return t.insertOnce(ctx, shared.ErrAlreadyVoted, `
		INSERT INTO poll_votes (poll_id, option_id, user_id) VALUES ($1, $2, $3)
		ON CONFLICT (poll_id, user_id) DO NOTHING
	`, pollID, optionID, userID)
}

func (t *ledgerTx) InsertChallengeCompletion(ctx context.Context, challengeID, userID string) error {
	return t.insertOnce(ctx, shared.ErrAlreadyCompleted, `
		INSERT INTO challenge_completions (challenge_id, user_id) VALUES ($1, $2)
		ON CONFLICT (challenge_id, user_id) DO NOTHING
	`, challengeID, userID)
}

func (t *ledgerTx) InsertLessonCompletion(ctx context.Context, lessonID, userID string) error {
	return t.insertOnce(ctx, shared.ErrAlreadyCompleted, `
		INSERT INTO lesson_completions (lesson_id, user_id) VALUES ($1, $2)
		ON CONFLICT (user_id, lesson_id) DO NOTHING
	`, lessonID, userID)
}

// insertOnce runs an ON CONFLICT DO NOTHING insert and returns dup when no
// row was written.
func (t *ledgerTx) insertOnce(ctx context.Context, dup error, sql string, args ...any) error {
	tag, err := t.tx.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return dup
	}
	return nil
}
