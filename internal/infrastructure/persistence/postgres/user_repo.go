package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/radake/rada-ke/internal/domain/shared"
	"github.com/radake/rada-ke/internal/domain/user"
	"github.com/radake/rada-ke/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// UserRepository implements user.Repository for PostgreSQL.
type UserRepository struct {
	conn *Connection
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(conn *Connection) *UserRepository {
	return &UserRepository{conn: conn}
}

const userColumns = `
	id, nickname, emoji, region, xp,
	current_streak, longest_streak, last_active_date,
	created_at, updated_at`

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	_, err := r.conn.Exec(ctx, `
		INSERT INTO users (
			id, nickname, emoji, region, xp,
			current_streak, longest_streak, last_active_date,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8::date, $9, $10)
	`,
		u.ID,
		u.Nickname,
		u.Emoji,
		string(u.Region),
		int(u.XP),
		u.Streak.Current,
		u.Streak.Longest,
		dayParam(u.Streak.LastActiveDate),
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.NewDomainError("user", "Create", shared.ErrAlreadyExists, "user already exists")
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID returns a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	if !shared.IsValidID(id) {
		return nil, shared.ErrUserNotFound
	}
	row := r.conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// UpdateProfile changes nickname, emoji and region only.
func (r *UserRepository) UpdateProfile(ctx context.Context, u *user.User) error {
	tag, err := r.conn.Exec(ctx, `
		UPDATE users SET nickname = $1, emoji = $2, region = $3, updated_at = $4
		WHERE id = $5
	`, u.Nickname, u.Emoji, string(u.Region), u.UpdatedAt, u.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrUserNotFound
	}
	return nil
}

// Delete removes the user; foreign keys cascade to everything they own.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	if !shared.IsValidID(id) {
		return shared.ErrUserNotFound
	}
	tag, err := r.conn.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrUserNotFound
	}
	return nil
}

// List returns users ordered by XP.
func (r *UserRepository) List(ctx context.Context, page shared.Page) ([]*user.User, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT `+userColumns+` FROM users
		ORDER BY xp DESC, id
		LIMIT $1 OFFSET $2
	`, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ExpireStreaks zeroes running streaks last extended before cutoff's day.
func (r *UserRepository) ExpireStreaks(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.conn.Exec(ctx, `
		UPDATE users SET current_streak = 0, updated_at = NOW()
		WHERE current_streak > 0 AND last_active_date < $1::date
	`, timeutil.DayKey(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to expire streaks: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func scanUser(row pgx.Row) (*user.User, error) {
	var (
		u          user.User
		region     string
		xp         int
		lastActive *time.Time
	)
	err := row.Scan(
		&u.ID,
		&u.Nickname,
		&u.Emoji,
		&region,
		&xp,
		&u.Streak.Current,
		&u.Streak.Longest,
		&lastActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if IsNoRows(err) {
		return nil, shared.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	u.Region = shared.Region(region)
	u.XP = user.XP(xp)
	u.Streak.UserID = u.ID
	if lastActive != nil {
		u.Streak.LastActiveDate = dayFromDB(*lastActive)
	}
	return &u, nil
}

// dayParam renders a calendar day for a ::date parameter, nil for zero.
func dayParam(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	d := timeutil.DayKey(t)
	return &d
}

// dayFromDB maps a DATE column back to Nairobi midnight.
func dayFromDB(t time.Time) time.Time {
	return timeutil.Date(t.Year(), t.Month(), t.Day())
}
