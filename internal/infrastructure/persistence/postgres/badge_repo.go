package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/radake/rada-ke/internal/domain/reward"
	"github.com/radake/rada-ke/internal/domain/shared"
)

// BadgeRepository implements reward.BadgeRepository for PostgreSQL.
type BadgeRepository struct {
	conn *Connection
}

// NewBadgeRepository creates a new BadgeRepository.
func NewBadgeRepository(conn *Connection) *BadgeRepository {
	return &BadgeRepository{conn: conn}
}

const badgeColumns = `id, code, name, description, emoji, criteria_type, action_kind, threshold`

// CreateBadge adds a catalogue entry. Codes are unique.
func (r *BadgeRepository) CreateBadge(ctx context.Context, b *reward.Badge) error {
	_, err := r.conn.Exec(ctx, `
		INSERT INTO badges (`+badgeColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		b.ID,
		b.Code,
		b.Name,
		b.Description,
		b.Emoji,
		string(b.Criteria.Type),
		string(b.Criteria.ActionKind),
		b.Criteria.Threshold,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.NewDomainError("reward", "CreateBadge", shared.ErrAlreadyExists, "badge code already exists")
		}
		return fmt.Errorf("failed to create badge: %w", err)
	}
	return nil
}

// ListBadges returns the whole catalogue.
func (r *BadgeRepository) ListBadges(ctx context.Context) ([]reward.Badge, error) {
	return queryBadges(ctx, r.conn)
}

// ListEarned returns the user's badges, newest first.
func (r *BadgeRepository) ListEarned(ctx context.Context, userID string) ([]reward.EarnedBadge, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT b.id, b.code, b.name, b.description, b.emoji, b.criteria_type, b.action_kind, b.threshold,
		       ub.earned_at
		FROM user_badges ub
		JOIN badges b ON b.id = ub.badge_id
		WHERE ub.user_id = $1
		ORDER BY ub.earned_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list earned badges: %w", err)
	}
	defer rows.Close()

	var earned []reward.EarnedBadge
	for rows.Next() {
		e := reward.EarnedBadge{UserID: userID}
		var criteriaType, actionKind string
		if err := rows.Scan(
			&e.Badge.ID,
			&e.Badge.Code,
			&e.Badge.Name,
			&e.Badge.Description,
			&e.Badge.Emoji,
			&criteriaType,
			&actionKind,
			&e.Badge.Criteria.Threshold,
			&e.EarnedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan earned badge: %w", err)
		}
		e.Badge.Criteria.Type = reward.CriteriaType(criteriaType)
		e.Badge.Criteria.ActionKind = reward.ActionKind(actionKind)
		earned = append(earned, e)
	}
	return earned, rows.Err()
}

func queryBadges(ctx context.Context, q Querier) ([]reward.Badge, error) {
	rows, err := q.Query(ctx, `SELECT `+badgeColumns+` FROM badges ORDER BY threshold, code`)
	if err != nil {
		return nil, fmt.Errorf("failed to list badges: %w", err)
	}
	defer rows.Close()

	var badges []reward.Badge
	for rows.Next() {
		b, err := scanBadge(rows)
		if err != nil {
			return nil, err
		}
		badges = append(badges, b)
	}
	return badges, rows.Err()
}

func scanBadge(row pgx.Row) (reward.Badge, error) {
	var (
		b                        reward.Badge
		criteriaType, actionKind string
	)
	err := row.Scan(
		&b.ID,
		&b.Code,
		&b.Name,
		&b.Description,
		&b.Emoji,
		&criteriaType,
		&actionKind,
		&b.Criteria.Threshold,
	)
	if err != nil {
		return b, fmt.Errorf("failed to scan badge: %w", err)
	}
	b.Criteria.Type = reward.CriteriaType(criteriaType)
	b.Criteria.ActionKind = reward.ActionKind(actionKind)
	return b, nil
}
