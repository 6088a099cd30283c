package projections

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/radake/rada-ke/internal/domain/reward"
	"github.com/radake/rada-ke/pkg/timeutil"
)

// LedgerView implements reward.TransactionReader.
type LedgerView struct {
	db *sqlx.DB
}

var _ reward.TransactionReader = (*LedgerView)(nil)

// NewLedgerView wraps sqlDB.
func NewLedgerView(sqlDB *sql.DB) *LedgerView {
	return &LedgerView{db: sqlx.NewDb(sqlDB, DriverName)}
}

type transactionRow struct {
	ID         string         `db:"id"`
	UserID     string         `db:"user_id"`
	ActionKind string         `db:"action_kind"`
	Amount     int            `db:"amount"`
	SourceType string         `db:"source_type"`
	SourceID   string         `db:"source_id"`
	AwardDate  time.Time      `db:"award_date"`
	DedupeKey  sql.NullString `db:"dedupe_key"`
	CreatedAt  time.Time      `db:"created_at"`
}

func (r transactionRow) toDomain() *reward.Transaction {
	t := &reward.Transaction{
		ID:        r.ID,
		UserID:    r.UserID,
		Kind:      reward.ActionKind(r.ActionKind),
		Amount:    r.Amount,
		Source:    reward.Ref(r.SourceType, r.SourceID),
		AwardDate: timeutil.Date(r.AwardDate.Year(), r.AwardDate.Month(), r.AwardDate.Day()),
		CreatedAt: r.CreatedAt,
	}
	if r.DedupeKey.Valid {
		key := r.DedupeKey.String
		t.DedupeKey = &key
	}
	return t
}

// ListByUser returns the user's most recent transactions first.
func (v *LedgerView) ListByUser(ctx context.Context, userID string, limit int) ([]*reward.Transaction, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []transactionRow
	err := v.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, action_kind, amount, source_type, source_id,
		       award_date, dedupe_key, created_at
		FROM xp_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	out := make([]*reward.Transaction, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

// SumByUser totals the user's ledger. It always equals users.xp.
func (v *LedgerView) SumByUser(ctx context.Context, userID string) (int, error) {
	var total int
	err := v.db.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(amount), 0) FROM xp_transactions WHERE user_id = $1
	`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to sum transactions: %w", err)
	}
	return total, nil
}

// CountBySource counts awards of kind pointing at src across all users.
func (v *LedgerView) CountBySource(ctx context.Context, kind reward.ActionKind, src reward.SourceRef) (int, error) {
	var n int
	err := v.db.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM xp_transactions
		WHERE action_kind = $1 AND source_type = $2 AND source_id = $3
	`, string(kind.Normalize()), src.Type, src.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return n, nil
}
