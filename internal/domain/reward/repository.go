package reward

import (
	"context"
	"time"

	"github.com/radake/rada-ke/internal/domain/community"
	"github.com/radake/rada-ke/internal/domain/learning"
	"github.com/radake/rada-ke/internal/domain/user"
)

// LedgerTx is the set of writes an award performs. All calls made through one
// LedgerTx belong to the same database transaction.
type LedgerTx interface {
	// LockUser loads the user row FOR UPDATE, returning shared.ErrUserNotFound
	// when it does not exist.
	LockUser(ctx context.Context, userID string) (*user.User, error)

	// AppendTransaction inserts the ledger row. A dedupe key collision is
	// reported as shared.ErrAlreadyPerformed.
	AppendTransaction(ctx context.Context, t *Transaction) error

	// IncrementXP adds amount to the user's balance and returns the new total.
	IncrementXP(ctx context.Context, userID string, amount int) (int, error)

	SaveStreak(ctx context.Context, s user.Streak) error

	// CountActions returns how many ledger rows of kind the user has.
	CountActions(ctx context.Context, userID string, kind ActionKind) (int, error)

	ListBadges(ctx context.Context) ([]Badge, error)
	EarnedBadgeIDs(ctx context.Context, userID string) (map[string]bool, error)

	// GrantBadge inserts the (user, badge) row if absent and reports whether
	// it was inserted by this call.
	GrantBadge(ctx context.Context, userID, badgeID string, at time.Time) (bool, error)
}

// Tx is everything a unit of work exposes: the ledger plus the domain writes
// that are paired with awards.
type Tx interface {
	LedgerTx
	learning.AttemptTx
	community.ActionTx
}

// UnitOfWork runs fn inside one transaction. If fn returns an error nothing
// it wrote is kept.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(tx Tx) error) error
}

// BadgeRepository manages the badge catalogue.
type BadgeRepository interface {
	CreateBadge(ctx context.Context, b *Badge) error
	ListBadges(ctx context.Context) ([]Badge, error)
	ListEarned(ctx context.Context, userID string) ([]EarnedBadge, error)
}

// TransactionReader reads the ledger outside of awards.
type TransactionReader interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]*Transaction, error)
	SumByUser(ctx context.Context, userID string) (int, error)
	CountBySource(ctx context.Context, kind ActionKind, src SourceRef) (int, error)
}
