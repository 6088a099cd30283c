package user

import (
	"context"
	"time"

	"github.com/radake/rada-ke/internal/domain/shared"
)

// Repository defines the non-ledger operations on users.
// XP and streak writes go through reward.LedgerTx instead.
type Repository interface {
	// Create inserts a new user.
	Create(ctx context.Context, u *User) error

	// GetByID returns shared.ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id string) (*User, error)

	// UpdateProfile changes nickname, emoji and region.
	UpdateProfile(ctx context.Context, u *User) error

	// Delete removes the user and, by cascade, everything they own.
	Delete(ctx context.Context, id string) error

	// List returns users ordered by XP descending.
	List(ctx context.Context, page shared.Page) ([]*User, error)

	// ExpireStreaks zeroes current streaks whose last active day is before
	// cutoff and returns how many rows changed.
	ExpireStreaks(ctx context.Context, cutoff time.Time) (int64, error)
}
