package command

import (
	"context"

	"github.com/radake/rada-ke/internal/domain/shared"
	"github.com/radake/rada-ke/internal/domain/user"
	"github.com/radake/rada-ke/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

// CreateUserCommand registers an anonymous participant.
type CreateUserCommand struct {
	Nickname string
	Emoji    string
	Region   string
}

// UpdateProfileCommand changes the editable profile fields.
type UpdateProfileCommand struct {
	UserID   string
	Nickname string
	Emoji    string
	Region   string
}

// UserHandler handles user lifecycle commands. It never touches XP.
type UserHandler struct {
	users user.Repository
	clock timeutil.Clock
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users user.Repository) *UserHandler {
	return &UserHandler{users: users, clock: timeutil.SystemClock}
}

// Create validates and stores a new user with zero XP.
func (h *UserHandler) Create(ctx context.Context, cmd CreateUserCommand) (*user.User, error) {
	u, err := user.New(cmd.Nickname, cmd.Emoji, cmd.Region, h.clock())
	if err != nil {
		return nil, err
	}
	if err := h.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// UpdateProfile rewrites nickname, emoji and region.
func (h *UserHandler) UpdateProfile(ctx context.Context, cmd UpdateProfileCommand) (*user.User, error) {
	if err := shared.RequireID("user", "UpdateProfile", "user_id", cmd.UserID); err != nil {
		return nil, err
	}
	draft, err := user.New(cmd.Nickname, cmd.Emoji, cmd.Region, h.clock())
	if err != nil {
		return nil, err
	}

	u, err := h.users.GetByID(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	u.Nickname = draft.Nickname
	u.Emoji = draft.Emoji
	u.Region = draft.Region
	u.UpdatedAt = draft.UpdatedAt

	if err := h.users.UpdateProfile(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Delete removes the user and everything they own.
func (h *UserHandler) Delete(ctx context.Context, userID string) error {
	if err := shared.RequireID("user", "Delete", "user_id", userID); err != nil {
		return err
	}
	return h.users.Delete(ctx, userID)
}
