package users

import (
	"context"

	"github.com/pkg/errors"
)

// ErrNotFound is returned by lookups when no user matches.
var ErrNotFound = errors.New("user not found")

// UserRepo is the narrow user-directory contract the authentication core
// depends on.
type UserRepo interface {
	// Save inserts the user (assigning an ID when empty) or updates it.
	Save(ctx context.Context, user *User) error

	// FindByEmail returns the user for the email, or ErrNotFound.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// FindByID returns the user for the id, or ErrNotFound.
	FindByID(ctx context.Context, id string) (*User, error)

	// ExistsByEmail reports whether an account already uses the email.
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}
