package identity

import (
	"context"

	"github.com/google/uuid"

	"github.com/medbook/api/internal/platform/apperr"
)

var (
	ErrUserNotFound = apperr.New(apperr.ErrNotFound, "User not found")
	ErrEmailTaken   = apperr.New(apperr.ErrInvalidInput, "Email already registered")
)

// UserRepository stores users together with their role profile.
type UserRepository interface {
	// Create inserts the user and, when set, its patient or doctor profile.
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	// GetMany returns the users that exist among ids, keyed by id.
	GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*User, error)
	// ListDoctors returns doctors that have a profile, ordered by name.
	ListDoctors(ctx context.Context) ([]*User, error)
	// Update writes the user columns and the doctor profile when present.
	// Profiles that do not belong to the user's role are removed.
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountByRole(ctx context.Context, role string) (int, error)
}
