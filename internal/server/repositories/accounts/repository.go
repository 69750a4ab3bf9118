// Package accounts is the credential store: account identity, password
// hash, role, lockout counters and reset-token material.
package accounts

import (
	"context"
	"time"

	"github.com/dmitrijs2005/trainerauth/internal/server/lockout"
	"github.com/dmitrijs2005/trainerauth/internal/server/models"
)

// Field names reported in common.ConflictError.
const (
	FieldUsername = "username"
	FieldEmail    = "email"
)

// Repository persists accounts. Lookups that miss return common.ErrorNotFound;
// Create returns *common.ConflictError when username or email is taken.
type Repository interface {
	Create(ctx context.Context, acc *models.Account) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	List(ctx context.Context) ([]*models.Account, error)

	// ModifyLockout atomically reads the account's lockout state, applies fn
	// and stores the result. Concurrent calls for one account serialize.
	ModifyLockout(ctx context.Context, id string, fn func(lockout.State) lockout.State) (lockout.State, error)

	// SetResetToken replaces any outstanding reset token.
	SetResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error

	// ConsumeResetToken sets passwordHash and clears the reset token and
	// lockout state, but only if tokenHash matches the stored one and it
	// has not expired at now. Otherwise it returns common.ErrorNotFound
	// and changes nothing.
	ConsumeResetToken(ctx context.Context, id, tokenHash string, now time.Time, passwordHash string) error

	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateRole(ctx context.Context, id string, role models.Role) error
}
