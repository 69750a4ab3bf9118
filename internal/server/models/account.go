// Package models defines server-side records persisted by the repositories.
package models

import (
	"fmt"
	"time"
)

// Role is an account's privilege level.
type Role string

const (
	RoleStandard Role = "standard"
	RoleAdmin    Role = "admin"
)

// ParseRole accepts exactly the known role names.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleStandard, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) IsAdmin() bool { return r == RoleAdmin }

// Account is a registered trainer identity together with its lockout and
// reset-token state.
type Account struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time

	FailedAttempts int
	LockoutUntil   *time.Time

	// Only the sha256 digest of an outstanding reset token is kept.
	ResetTokenHash    *string
	ResetTokenExpires *time.Time
}
