// Package common defines shared constants, sentinel errors and error types
// used across the authentication server. Callers should use errors.Is and
// errors.As to match these values.
package common

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors. Their messages are safe to show to callers.
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrAccountLocked         = errors.New("account locked")
	ErrRateLimited           = errors.New("too many requests, please try again later")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrUnauthenticated       = errors.New("authentication required")
	ErrUnauthorized          = errors.New("access denied, admin role required")
	ErrSelfDemotion          = errors.New("cannot demote yourself")

	// ErrStorage hides persistence failures from callers; details go to the log.
	ErrStorage = errors.New("internal server error")

	ErrArchiveDisabled = errors.New("audit archive is not configured")
)

// FieldError describes a single rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects field-level input problems. It is recoverable by
// the caller correcting the request.
type ValidationError struct {
	Fields []FieldError
}

// Add appends a problem for field.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// OrNil returns e when it holds at least one field error, nil otherwise.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation error: " + strings.Join(parts, "; ")
}

// NewValidationError is a shorthand for a single-field ValidationError.
func NewValidationError(field, message string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, message)
	return v
}

// ConflictError reports a uniqueness violation on Field.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string { return fmt.Sprintf("%s %s", e.Field, ErrorAlreadyExists) }

func (e *ConflictError) Unwrap() error { return ErrorAlreadyExists }

// LockedError is returned while an account is locked out.
type LockedError struct {
	Remaining time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked, try again in %d seconds", e.Seconds())
}

func (e *LockedError) Unwrap() error { return ErrAccountLocked }

// Seconds returns the remaining lock time in whole seconds, rounded up.
func (e *LockedError) Seconds() int64 { return CeilSeconds(e.Remaining) }

// RateLimitedError is returned when a caller exceeds its request budget.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string { return ErrRateLimited.Error() }

func (e *RateLimitedError) Unwrap() error { return ErrRateLimited }

// Seconds returns the retry hint in whole seconds, rounded up.
func (e *RateLimitedError) Seconds() int64 { return CeilSeconds(e.RetryAfter) }

// CeilSeconds converts d to whole seconds, rounding any fraction up.
func CeilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64((d + time.Second - 1) / time.Second)
}
