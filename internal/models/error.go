package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Auth errors. Wording is deliberately generic: the login surface must
	// not reveal whether an email exists in the system.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrTokenExpired       = errors.New("token is expired or already used")
)

// AccountLockedError is returned by the login flow while an identity is
// locked out. RetryAfter carries the remaining lock time in seconds so the
// handler can populate the Retry-After header without exposing lock tiers.
type AccountLockedError struct {
	RetryAfter float64
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account temporarily locked, retry in %.0f seconds", e.RetryAfter)
}
