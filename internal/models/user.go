package models

import (
	"time"
)

// Staff account statuses
const (
	UserStatusActive    = "active"
	UserStatusSuspended = "suspended"
	UserStatusDisabled  = "disabled"
)

// User is a staff account of the school platform (admin, accountant,
// teacher-facing logins). Student records are owned by the out-of-scope
// ERP modules and never appear here.
type User struct {
	ID           string
	TenantID     string
	Email        string
	PasswordHash string
	Name         string
	Role         string // e.g. "staff", "admin"
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PasswordResetToken is a single-use, short-lived reset credential.
// Only the SHA-256 of the raw token is persisted.
type PasswordResetToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}
