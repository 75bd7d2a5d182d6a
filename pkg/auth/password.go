package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	BcryptCost     = 14
	TokenKeyLength = 32 // 256 bits
	MinPasswordLen = 8
	MaxPasswordLen = 128
)

// PasswordValidationError carries the individual policy failures. Error()
// stays generic so handlers can't leak which rule tripped.
type PasswordValidationError struct {
	Errors []string
}

func (e *PasswordValidationError) Error() string {
	return "invalid password"
}

// Denylist of passwords seen constantly in credential-stuffing lists.
var commonPasswords = map[string]bool{
	"password":     true,
	"password123":  true,
	"password123!": true,
	"passw0rd":     true,
	"12345678":     true,
	"123456789":    true,
	"qwerty123":    true,
	"admin123":     true,
	"letmein":      true,
	"welcome1":     true,
	"iloveyou":     true,
	"sunshine":     true,
	"princess":     true,
	"football":     true,
	"trustno1":     true,
}

func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

func ComparePassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// GenerateTokenKey returns 256 bits of randomness in the URL-safe base64
// alphabet; reset tokens travel in query strings.
func GenerateTokenKey() (string, error) {
	buf := make([]byte, TokenKeyLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// ValidatePassword enforces the password policy: length bounds, all four
// character classes, and the common-password denylist.
func ValidatePassword(password string) error {
	var failures []string

	if len(password) < MinPasswordLen {
		failures = append(failures, fmt.Sprintf("must be at least %d characters", MinPasswordLen))
	}
	if len(password) > MaxPasswordLen {
		failures = append(failures, fmt.Sprintf("must be at most %d characters", MaxPasswordLen))
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}
	if !hasUpper {
		failures = append(failures, "must contain at least one uppercase letter")
	}
	if !hasLower {
		failures = append(failures, "must contain at least one lowercase letter")
	}
	if !hasDigit {
		failures = append(failures, "must contain at least one digit")
	}
	if !hasSpecial {
		failures = append(failures, "must contain at least one special character")
	}

	if commonPasswords[strings.ToLower(password)] {
		failures = append(failures, "is too common")
	}

	if len(failures) > 0 {
		return &PasswordValidationError{Errors: failures}
	}
	return nil
}
