package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims carries the identity claims embedded in issued JWTs.
// TenantID and Role ride along so the middleware can scope requests
// without a user lookup on every call.
type TokenClaims struct {
	Type     string `json:"type"`
	UserID   string `json:"user_id"`
	Email    string `json:"email,omitempty"`
	TenantID string `json:"tenant_id,omitempty"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}
