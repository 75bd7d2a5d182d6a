package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/diwakar453t/Vincenzo-sub000/internal/auth"
	"github.com/diwakar453t/Vincenzo-sub000/internal/lockout"
	"github.com/diwakar453t/Vincenzo-sub000/internal/metrics"
	"github.com/diwakar453t/Vincenzo-sub000/internal/models"
	pkgauth "github.com/diwakar453t/Vincenzo-sub000/pkg/auth"
	pkglogger "github.com/diwakar453t/Vincenzo-sub000/pkg/logger"
)

// UserRepository defines the user persistence operations the auth flow needs.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// ResetTokenRepository defines the password-reset token persistence operations.
type ResetTokenRepository interface {
	Create(ctx context.Context, token *models.PasswordResetToken) error
	Consume(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error)
}

// EmailSender delivers transactional mail.
type EmailSender interface {
	SendPasswordResetEmail(ctx context.Context, email, token string, expiresAt time.Time) error
}

// dummyPasswordHash is compared against when the account does not exist,
// so the unknown-email path costs the same bcrypt work as a real check.
const dummyPasswordHash = "$2a$14$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// AuthService handles authentication business logic: credential checks
// behind the lockout tracker, password reset, and token refresh. Every
// outcome lands on the audit trail.
type AuthService struct {
	users         UserRepository
	resetTokens   ResetTokenRepository
	email         EmailSender
	tracker       *lockout.Tracker
	audit         *AuditService
	tm            *auth.TokenManager
	timing        *auth.TimingDelay
	metrics       *metrics.Metrics
	logger        *slog.Logger
	resetTokenTTL time.Duration
	now           func() time.Time
}

// NewAuthService creates a new AuthService. metrics may be nil in tests.
func NewAuthService(
	users UserRepository,
	resetTokens ResetTokenRepository,
	email EmailSender,
	tracker *lockout.Tracker,
	audit *AuditService,
	tm *auth.TokenManager,
	timing *auth.TimingDelay,
	m *metrics.Metrics,
	logger *slog.Logger,
	resetTokenTTL time.Duration,
) *AuthService {
	return &AuthService{
		users:         users,
		resetTokens:   resetTokens,
		email:         email,
		tracker:       tracker,
		audit:         audit,
		tm:            tm,
		timing:        timing,
		metrics:       m,
		logger:        logger,
		resetTokenTTL: resetTokenTTL,
		now:           time.Now,
	}
}

// UserResponse represents a user in the HTTP response
type UserResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	TenantID string `json:"tenant_id,omitempty"`
}

// AuthResponse represents the response from auth operations
type AuthResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	User         *UserResponse `json:"user"`
}

// RequestMeta carries the caller context forwarded to lockout and audit.
type RequestMeta struct {
	ClientIP  string
	UserAgent string
}

// Login authenticates a staff account and returns a token pair. Unknown
// email and wrong password produce the same error and comparable latency.
func (s *AuthService) Login(ctx context.Context, email, password string, meta RequestMeta) (*AuthResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		s.logger.Warn("login attempt with empty email")
		return nil, models.ErrInvalidCredentials
	}

	if locked, remaining := s.tracker.IsLocked(email); locked {
		s.logger.Info("login blocked: account locked",
			slog.String("email", pkglogger.SanitizedEmail(email)))
		s.audit.Log(ctx, AuditEvent{
			Action:        "login_failure",
			Status:        "failure",
			ResourceType:  models.ResourceUser,
			ActorEmail:    email,
			ClientIP:      meta.ClientIP,
			UserAgent:     meta.UserAgent,
			FailureReason: "account_locked",
		})
		return nil, &models.AccountLockedError{RetryAfter: remaining}
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Burn the same bcrypt work as a real comparison.
			_ = pkgauth.ComparePassword(dummyPasswordHash, password)
			s.recordLoginFailure(ctx, email, nil, meta, "invalid_credentials")
			s.timing.Wait(false)
			return nil, models.ErrInvalidCredentials
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if user.Status != models.UserStatusActive {
		s.logger.Info("login blocked due to account state",
			slog.String("user_id", user.ID),
			slog.String("status", user.Status))
		s.recordLoginFailure(ctx, email, user, meta, "account_disabled")
		s.timing.Wait(false)
		return nil, models.ErrAccountDisabled
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		s.logger.Info("login failed: invalid credentials")
		status := s.recordLoginFailure(ctx, email, user, meta, "invalid_credentials")
		s.timing.Wait(false)
		if status.Locked {
			return nil, &models.AccountLockedError{RetryAfter: status.RetryAfter}
		}
		return nil, models.ErrInvalidCredentials
	}

	s.tracker.RecordSuccess(email)

	accessToken, err := s.tm.GenerateAccessToken(user)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	refreshToken, err := s.tm.GenerateRefreshToken(user)
	if err != nil {
		s.logger.Error("failed to generate refresh token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	s.audit.Log(ctx, AuditEvent{
		Action:       "login_success",
		ResourceType: models.ResourceUser,
		ResourceID:   user.ID,
		TenantID:     user.TenantID,
		ActorEmail:   user.Email,
		ActorRole:    user.Role,
		ClientIP:     meta.ClientIP,
		UserAgent:    meta.UserAgent,
	})

	return &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         userModelToResponse(user),
	}, nil
}

// recordLoginFailure updates the lockout tracker and writes the audit
// record for one failed attempt. user may be nil for unknown emails; the
// tracker is keyed by email either way so probes cannot tell accounts apart.
func (s *AuthService) recordLoginFailure(ctx context.Context, email string, user *models.User, meta RequestMeta, reason string) lockout.Status {
	status := s.tracker.RecordFailure(email, meta.ClientIP)
	if s.metrics != nil {
		s.metrics.LoginFailures.Inc()
		if status.Locked {
			s.metrics.AccountLockouts.Inc()
		}
	}

	event := AuditEvent{
		Action:        "login_failure",
		Status:        "failure",
		ResourceType:  models.ResourceUser,
		ActorEmail:    email,
		ClientIP:      meta.ClientIP,
		UserAgent:     meta.UserAgent,
		FailureReason: reason,
		Metadata: map[string]interface{}{
			"failed_attempts": status.Attempts,
			"locked":          status.Locked,
		},
	}
	if user != nil {
		event.ResourceID = user.ID
		event.TenantID = user.TenantID
	}
	s.audit.Log(ctx, event)

	return status
}

// RefreshToken generates a new token pair from a refresh token
func (s *AuthService) RefreshToken(ctx context.Context, refreshTokenString string) (*AuthResponse, error) {
	if refreshTokenString = strings.TrimSpace(refreshTokenString); refreshTokenString == "" {
		return nil, models.ErrUnauthorized
	}

	claims, err := s.tm.ValidateToken(refreshTokenString)
	if err != nil {
		s.logger.Info("refresh token validation failed", slog.Any("error", err))
		return nil, models.ErrUnauthorized
	}
	if claims.Type != "refresh" {
		s.logger.Warn("refresh attempt with non-refresh token", slog.String("user_id", claims.UserID))
		return nil, models.ErrUnauthorized
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to get user for token refresh", slog.String("user_id", claims.UserID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if user.Status != models.UserStatusActive {
		s.logger.Info("token refresh blocked due to account state",
			slog.String("user_id", user.ID),
			slog.String("status", user.Status))
		return nil, models.ErrUnauthorized
	}

	accessToken, err := s.tm.GenerateAccessToken(user)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	newRefreshToken, err := s.tm.GenerateRefreshToken(user)
	if err != nil {
		s.logger.Error("failed to generate refresh token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		User:         userModelToResponse(user),
	}, nil
}

// ForgotPassword issues a single-use reset token and mails it. The return
// value is nil for unknown emails too; only the audit trail records the miss.
func (s *AuthService) ForgotPassword(ctx context.Context, email string, meta RequestMeta) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("password reset requested for unknown email")
			s.audit.Log(ctx, AuditEvent{
				Action:        "password_reset_request",
				Status:        "failure",
				ResourceType:  models.ResourceUser,
				ActorEmail:    email,
				ClientIP:      meta.ClientIP,
				UserAgent:     meta.UserAgent,
				FailureReason: "unknown_email",
			})
			return nil
		}
		s.logger.Error("failed to get user for password reset", slog.Any("error", err))
		return models.ErrInternalServer
	}

	rawToken, err := pkgauth.GenerateTokenKey()
	if err != nil {
		s.logger.Error("failed to generate reset token", slog.Any("error", err))
		return models.ErrInternalServer
	}

	expiresAt := s.now().Add(s.resetTokenTTL)
	token := &models.PasswordResetToken{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		TokenHash: hashResetToken(rawToken),
		ExpiresAt: expiresAt,
	}
	if err := s.resetTokens.Create(ctx, token); err != nil {
		s.logger.Error("failed to store reset token", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.email.SendPasswordResetEmail(ctx, user.Email, rawToken, expiresAt); err != nil {
		s.logger.Error("failed to send reset email", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.audit.Log(ctx, AuditEvent{
		Action:       "password_reset_request",
		ResourceType: models.ResourceUser,
		ResourceID:   user.ID,
		TenantID:     user.TenantID,
		ActorEmail:   user.Email,
		ClientIP:     meta.ClientIP,
		UserAgent:    meta.UserAgent,
	})
	return nil
}

// ResetPassword redeems a reset token and sets a new password. The token
// is consumed atomically, so a replay loses the race and gets rejected.
func (s *AuthService) ResetPassword(ctx context.Context, rawToken, newPassword string, meta RequestMeta) error {
	if strings.TrimSpace(rawToken) == "" {
		return models.ErrTokenExpired
	}
	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return err
	}

	token, err := s.resetTokens.Consume(ctx, hashResetToken(rawToken))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("password reset with invalid or expired token")
			return models.ErrTokenExpired
		}
		s.logger.Error("failed to consume reset token", slog.Any("error", err))
		return models.ErrInternalServer
	}

	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		s.logger.Error("failed to get user for password reset", slog.String("user_id", token.UserID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	passwordHash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}
	if err := s.users.UpdatePassword(ctx, user.ID, passwordHash); err != nil {
		s.logger.Error("failed to update password", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	// A completed reset proves control of the mailbox; clear any lockout.
	s.tracker.RecordSuccess(user.Email)

	s.logger.Info("password reset completed", slog.String("user_id", user.ID))
	s.audit.Log(ctx, AuditEvent{
		Action:       "password_reset_confirm",
		ResourceType: models.ResourceUser,
		ResourceID:   user.ID,
		TenantID:     user.TenantID,
		ActorEmail:   user.Email,
		ClientIP:     meta.ClientIP,
		UserAgent:    meta.UserAgent,
	})
	return nil
}

func hashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func userModelToResponse(user *models.User) *UserResponse {
	return &UserResponse{
		ID:       user.ID,
		Email:    user.Email,
		Name:     user.Name,
		Role:     user.Role,
		TenantID: user.TenantID,
	}
}
