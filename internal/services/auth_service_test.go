package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/diwakar453t/Vincenzo-sub000/internal/auth"
	"github.com/diwakar453t/Vincenzo-sub000/internal/lockout"
	"github.com/diwakar453t/Vincenzo-sub000/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hashForTest uses the minimum bcrypt cost so lockout-progression tests
// that burn many comparisons stay fast.
func hashForTest(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func activeUser(t *testing.T, password string) *models.User {
	return &models.User{
		ID:           "user123",
		TenantID:     "t1",
		Email:        "staff@school.test",
		PasswordHash: hashForTest(t, password),
		Name:         "Priya Sharma",
		Role:         "staff",
		Status:       models.UserStatusActive,
	}
}

type authFixture struct {
	svc     *AuthService
	users   *MockUserRepository
	tokens  *MockResetTokenRepository
	email   *MockEmailSender
	tracker *lockout.Tracker
	store   *memAuditStore
}

func newAuthFixture(users *MockUserRepository) *authFixture {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	store := newMemAuditStore()
	tokens := &MockResetTokenRepository{}
	email := &MockEmailSender{}
	tracker := lockout.New(lockout.DefaultConfig())

	svc := NewAuthService(
		users,
		tokens,
		email,
		tracker,
		NewAuditService(store, logger, nil),
		auth.NewTokenManager("test-secret-at-least-32-bytes-long!!", 15*time.Minute, 24*time.Hour),
		auth.NewTimingDelay(auth.TimingConfig{}),
		nil,
		logger,
		time.Hour,
	)
	return &authFixture{svc: svc, users: users, tokens: tokens, email: email, tracker: tracker, store: store}
}

func repoWith(user *models.User) *MockUserRepository {
	return &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			if user != nil && email == user.Email {
				return user, nil
			}
			return nil, models.ErrNotFound
		},
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			if user != nil && id == user.ID {
				return user, nil
			}
			return nil, models.ErrNotFound
		},
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	user := activeUser(t, "CorrectHorse9!")
	f := newAuthFixture(repoWith(user))

	resp, err := f.svc.Login(context.Background(), "Staff@School.test", "CorrectHorse9!", RequestMeta{ClientIP: "10.0.0.1"})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "staff@school.test", resp.User.Email)

	require.Len(t, f.store.logs, 1)
	assert.Equal(t, models.ActionLoginSuccess, f.store.logs[0].Action)
	assert.Equal(t, models.StatusSuccess, f.store.logs[0].Status)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	user := activeUser(t, "CorrectHorse9!")
	f := newAuthFixture(repoWith(user))

	resp, err := f.svc.Login(context.Background(), user.Email, "wrong-password", RequestMeta{ClientIP: "10.0.0.1"})
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	require.Len(t, f.store.logs, 1)
	entry := f.store.logs[0]
	assert.Equal(t, models.ActionLoginFailure, entry.Action)
	assert.Equal(t, models.StatusFailure, entry.Status)
	assert.Equal(t, 1, entry.Metadata["failed_attempts"])
}

func TestAuthService_Login_UnknownEmailSameError(t *testing.T) {
	f := newAuthFixture(repoWith(nil))

	resp, err := f.svc.Login(context.Background(), "nobody@school.test", "whatever123", RequestMeta{ClientIP: "10.0.0.1"})
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	// The miss is still tracked, so probing unknown emails locks too.
	status := f.tracker.Status("nobody@school.test")
	assert.Equal(t, 1, status.Attempts)
	require.Len(t, f.store.logs, 1)
	assert.Equal(t, models.ActionLoginFailure, f.store.logs[0].Action)
}

func TestAuthService_Login_LocksAfterFifthFailure(t *testing.T) {
	user := activeUser(t, "CorrectHorse9!")
	f := newAuthFixture(repoWith(user))
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := f.svc.Login(ctx, user.Email, "wrong-password", RequestMeta{ClientIP: "10.0.0.1"})
		assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	}

	_, err := f.svc.Login(ctx, user.Email, "wrong-password", RequestMeta{ClientIP: "10.0.0.1"})
	var locked *models.AccountLockedError
	require.ErrorAs(t, err, &locked)
	assert.Greater(t, locked.RetryAfter, float64(0))
	assert.LessOrEqual(t, locked.RetryAfter, float64(900))

	// Even the correct password is refused while the lock holds, and no
	// bcrypt comparison or audit lookup leaks through.
	_, err = f.svc.Login(ctx, user.Email, "CorrectHorse9!", RequestMeta{ClientIP: "10.0.0.2"})
	require.ErrorAs(t, err, &locked)

	lastEntry := f.store.logs[len(f.store.logs)-1]
	assert.Equal(t, "account_locked", *lastEntry.FailureReason)
}

func TestAuthService_Login_SuccessResetsFailureStreak(t *testing.T) {
	user := activeUser(t, "CorrectHorse9!")
	f := newAuthFixture(repoWith(user))
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := f.svc.Login(ctx, user.Email, "wrong-password", RequestMeta{ClientIP: "10.0.0.1"})
		assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	}

	_, err := f.svc.Login(ctx, user.Email, "CorrectHorse9!", RequestMeta{ClientIP: "10.0.0.1"})
	require.NoError(t, err)

	status := f.tracker.Status(user.Email)
	assert.Equal(t, 0, status.Attempts)

	_, err = f.svc.Login(ctx, user.Email, "wrong-password", RequestMeta{ClientIP: "10.0.0.1"})
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	assert.Equal(t, 1, f.tracker.Status(user.Email).Attempts)
}

func TestAuthService_Login_DisabledAccount(t *testing.T) {
	user := activeUser(t, "CorrectHorse9!")
	user.Status = models.UserStatusDisabled
	f := newAuthFixture(repoWith(user))

	_, err := f.svc.Login(context.Background(), user.Email, "CorrectHorse9!", RequestMeta{})
	assert.ErrorIs(t, err, models.ErrAccountDisabled)

	require.Len(t, f.store.logs, 1)
	assert.Equal(t, "account_disabled", *f.store.logs[0].FailureReason)
}

func TestAuthService_ForgotPassword_KnownEmail(t *testing.T) {
	user := activeUser(t, "CorrectHorse9!")
	f := newAuthFixture(repoWith(user))

	var stored *models.PasswordResetToken
	f.tokens.CreateFunc = func(ctx context.Context, token *models.PasswordResetToken) error {
		stored = token
		return nil
	}

	err := f.svc.ForgotPassword(context.Background(), user.Email, RequestMeta{ClientIP: "10.0.0.1"})
	require.NoError(t, err)

	require.Len(t, f.email.Sent, 1)
	assert.Equal(t, user.Email, f.email.Sent[0])

	require.NotNil(t, stored)
	assert.Equal(t, user.ID, stored.UserID)
	assert.True(t, stored.ExpiresAt.After(time.Now()))

	// Only the SHA-256 of the mailed token is persisted.
	sum := sha256.Sum256([]byte(f.email.LastToken))
	assert.Equal(t, hex.EncodeToString(sum[:]), stored.TokenHash)

	require.Len(t, f.store.logs, 1)
	assert.Equal(t, models.ActionPasswordResetRequest, f.store.logs[0].Action)
}

func TestAuthService_ForgotPassword_UnknownEmailSilent(t *testing.T) {
	f := newAuthFixture(repoWith(nil))

	err := f.svc.ForgotPassword(context.Background(), "nobody@school.test", RequestMeta{})
	require.NoError(t, err)
	assert.Empty(t, f.email.Sent)

	// The miss still shows up on the audit trail.
	require.Len(t, f.store.logs, 1)
	assert.Equal(t, models.StatusFailure, f.store.logs[0].Status)
}

func TestAuthService_ResetPassword_RoundTrip(t *testing.T) {
	user := activeUser(t, "OldPassword12!")
	f := newAuthFixture(repoWith(user))
	ctx := context.Background()

	var stored *models.PasswordResetToken
	f.tokens.CreateFunc = func(ctx context.Context, token *models.PasswordResetToken) error {
		stored = token
		return nil
	}
	f.tokens.ConsumeFunc = func(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error) {
		if stored != nil && tokenHash == stored.TokenHash {
			return stored, nil
		}
		return nil, models.ErrNotFound
	}

	var newHash string
	f.users.UpdatePasswordFunc = func(ctx context.Context, id, passwordHash string) error {
		assert.Equal(t, user.ID, id)
		newHash = passwordHash
		return nil
	}

	// Build up a lockout that the completed reset must clear.
	f.tracker.RecordFailure(user.Email, "10.0.0.1")

	require.NoError(t, f.svc.ForgotPassword(ctx, user.Email, RequestMeta{}))
	require.NoError(t, f.svc.ResetPassword(ctx, f.email.LastToken, "NewPassword34$", RequestMeta{}))

	require.NotEmpty(t, newHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(newHash), []byte("NewPassword34$")))
	assert.Equal(t, 0, f.tracker.Status(user.Email).Attempts)

	lastEntry := f.store.logs[len(f.store.logs)-1]
	assert.Equal(t, models.ActionPasswordResetConfirm, lastEntry.Action)
}

func TestAuthService_ResetPassword_InvalidToken(t *testing.T) {
	f := newAuthFixture(repoWith(nil))

	err := f.svc.ResetPassword(context.Background(), "bogus-token", "NewPassword34$", RequestMeta{})
	assert.ErrorIs(t, err, models.ErrTokenExpired)
}

func TestAuthService_ResetPassword_WeakPasswordRejected(t *testing.T) {
	f := newAuthFixture(repoWith(nil))
	f.tokens.ConsumeFunc = func(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error) {
		t.Fatal("token must not be consumed for a weak password")
		return nil, nil
	}

	err := f.svc.ResetPassword(context.Background(), "some-token", "short", RequestMeta{})
	require.Error(t, err)
	assert.False(t, errors.Is(err, models.ErrTokenExpired))
}

func TestAuthService_RefreshToken_RoundTrip(t *testing.T) {
	user := activeUser(t, "CorrectHorse9!")
	f := newAuthFixture(repoWith(user))
	ctx := context.Background()

	loginResp, err := f.svc.Login(ctx, user.Email, "CorrectHorse9!", RequestMeta{})
	require.NoError(t, err)

	refreshResp, err := f.svc.RefreshToken(ctx, loginResp.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshResp.AccessToken)

	// An access token is not accepted in place of a refresh token.
	_, err = f.svc.RefreshToken(ctx, loginResp.AccessToken)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}
