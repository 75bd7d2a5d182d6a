package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/diwakar453t/Vincenzo-sub000/internal/auth"
	"github.com/diwakar453t/Vincenzo-sub000/internal/models"
	"github.com/diwakar453t/Vincenzo-sub000/internal/services"
	pkghttp "github.com/diwakar453t/Vincenzo-sub000/pkg/http"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAuthContext adds user claims to request context for testing authenticated endpoints
func WithAuthContext(req *http.Request, userID, email, role string) *http.Request {
	claims := &models.TokenClaims{
		UserID: userID,
		Email:  email,
		Role:   role,
		Type:   "access",
	}
	ctx := context.WithValue(req.Context(), auth.UserContextKey, claims)
	return req.WithContext(ctx)
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc          func(ctx context.Context, email, password string, meta services.RequestMeta) (*services.AuthResponse, error)
	RefreshTokenFunc   func(ctx context.Context, refreshToken string) (*services.AuthResponse, error)
	ForgotPasswordFunc func(ctx context.Context, email string, meta services.RequestMeta) error
	ResetPasswordFunc  func(ctx context.Context, token, newPassword string, meta services.RequestMeta) error
}

func (m *MockAuthService) Login(ctx context.Context, email, password string, meta services.RequestMeta) (*services.AuthResponse, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password, meta)
	}
	return nil, models.ErrInvalidCredentials
}

func (m *MockAuthService) RefreshToken(ctx context.Context, refreshToken string) (*services.AuthResponse, error) {
	if m.RefreshTokenFunc != nil {
		return m.RefreshTokenFunc(ctx, refreshToken)
	}
	return nil, models.ErrUnauthorized
}

func (m *MockAuthService) ForgotPassword(ctx context.Context, email string, meta services.RequestMeta) error {
	if m.ForgotPasswordFunc != nil {
		return m.ForgotPasswordFunc(ctx, email, meta)
	}
	return nil
}

func (m *MockAuthService) ResetPassword(ctx context.Context, token, newPassword string, meta services.RequestMeta) error {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, token, newPassword, meta)
	}
	return nil
}

// MockAuditService implements AuditServiceInterface for testing
type MockAuditService struct {
	VerifyChainFunc func(ctx context.Context, tenantID *string, limit int) (*models.VerificationResult, error)
	TrailFunc       func(ctx context.Context, tenantID *string, limit, offset int) ([]*models.AuditLog, error)
}

func (m *MockAuditService) VerifyChain(ctx context.Context, tenantID *string, limit int) (*models.VerificationResult, error) {
	if m.VerifyChainFunc != nil {
		return m.VerifyChainFunc(ctx, tenantID, limit)
	}
	return &models.VerificationResult{Valid: true}, nil
}

func (m *MockAuditService) Trail(ctx context.Context, tenantID *string, limit, offset int) ([]*models.AuditLog, error) {
	if m.TrailFunc != nil {
		return m.TrailFunc(ctx, tenantID, limit, offset)
	}
	return nil, nil
}
