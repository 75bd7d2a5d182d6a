package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/diwakar453t/Vincenzo-sub000/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func newRequest(path, remoteAddr string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, path, nil)
	r.RemoteAddr = remoteAddr
	return r
}

func TestRateLimit_AllowsWithinBurst(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Config{
		IPRequestsPerMinute: 60,
		IPBurst:             3,
		TenantRatePerSecond: 10,
		TenantBurst:         100,
		SweepEvery:          1000,
		IdleEviction:        5 * time.Minute,
	})
	handler := RateLimit(limiter, nil, nil)(okHandler())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, newRequest("/api/v1/students", "203.0.113.7:4444"))
		assert.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}
}

func TestRateLimit_DeniesWithRetryAfter(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Config{
		IPRequestsPerMinute: 60,
		IPBurst:             2,
		TenantRatePerSecond: 10,
		TenantBurst:         100,
		SweepEvery:          1000,
		IdleEviction:        5 * time.Minute,
	})
	handler := RateLimit(limiter, nil, nil)(okHandler())

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, newRequest("/api/v1/students", "203.0.113.7:4444"))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newRequest("/api/v1/students", "203.0.113.7:4444"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "retry_after")
}

func TestRateLimit_SensitivePathTighterThanIPBucket(t *testing.T) {
	limiter := ratelimit.New(ratelimit.DefaultConfig())
	handler := RateLimit(limiter, nil, nil)(okHandler())

	denied := 0
	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, newRequest("/api/v1/auth/login", "203.0.113.7:4444"))
		if rec.Code == http.StatusTooManyRequests {
			denied++
		}
	}
	// Login allows 5 per burst even though the IP bucket would admit 30.
	assert.Equal(t, 5, denied)
}

func TestRateLimit_SeparateIPsIndependent(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Config{
		IPRequestsPerMinute: 60,
		IPBurst:             1,
		TenantRatePerSecond: 10,
		TenantBurst:         100,
		SweepEvery:          1000,
		IdleEviction:        5 * time.Minute,
	})
	handler := RateLimit(limiter, nil, nil)(okHandler())

	recA := httptest.NewRecorder()
	handler.ServeHTTP(recA, newRequest("/x", "203.0.113.7:1111"))
	recB := httptest.NewRecorder()
	handler.ServeHTTP(recB, newRequest("/x", "203.0.113.8:2222"))

	assert.Equal(t, http.StatusOK, recA.Code)
	assert.Equal(t, http.StatusOK, recB.Code)
}

func TestRateLimit_TenantHeaderSharesBucket(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Config{
		IPRequestsPerMinute: 6000,
		IPBurst:             1000,
		TenantRatePerSecond: 1,
		TenantBurst:         2,
		SweepEvery:          100000,
		IdleEviction:        5 * time.Minute,
	})
	handler := RateLimit(limiter, nil, nil)(okHandler())

	// Two different IPs drain the same tenant bucket.
	for i, addr := range []string{"203.0.113.7:1111", "203.0.113.8:2222"} {
		rec := httptest.NewRecorder()
		req := newRequest("/api/v1/students", addr)
		req.Header.Set(TenantHeader, "school-42")
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}

	rec := httptest.NewRecorder()
	req := newRequest("/api/v1/students", "203.0.113.9:3333")
	req.Header.Set(TenantHeader, "school-42")
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
