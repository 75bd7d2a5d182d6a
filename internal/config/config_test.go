package config

import (
	"os"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	os.Setenv("JWT_SECRET", "test-secret-32-characters-long!")
	os.Setenv("DB_PASSWORD", "test")
	t.Cleanup(os.Clearenv)
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	tests := []struct {
		name     string
		actual   interface{}
		expected interface{}
	}{
		{"Server.Port", cfg.Server.Port, "8080"},
		{"Server.ReadTimeout", cfg.Server.ReadTimeout, 15 * time.Second},
		{"RateLimit.IPRequestsPerMinute", cfg.RateLimit.IPRequestsPerMinute, 120},
		{"RateLimit.IPBurst", cfg.RateLimit.IPBurst, 30},
		{"RateLimit.TenantRatePerSecond", cfg.RateLimit.TenantRatePerSecond, float64(10)},
		{"RateLimit.TenantBurst", cfg.RateLimit.TenantBurst, 100},
		{"Lockout.ShortThreshold", cfg.Lockout.ShortThreshold, 5},
		{"Lockout.ShortDuration", cfg.Lockout.ShortDuration, 15 * time.Minute},
		{"Lockout.LongDuration", cfg.Lockout.LongDuration, 24 * time.Hour},
		{"Lockout.InactivityReset", cfg.Lockout.InactivityReset, time.Hour},
		{"Auth.ResetTokenTTL", cfg.Auth.ResetTokenTTL, time.Hour},
		{"Auth.AccessTokenExpiry", cfg.Auth.AccessTokenExpiry, 15 * time.Minute},
	}

	for _, tt := range tests {
		if tt.actual != tt.expected {
			t.Errorf("%s: got %v, want %v", tt.name, tt.actual, tt.expected)
		}
	}
}

func TestLoad_CustomValues(t *testing.T) {
	setRequiredEnv(t)
	os.Setenv("RATE_LIMIT_IP_BURST", "10")
	os.Setenv("RATE_LIMIT_TENANT_PER_SECOND", "2.5")
	os.Setenv("LOCKOUT_SHORT_DURATION", "5m")
	os.Setenv("SERVER_READ_TIMEOUT", "30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.RateLimit.IPBurst != 10 {
		t.Errorf("IPBurst: got %d, want 10", cfg.RateLimit.IPBurst)
	}
	if cfg.RateLimit.TenantRatePerSecond != 2.5 {
		t.Errorf("TenantRatePerSecond: got %v, want 2.5", cfg.RateLimit.TenantRatePerSecond)
	}
	if cfg.Lockout.ShortDuration != 5*time.Minute {
		t.Errorf("ShortDuration: got %v, want 5m", cfg.Lockout.ShortDuration)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("ReadTimeout: got %v, want 30s", cfg.Server.ReadTimeout)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	setRequiredEnv(t)
	os.Setenv("RATE_LIMIT_IP_BURST", "not-a-number")
	os.Setenv("LOCKOUT_SHORT_DURATION", "not-a-duration")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.RateLimit.IPBurst != 30 {
		t.Errorf("IPBurst: got %d, want default 30", cfg.RateLimit.IPBurst)
	}
	if cfg.Lockout.ShortDuration != 15*time.Minute {
		t.Errorf("ShortDuration: got %v, want default 15m", cfg.Lockout.ShortDuration)
	}
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	os.Clearenv()
	os.Setenv("DB_PASSWORD", "test")
	t.Cleanup(os.Clearenv)

	if _, err := Load(); err == nil {
		t.Fatal("Load() = nil error, want JWT_SECRET error")
	}
}

func TestLoad_WeakJWTSecretRejected(t *testing.T) {
	os.Clearenv()
	os.Setenv("DB_PASSWORD", "test")
	os.Setenv("ENV", "production")
	os.Setenv("JWT_SECRET", "short")
	t.Cleanup(os.Clearenv)

	if _, err := Load(); err == nil {
		t.Fatal("Load() = nil error, want secret strength error")
	}
}
