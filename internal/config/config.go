package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Lockout   LockoutConfig
	Email     EmailConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	TrustedProxies []string // CIDR ranges allowed to set X-Forwarded-For
	CORSOrigins    []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

type AuthConfig struct {
	JWTSecret          string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	ResetTokenTTL      time.Duration
	ResetCleanupEvery  time.Duration
	TimingBaseDelayMs  int
	TimingJitterMs     int
}

type RateLimitConfig struct {
	IPRequestsPerMinute int
	IPBurst             int
	TenantRatePerSecond float64
	TenantBurst         int
}

type LockoutConfig struct {
	ShortThreshold  int
	MediumThreshold int
	LongThreshold   int
	ShortDuration   time.Duration
	MediumDuration  time.Duration
	LongDuration    time.Duration
	InactivityReset time.Duration
}

type EmailConfig struct {
	Enabled     bool
	AWSRegion   string
	FromAddress string
	BaseURL     string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "schoolerp"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			TrustedProxies: parseCSV(getEnv("TRUSTED_PROXIES", "")),
			CORSOrigins:    parseCSV(getEnv("CORS_ALLOWED_ORIGINS", "")),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:          jwtSecret,
			AccessTokenExpiry:  getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 15*time.Minute),
			RefreshTokenExpiry: getEnvAsDuration("REFRESH_TOKEN_EXPIRY", 7*24*time.Hour),
			ResetTokenTTL:      getEnvAsDuration("RESET_TOKEN_TTL", 1*time.Hour),
			ResetCleanupEvery:  getEnvAsDuration("RESET_CLEANUP_INTERVAL", 1*time.Hour),
			TimingBaseDelayMs:  getEnvAsInt("LOGIN_TIMING_BASE_MS", 100),
			TimingJitterMs:     getEnvAsInt("LOGIN_TIMING_JITTER_MS", 100),
		},
		RateLimit: RateLimitConfig{
			IPRequestsPerMinute: getEnvAsInt("RATE_LIMIT_IP_PER_MINUTE", 120),
			IPBurst:             getEnvAsInt("RATE_LIMIT_IP_BURST", 30),
			TenantRatePerSecond: getEnvAsFloat("RATE_LIMIT_TENANT_PER_SECOND", 10),
			TenantBurst:         getEnvAsInt("RATE_LIMIT_TENANT_BURST", 100),
		},
		Lockout: LockoutConfig{
			ShortThreshold:  getEnvAsInt("LOCKOUT_SHORT_THRESHOLD", 5),
			MediumThreshold: getEnvAsInt("LOCKOUT_MEDIUM_THRESHOLD", 10),
			LongThreshold:   getEnvAsInt("LOCKOUT_LONG_THRESHOLD", 20),
			ShortDuration:   getEnvAsDuration("LOCKOUT_SHORT_DURATION", 15*time.Minute),
			MediumDuration:  getEnvAsDuration("LOCKOUT_MEDIUM_DURATION", 1*time.Hour),
			LongDuration:    getEnvAsDuration("LOCKOUT_LONG_DURATION", 24*time.Hour),
			InactivityReset: getEnvAsDuration("LOCKOUT_INACTIVITY_RESET", 1*time.Hour),
		},
		Email: EmailConfig{
			Enabled:     getEnvAsBool("EMAIL_ENABLED", false),
			AWSRegion:   getEnv("AWS_REGION", "ap-south-1"),
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", "no-reply@schoolerp.example"),
			BaseURL:     getEnv("EMAIL_BASE_URL", "http://localhost:8080"),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateJWTSecret enforces minimum security standards for JWT secret
func validateJWTSecret(secret, env string) error {
	minLength := 16 // Development minimum
	if env == "production" {
		minLength = 32 // Production requires stronger secret (256 bits)
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}
	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func parseCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
