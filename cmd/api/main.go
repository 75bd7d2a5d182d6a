package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/diwakar453t/Vincenzo-sub000/internal/auth"
	"github.com/diwakar453t/Vincenzo-sub000/internal/background"
	"github.com/diwakar453t/Vincenzo-sub000/internal/config"
	"github.com/diwakar453t/Vincenzo-sub000/internal/database"
	"github.com/diwakar453t/Vincenzo-sub000/internal/handlers"
	"github.com/diwakar453t/Vincenzo-sub000/internal/lockout"
	"github.com/diwakar453t/Vincenzo-sub000/internal/metrics"
	middlewareCustom "github.com/diwakar453t/Vincenzo-sub000/internal/middleware"
	"github.com/diwakar453t/Vincenzo-sub000/internal/models"
	"github.com/diwakar453t/Vincenzo-sub000/internal/ratelimit"
	"github.com/diwakar453t/Vincenzo-sub000/internal/repositories"
	"github.com/diwakar453t/Vincenzo-sub000/internal/routes"
	"github.com/diwakar453t/Vincenzo-sub000/internal/services"
	pkgauth "github.com/diwakar453t/Vincenzo-sub000/pkg/auth"
	pkghttp "github.com/diwakar453t/Vincenzo-sub000/pkg/http"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Server.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()
	db.RegisterMetrics()

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	resetTokenRepo := repositories.NewPasswordResetRepository(db)
	auditLogRepo := repositories.NewAuditLogRepository(db)

	// Prometheus instruments
	m := metrics.New()

	// Admission control and lockout state, in-process
	limiter := ratelimit.New(ratelimit.Config{
		IPRequestsPerMinute: cfg.RateLimit.IPRequestsPerMinute,
		IPBurst:             cfg.RateLimit.IPBurst,
		TenantRatePerSecond: cfg.RateLimit.TenantRatePerSecond,
		TenantBurst:         cfg.RateLimit.TenantBurst,
		SweepEvery:          1000,
		IdleEviction:        5 * time.Minute,
	})
	tracker := lockout.New(lockout.Config{
		ShortThreshold:  cfg.Lockout.ShortThreshold,
		MediumThreshold: cfg.Lockout.MediumThreshold,
		LongThreshold:   cfg.Lockout.LongThreshold,
		ShortDuration:   cfg.Lockout.ShortDuration,
		MediumDuration:  cfg.Lockout.MediumDuration,
		LongDuration:    cfg.Lockout.LongDuration,
		InactivityReset: cfg.Lockout.InactivityReset,
	})

	// Initialize token manager
	tokenManager := auth.NewTokenManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
	)

	// Timing delay for auth security
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   cfg.Auth.TimingBaseDelayMs,
		RandomDelayMs: cfg.Auth.TimingJitterMs,
	})

	// Email delivery
	var emailSender services.EmailSender
	if cfg.Email.Enabled {
		sesSender, err := services.NewAWSSESEmailService(
			cfg.Email.AWSRegion,
			cfg.Email.FromAddress,
			cfg.Email.BaseURL,
			logger,
		)
		if err != nil {
			logger.Error("failed to initialize email service", slog.Any("error", err))
			os.Exit(1)
		}
		emailSender = sesSender
	} else {
		emailSender = services.NewLogEmailSender(logger)
	}

	// Initialize services
	auditService := services.NewAuditService(auditLogRepo, logger, m)
	authService := services.NewAuthService(
		userRepo,
		resetTokenRepo,
		emailSender,
		tracker,
		auditService,
		tokenManager,
		timingDelay,
		m,
		logger,
		cfg.Auth.ResetTokenTTL,
	)

	// Initialize handlers
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	authHandler := handlers.NewAuthHandler(authService, ipConfig)
	auditHandler := handlers.NewAuditHandler(auditService)

	// Cleanup of expired reset tokens
	cleanupManager := background.NewCleanupManager(resetTokenRepo, logger, cfg.Auth.ResetCleanupEvery)

	// Bootstrap first admin user if configured
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureAdminUser(ctx, userRepo, logger); err != nil {
		logger.Error("failed to ensure admin user", slog.Any("error", err))
	}
	cancel()

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(cfg.Server.CORSOrigins))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middlewareCustom.RateLimit(limiter, ipConfig, m))
		routes.RegisterRoutes(r, authHandler, auditHandler, tokenManager)
	})

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Prometheus scrape endpoint
	router.Handle("/metrics", promhttp.Handler())

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ensureAdminUser creates the first admin user if ADMIN_EMAIL and ADMIN_PASSWORD are set
func ensureAdminUser(ctx context.Context, userRepo *repositories.UserRepository, logger *slog.Logger) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminEmail == "" || adminPassword == "" {
		logger.Info("no ADMIN_EMAIL or ADMIN_PASSWORD set, skipping admin user creation")
		return nil
	}

	_, err := userRepo.GetByEmail(ctx, adminEmail)
	if err == nil {
		logger.Info("admin user already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check if admin exists: %w", err)
	}

	hashedPassword, err := pkgauth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &models.User{
		TenantID:     os.Getenv("ADMIN_TENANT_ID"),
		Email:        adminEmail,
		PasswordHash: hashedPassword,
		Name:         "Admin",
		Role:         "admin",
		Status:       models.UserStatusActive,
	}

	if _, err := userRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logger.Info("admin user created successfully")
	return nil
}
