package routes

import (
	"github.com/diwakar453t/Vincenzo-sub000/internal/auth"
	"github.com/diwakar453t/Vincenzo-sub000/internal/handlers"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all application routes under /api/v1. The
// rate-limit middleware is installed globally by the caller, ahead of
// everything registered here.
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	auditHandler *handlers.AuditHandler,
	tokenManager *auth.TokenManager,
) {
	// Public routes - no authentication required
	router.Post("/auth/login", authHandler.Login)
	router.Post("/auth/refresh", authHandler.Refresh)
	router.Post("/auth/forgot-password", authHandler.ForgotPassword)
	router.Post("/auth/reset-password", authHandler.ResetPassword)

	// Admin routes - authenticated with the admin role
	router.Group(func(r chi.Router) {
		r.Use(auth.AuthMiddleware(tokenManager))
		r.Use(auth.RequireRole("admin"))

		r.Get("/admin/audit/verify", auditHandler.VerifyChain)
		r.Get("/admin/audit/trail", auditHandler.GetTrail)
	})
}
