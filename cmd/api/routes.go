package main

import (
	"net/http"

	"github.com/sirupsen/logrus"

	httphandlers "truebalance/internal/interfaces/http"
	"truebalance/internal/shared/config"
	"truebalance/internal/shared/middleware"
)

const healthPath = "/api/health"

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies, cfg *config.Config, logger logrus.FieldLogger) http.Handler {
	mux := http.NewServeMux()

	limit := func(p middleware.RatePolicy, h http.HandlerFunc) http.Handler {
		if !cfg.RateLimit.Enabled {
			return h
		}
		return deps.RateLimiter.Limit(p)(h)
	}

	// Health check
	mux.HandleFunc(healthPath, httphandlers.HandleHealth)

	// Public auth routes
	mux.Handle("/api/auth/register", limit(middleware.RegisterPolicy, deps.AuthHandler.HandleRegister))
	mux.Handle("/api/auth/login", limit(middleware.LoginPolicy, deps.AuthHandler.HandleLogin))

	// Protected routes
	authMiddleware := middleware.Auth(deps.JWT, deps.Sessions, logger)
	protected := func(h http.HandlerFunc) http.Handler {
		return authMiddleware(h)
	}

	mux.Handle("/api/auth/logout", protected(deps.AuthHandler.HandleLogout))
	mux.Handle("/api/user/profile", protected(deps.UserHandler.HandleProfile))
	mux.Handle("/api/provider/config", protected(deps.ProviderConfigHandler.HandleProviderConfig))
	mux.Handle("/api/connect", protected(deps.SyncHandler.HandleConnect))
	mux.Handle("/api/sync", protected(deps.SyncHandler.HandleSync))
	mux.Handle("/api/accounts", protected(deps.AccountHandler.HandleListAccounts))
	mux.Handle("/api/accounts/{id}/balance", protected(deps.AccountHandler.HandleBalance))
	mux.Handle("/api/transactions", protected(deps.TransactionHandler.HandleListTransactions))

	// Tracing sits directly on the mux so it can read the matched pattern.
	handler := middleware.Tracing(mux)
	if cfg.RateLimit.Enabled {
		handler = deps.RateLimiter.Limit(middleware.APIPolicy, healthPath)(handler)
	}
	handler = middleware.CORS(cfg.Server.AllowedHosts)(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.SecurityHeaders(handler)

	if cfg.Telemetry.Enabled {
		handler = middleware.Telemetry(handler)
	}

	// Apply security middleware when TLS is enabled
	if cfg.TLS.Enabled {
		handler = middleware.HSTS(middleware.SecureCookies(handler))
		logger.Info("TLS security middleware enabled (HSTS + SecureCookies)")
	}

	return handler
}
