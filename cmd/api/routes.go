package main

import (
	"log"
	"net/http"

	"horizon/internal/shared/config"
	"horizon/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", handleHealth)

	// Public auth routes
	mux.HandleFunc("/api/auth/sign-up", deps.AuthHandler.HandleSignUp)
	mux.HandleFunc("/api/auth/sign-in", deps.AuthHandler.HandleSignIn)
	mux.HandleFunc("/api/auth/logout", deps.AuthHandler.HandleLogout)

	// Session probe (reads the cookie itself, no middleware)
	mux.HandleFunc("/api/users/me", deps.UserHandler.HandleMe)

	// Protected routes
	session := middleware.Session(deps.UserService)

	mux.Handle("/api/link/token", session(http.HandlerFunc(deps.LinkingHandler.HandleCreateLinkToken)))
	mux.Handle("/api/link/exchange", session(http.HandlerFunc(deps.LinkingHandler.HandleExchange)))
	mux.Handle("/api/banks", session(http.HandlerFunc(deps.LinkingHandler.HandleBanks)))
	mux.Handle("/api/dashboard", session(http.HandlerFunc(deps.DashboardHandler.HandleDashboard)))

	// Apply global middleware
	handler := middleware.Logging(middleware.CORS(cfg.Server.AllowedHosts)(mux))

	if cfg.Telemetry.Enabled {
		handler = middleware.Telemetry(middleware.Tracing(handler))
	}

	// Apply security middleware when TLS is enabled
	if cfg.TLS.Enabled {
		handler = middleware.HSTS(middleware.SecureCookies(handler))
		log.Println("TLS security middleware enabled (HSTS + SecureCookies)")
	}

	return handler
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
