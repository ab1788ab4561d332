package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/complyon/ai-gateway/app"
	"github.com/complyon/ai-gateway/handlers"
	"github.com/complyon/ai-gateway/middleware"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(2 * time.Minute))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type",
			middleware.HeaderOrgID, middleware.HeaderAppKey, middleware.HeaderUserID},
		MaxAge: 300,
	}))

	tenantMiddleware := middleware.NewTenantMiddleware(deps.Logger)

	chatHandler := handlers.NewChatHandler(deps.GatewayService, deps.Logger)
	policyHandler := handlers.NewPolicyHandler(deps.PolicyStore, deps.Config.Policy.File, deps.Logger)
	healthHandler := handlers.NewHealthHandler(deps.PolicyStore, deps.Logger)

	// Health check endpoint
	r.Get("/healthz", healthHandler.HandleHealth)

	// Prometheus metrics
	if deps.Config.Observability.MetricsEnabled {
		r.Handle("/metrics", deps.Metrics.Handler())
	}

	// Gateway API
	r.Route("/v1", func(r chi.Router) {
		r.Use(tenantMiddleware.Handler)
		r.Post("/chat/completions", chatHandler.HandleChatCompletion)
		r.Get("/policy", policyHandler.HandleGetPolicy)
		r.Post("/policy/reload", policyHandler.HandleReloadPolicy)
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"endpoint not found"}`))
	})

	return r
}
