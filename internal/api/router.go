/**
 * @description
 * This file sets up the HTTP router for the renewal-service using the go-chi/chi router.
 * It defines the API routes, applies middleware for logging, CORS, authentication and
 * rate limiting, and maps the routes to their corresponding handler functions.
 */
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/shoply/renewal-service/internal/config"
)

// NewRouter creates a new Chi router and registers the renewal-service routes.
func NewRouter(h *SubscriptionHandlers, limiter RateLimiter, cfg config.Config) *chi.Mux {
	r := chi.NewRouter()

	// Setup middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any major browsers
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Renewal service is healthy"))
	})

	// Protected routes that require authentication
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.JWTSecret))

		r.Get("/subscriptions/{subscriptionID}", h.GetSubscriptionHandler)

		r.Group(func(r chi.Router) {
			r.Use(RateLimitMiddleware(limiter, "subscription_lifecycle", cfg.LifecycleRateLimitPerMinute))

			r.Post("/subscriptions/{subscriptionID}/pause", h.PauseSubscriptionHandler)
			r.Post("/subscriptions/{subscriptionID}/resume", h.ResumeSubscriptionHandler)
			r.Post("/subscriptions/{subscriptionID}/cancel", h.CancelSubscriptionHandler)
		})
	})

	// Internal server-to-server routes
	r.Group(func(r chi.Router) {
		r.Use(InternalAuthMiddleware(cfg.InternalAPIKey))

		r.Post("/internal/renewals/run", h.RunRenewalsHandler)
	})

	return r
}
