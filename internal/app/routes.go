package app

import (
	"net/http"

	"github.com/gorilla/mux"

	"complaint-service/internal/handlers"
	"complaint-service/internal/middleware"
	"complaint-service/internal/ratelimit"
)

// SetupRoutes configures all HTTP routes for the application
func SetupRoutes(router *mux.Router, h *handlers.Handlers, rateLimiter *ratelimit.Limiter) {
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware)

	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	if rateLimiter != nil {
		// Only submissions are limited; reads and edits are not.
		api.Use(rateLimiter.HTTPMiddleware(ratelimit.MethodIPKey(http.MethodPost)))
	}
	h.RegisterRoutes(api)
}
