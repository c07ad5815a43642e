// Package router sets up all HTTP routes and middleware chains for the
// renderpress server: static assets under /static, the index page at /,
// compiled views under /views, and every other top-level path served as
// a dynamic page.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"renderpress/internal/handlers"
	"renderpress/internal/middleware"
)

// New creates and returns the configured Chi router with all middleware
// and route groups wired up. limiter may be nil to disable rate limiting.
func New(h *handlers.Handlers, limiter *middleware.RateLimiter) chi.Router {
	r := chi.NewRouter()

	// Global middleware — applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	if limiter != nil {
		r.Use(limiter.Middleware)
	}

	// Health check.
	r.Get("/health", healthHandler)

	// Static assets — cached and compression-negotiated. The favicon
	// gets a fixed, pre-warmed route of its own.
	r.Get("/static/*", h.Static(handlers.Options{Cache: true, Zip: true}))
	r.Get("/favicon.ico", h.File("favicon.ico", handlers.Options{Cache: true, Warm: true}))

	// The index page is warmed at startup so the first request hits
	// the cache.
	r.Get("/", h.Page("index", nil, handlers.Options{Cache: true, Warm: true}))

	// Views run both render passes and take per-request locals from
	// URL and query parameters, so their output is not page-cached.
	r.Get("/views/{page}", h.DynamicView(nil, handlers.Options{}))

	// Operational eviction for the L2 page cache.
	r.Delete("/cache", h.InvalidateAllPages())
	r.Delete("/cache/page", h.InvalidatePage())

	// Every other top-level path renders the matching view template.
	r.Get("/{page}", h.DynamicPage(nil, handlers.Options{Cache: true}))

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
