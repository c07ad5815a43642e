// Package main is the entry point for the renderpress server.
// It loads configuration, wires the cache and render pipeline, sets up
// routing, and starts the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"renderpress/internal/cache"
	"renderpress/internal/compress"
	"renderpress/internal/config"
	"renderpress/internal/engine"
	"renderpress/internal/handlers"
	"renderpress/internal/locate"
	"renderpress/internal/middleware"
	"renderpress/internal/router"
)

func main() {
	// Structured logger for the whole process.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"root", cfg.RootDir,
		"cache", cfg.CacheEnabled(),
		"first_pass", cfg.FirstPass,
		"second_pass", cfg.SecondPass,
	)

	// Resource locator over the configured content layout.
	loc := locate.New(cfg.RootDir, cfg.ViewsDir, cfg.PublicDir)

	// Compression capability and the L1 derived-representation cache.
	comp := compress.NewGzip()
	files := cache.NewFileCache(cfg.CacheEnabled(), nil, comp)

	// Two-pass render pipeline with the built-in engines.
	reg := engine.DefaultRegistry()
	pipeline := engine.NewPipeline(loc, files, reg, cfg.FirstPass, cfg.SecondPass, cfg.CacheEnabled(), map[string]any{
		"env": cfg.Env,
	})

	// Optional L2 full-page cache in Valkey. The server runs fine
	// without it; a connection failure only disables the layer.
	var pageCache *cache.PageCache
	if cfg.ValkeyConfigured() {
		client, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
		if err != nil {
			slog.Warn("valkey unavailable, L2 page cache disabled", "error", err)
		} else {
			defer client.Close()
			pageCache = cache.NewPageCache(client, cfg.PageTTL)
		}
	}

	h := handlers.New(pipeline, files, loc, comp, pageCache)

	// Rate limiting for public traffic.
	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateWindow)
	defer limiter.Stop()

	// Set up the Chi router with all middleware and routes. Handlers
	// marked Warm pre-populate their cache entries here, before the
	// listener accepts traffic.
	r := router.New(h, limiter)

	// Create the HTTP server with sensible timeouts.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	// Give active requests up to 30 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}
