// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers adapts pipeline results into HTTP responses. Each
// adapter returns an http.HandlerFunc that invokes the cache or render
// pipeline, writes the result with appropriate content-type and
// content-encoding headers, and converts failures into 404/500 status
// codes. Handlers never panic; errors are logged, not thrown.
package handlers

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"renderpress/internal/cache"
	"renderpress/internal/compress"
	"renderpress/internal/engine"
	"renderpress/internal/locate"
	"renderpress/internal/middleware"
)

// Options controls handler construction.
type Options struct {
	// Cache persists the computed representations across requests.
	Cache bool
	// Zip negotiates the compressed representation for capable clients.
	Zip bool
	// Warm eagerly populates the cache when the handler is built, so
	// the first real request is already a hit. Warm failures are
	// logged and do not abort startup.
	Warm bool
}

// Handlers groups the adapter constructors and their shared
// dependencies.
type Handlers struct {
	pipeline *engine.Pipeline
	files    *cache.FileCache
	loc      *locate.Locator
	comp     compress.Compressor
	pages    *cache.PageCache // optional L2, nil when not configured
}

// New creates a handler group. pages may be nil to disable the L2
// full-page cache.
func New(pipeline *engine.Pipeline, files *cache.FileCache, loc *locate.Locator, comp compress.Compressor, pages *cache.PageCache) *Handlers {
	return &Handlers{
		pipeline: pipeline,
		files:    files,
		loc:      loc,
		comp:     comp,
		pages:    pages,
	}
}

// File returns a handler serving one static asset by logical name.
func (h *Handlers) File(name string, opts Options) http.HandlerFunc {
	path := h.loc.Resolve(name, locate.Public)

	if opts.Warm {
		h.warmFile(path, opts)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		h.serveFile(w, r, path, opts)
	}
}

// Static returns a handler serving assets under the public directory,
// taking the logical name from the route's wildcard segment. The Warm
// option has no effect here: there is no fixed name to warm.
func (h *Handlers) Static(opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "*")
		if name == "" || strings.Contains(name, "..") {
			http.NotFound(w, r)
			return
		}
		h.serveFile(w, r, h.loc.Resolve(name, locate.Public), opts)
	}
}

// Page returns a handler serving the first-pass output of a template
// as HTML. vars is fixed at construction; it feeds the first-pass
// engine together with the pipeline defaults.
func (h *Handlers) Page(name string, vars map[string]any, opts Options) http.HandlerFunc {
	if opts.Warm {
		if _, err := h.pipeline.RenderPage(context.Background(), name, vars, engine.Options{Cache: opts.Cache}); err != nil {
			slog.Warn("page warm-up failed", "name", name, "error", err)
		}
	}

	return func(w http.ResponseWriter, r *http.Request) {
		h.servePage(w, r, name, vars, opts)
	}
}

// DynamicPage returns a handler resolving the template name from the
// route's {page} parameter, so one route serves every page under the
// views directory. Nested names and traversal are rejected.
func (h *Handlers) DynamicPage(vars map[string]any, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "page")
		if name == "" || strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
			http.NotFound(w, r)
			return
		}
		h.servePage(w, r, name, vars, opts)
	}
}

// servePage renders first-pass output for a name, consulting the L2
// page cache when available.
func (h *Handlers) servePage(w http.ResponseWriter, r *http.Request, name string, vars map[string]any, opts Options) {
	ctx := r.Context()

	if h.pages != nil && opts.Cache {
		if cached, ok := h.pages.Get(ctx, r.URL.Path); ok {
			writeHTML(w, cached)
			return
		}
	}

	out, err := h.pipeline.RenderPage(ctx, name, vars, engine.Options{Cache: opts.Cache})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if h.pages != nil && opts.Cache {
		h.pages.Set(ctx, r.URL.Path, []byte(out))
	}
	writeHTML(w, []byte(out))
}

// View returns a handler that compiles a view through both passes and
// renders it with per-request locals: the query parameters merged over
// the route's URL parameters.
func (h *Handlers) View(name string, vars map[string]any, opts Options) http.HandlerFunc {
	if opts.Warm {
		if _, err := h.pipeline.CompileView(context.Background(), name, vars); err != nil {
			slog.Warn("view warm-up failed", "name", name, "error", err)
		}
	}

	return func(w http.ResponseWriter, r *http.Request) {
		h.serveView(w, r, name, vars)
	}
}

// DynamicView resolves the view name from the route's {page} parameter,
// so one route serves every view under the views directory with
// per-request locals. Nested names and traversal are rejected.
func (h *Handlers) DynamicView(vars map[string]any, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "page")
		if name == "" || strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
			http.NotFound(w, r)
			return
		}
		h.serveView(w, r, name, vars)
	}
}

// serveView compiles a view through both passes and invokes the
// compiled function with the request's locals.
func (h *Handlers) serveView(w http.ResponseWriter, r *http.Request, name string, vars map[string]any) {
	fn, err := h.pipeline.CompileView(r.Context(), name, vars)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	out, err := fn(requestLocals(r))
	if err != nil {
		h.fail(w, r, &engine.RenderError{Engine: "view", Name: name, Err: err})
		return
	}
	writeHTML(w, []byte(out))
}

// InvalidatePage evicts one L2 page-cache entry, keyed by the path
// query parameter. A no-op when no page cache is configured.
func (h *Handlers) InvalidatePage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Query().Get("path")
		if path == "" {
			http.Error(w, "missing path parameter", http.StatusBadRequest)
			return
		}
		if h.pages != nil {
			h.pages.Invalidate(r.Context(), path)
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// InvalidateAllPages flushes the whole L2 page cache. A no-op when no
// page cache is configured.
func (h *Handlers) InvalidateAllPages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.pages != nil {
			h.pages.InvalidateAll(r.Context())
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// warmFile pre-populates the file cache for a fixed asset path.
func (h *Handlers) warmFile(path string, opts Options) {
	ctx := context.Background()
	if _, err := h.files.Get(ctx, path, cache.Options{Cache: opts.Cache, Zip: opts.Zip}); err != nil {
		slog.Warn("file warm-up failed", "path", path, "error", err)
	}
}

// serveFile writes an asset with content-type and, when negotiated,
// gzip content-encoding.
func (h *Handlers) serveFile(w http.ResponseWriter, r *http.Request, path string, opts Options) {
	zip := opts.Zip && acceptsEncoding(r, h.comp.Encoding())

	data, err := h.files.Get(r.Context(), path, cache.Options{Cache: opts.Cache, Zip: zip})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentType(path))
	if zip {
		w.Header().Set("Content-Encoding", h.comp.Encoding())
		w.Header().Add("Vary", "Accept-Encoding")
	}
	w.Write(data)
}

// fail maps an error to a response status and reports it. Missing
// resources become 404, everything else 500.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, fs.ErrNotExist) {
		status = http.StatusNotFound
	}

	slog.Error("request failed",
		"error", err,
		"path", r.URL.Path,
		"status", status,
		"request_id", middleware.RequestIDFromCtx(r.Context()),
	)
	http.Error(w, http.StatusText(status), status)
}

// writeHTML writes a success body as HTML.
func writeHTML(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(body)
}

// requestLocals builds the per-request locals for a view render:
// chi URL parameters, overlaid with query parameters.
func requestLocals(r *http.Request) map[string]any {
	locals := make(map[string]any)

	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		for i, key := range rctx.URLParams.Keys {
			if key == "*" {
				continue
			}
			locals[key] = rctx.URLParams.Values[i]
		}
	}

	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			locals[key] = values[0]
		}
	}
	return locals
}

// acceptsEncoding reports whether the client declared support for the
// given content-coding. A qvalue of 0 is a refusal; an exact match
// outweighs a wildcard either way.
func acceptsEncoding(r *http.Request, encoding string) bool {
	wildcard := false
	for _, part := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		coding := strings.TrimSpace(part)
		refused := false
		if idx := strings.IndexByte(coding, ';'); idx != -1 {
			param := strings.TrimSpace(coding[idx+1:])
			coding = strings.TrimSpace(coding[:idx])
			if qv, ok := strings.CutPrefix(param, "q="); ok {
				if q, err := strconv.ParseFloat(qv, 64); err == nil && q == 0 {
					refused = true
				}
			}
		}
		switch coding {
		case encoding:
			return !refused
		case "*":
			wildcard = !refused
		}
	}
	return wildcard
}

// contentType guesses a content type from the file extension, falling
// back to octet-stream.
func contentType(path string) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
