// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package engine

import (
	"context"
	"maps"
	"path/filepath"
	"strings"

	"golang.org/x/sync/singleflight"

	"renderpress/internal/cache"
	"renderpress/internal/locate"
)

// Options controls a single pipeline call.
type Options struct {
	// Cache persists the computed result under its resource identity.
	Cache bool
}

// Pipeline composes the first-pass and second-pass engines over the
// shared cache substrate. All settings are fixed at construction;
// the pipeline holds no mutable configuration.
type Pipeline struct {
	loc   *locate.Locator
	files *cache.FileCache
	reg   *Registry

	firstPass  string // first-pass engine name, doubles as default source extension
	secondPass string // second-pass engine name, recognized as the final-output extension

	enabled  bool           // global cache gate
	defaults map[string]any // pipeline-wide render params, lowest precedence

	pages *pageCache
	views *viewCache

	// Per-key miss collapsing: concurrent cacheable misses for the
	// same resource identity share one render or compile.
	pagesGroup singleflight.Group
	viewsGroup singleflight.Group
}

// NewPipeline creates a render pipeline. defaults may be nil; it seeds
// the parameter set handed to the first-pass engine on every render.
func NewPipeline(loc *locate.Locator, files *cache.FileCache, reg *Registry, firstPass, secondPass string, enabled bool, defaults map[string]any) *Pipeline {
	return &Pipeline{
		loc:        loc,
		files:      files,
		reg:        reg,
		firstPass:  firstPass,
		secondPass: secondPass,
		enabled:    enabled,
		defaults:   defaults,
		pages:      newPageCache(),
		views:      newViewCache(),
	}
}

// Enabled reports whether pipeline results are persisted.
func (p *Pipeline) Enabled() bool { return p.enabled }

// Identity returns the resource identity for a logical name: the name
// qualified with the first-pass default extension. Identities are
// pre-resolution strings, so reconfiguring directories never rekeys
// existing entries.
func (p *Pipeline) Identity(name string) string {
	return locate.WithDefaultExt(name, p.firstPass)
}

// RenderPage produces the first-pass output (HTML markup) for a
// logical name. An extensionless name is treated as first-pass source.
// With caching enabled and opts.Cache set, the rendered string is
// memoized under the resource identity and repeat calls skip disk and
// engine work entirely.
func (p *Pipeline) RenderPage(ctx context.Context, name string, vars map[string]any, opts Options) (string, error) {
	key := p.Identity(name)

	if p.enabled {
		if out, ok := p.pages.get(key); ok {
			return out, nil
		}
	}

	// Collapse concurrent cacheable misses: the result is shared
	// through the cache anyway, so one render serves all waiters.
	if p.enabled && opts.Cache {
		v, err, _ := p.pagesGroup.Do(key, func() (any, error) {
			return p.renderPage(ctx, key, vars, opts)
		})
		if err != nil {
			return "", err
		}
		return v.(string), nil
	}

	return p.renderPage(ctx, key, vars, opts)
}

// renderPage performs the uncached first-pass work: read, render,
// optionally store. Nothing is stored unless every step succeeded.
func (p *Pipeline) renderPage(ctx context.Context, key string, vars map[string]any, opts Options) (string, error) {
	eng, err := p.reg.First(p.firstPass)
	if err != nil {
		return "", err
	}

	path := p.loc.Resolve(key, locate.Views)

	// Source bytes are read through the file cache substrate but not
	// persisted under it: per pass, only the pass output is stored.
	src, err := p.files.Get(ctx, path, cache.Options{})
	if err != nil {
		return "", err
	}

	out, err := eng.Render(src, p.renderParams(vars, path))
	if err != nil {
		return "", &RenderError{Engine: p.firstPass, Name: key, Err: err}
	}

	if opts.Cache && p.enabled {
		p.pages.put(key, out)
	}
	return out, nil
}

// CompileView produces the compiled render function for a logical
// name. Names resolving to a final-output markup file (the second-pass
// extension, e.g. ".html") are read directly; anything else is first
// rendered through the first pass. Only the compiled function is
// cached — the intermediate markup produced during this call is not
// stored under its own key.
func (p *Pipeline) CompileView(ctx context.Context, name string, vars map[string]any) (RenderFunc, error) {
	key := p.Identity(name)

	if p.enabled {
		if fn := p.views.get(key); fn != nil {
			return fn, nil
		}

		v, err, _ := p.viewsGroup.Do(key, func() (any, error) {
			return p.compileView(ctx, key, name, vars)
		})
		if err != nil {
			return nil, err
		}
		return v.(RenderFunc), nil
	}

	return p.compileView(ctx, key, name, vars)
}

// compileView performs the uncached second-pass work.
func (p *Pipeline) compileView(ctx context.Context, key, name string, vars map[string]any) (RenderFunc, error) {
	eng, err := p.reg.Second(p.secondPass)
	if err != nil {
		return nil, err
	}

	var markup string
	if p.isFinalOutput(key) {
		raw, err := p.files.Get(ctx, p.loc.Resolve(key, locate.Views), cache.Options{})
		if err != nil {
			return nil, err
		}
		markup = string(raw)
	} else {
		markup, err = p.RenderPage(ctx, name, vars, Options{Cache: false})
		if err != nil {
			return nil, err
		}
	}

	fn, err := eng.Compile(markup)
	if err != nil {
		return nil, &RenderError{Engine: p.secondPass, Name: key, Err: err}
	}

	if p.enabled {
		p.views.put(key, fn)
	}
	return fn, nil
}

// isFinalOutput reports whether a resource identity denotes already-
// rendered markup that skips the first pass.
func (p *Pipeline) isFinalOutput(key string) bool {
	return strings.TrimPrefix(filepath.Ext(key), ".") == p.secondPass
}

// renderParams merges, in increasing precedence, the pipeline-wide
// defaults, the caller's vars, and the resolved filename.
func (p *Pipeline) renderParams(vars map[string]any, path string) map[string]any {
	params := make(map[string]any, len(p.defaults)+len(vars)+1)
	maps.Copy(params, p.defaults)
	maps.Copy(params, vars)
	params["filename"] = path
	return params
}
