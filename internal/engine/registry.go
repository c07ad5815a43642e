// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package engine provides the two-pass render pipeline for server-side
// content. A first-pass engine transforms template source into
// intermediate markup (Markdown → HTML); a second-pass engine compiles
// that markup into a reusable render function invoked with per-request
// locals. Every derived representation is memoized for the lifetime of
// the process when caching is enabled.
package engine

import (
	"fmt"
	"sync"
)

// RenderFunc is a compiled second-pass view: it renders final output
// from per-request local variables. Safe for concurrent use.
type RenderFunc func(locals map[string]any) (string, error)

// FirstPass transforms template source into intermediate markup.
// params carries pipeline defaults, caller variables, and the resolved
// filename (for engine diagnostics and include resolution).
type FirstPass interface {
	Render(src []byte, params map[string]any) (string, error)
}

// SecondPass compiles intermediate markup into an invocable render
// function. Compilation happens once per resource; the returned
// function runs once per request.
type SecondPass interface {
	Compile(markup string) (RenderFunc, error)
}

// RenderError wraps a failed first- or second-pass invocation with the
// engine and resource that failed.
type RenderError struct {
	Engine string // engine name, e.g. "md" or "html"
	Name   string // resource identity being rendered
	Err    error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s with %s: %v", e.Name, e.Engine, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Registry resolves engine names to implementations. Engine names
// double as the default file extension for their source files, so the
// configured first-pass name decides how extensionless resource names
// are qualified.
type Registry struct {
	mu     sync.RWMutex
	first  map[string]FirstPass
	second map[string]SecondPass
}

// NewRegistry creates an empty engine registry.
func NewRegistry() *Registry {
	return &Registry{
		first:  make(map[string]FirstPass),
		second: make(map[string]SecondPass),
	}
}

// DefaultRegistry returns a registry with the built-in engines:
// "md" (goldmark Markdown) for the first pass and "html"
// (html/template) for the second pass.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.RegisterFirst("md", Markdown{})
	r.RegisterSecond("html", HTMLTemplate{})
	return r
}

// RegisterFirst registers a first-pass engine under a stable name.
func (r *Registry) RegisterFirst(name string, e FirstPass) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.first[name] = e
}

// RegisterSecond registers a second-pass engine under a stable name.
func (r *Registry) RegisterSecond(name string, e SecondPass) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.second[name] = e
}

// First returns the first-pass engine registered under name.
func (r *Registry) First(name string) (FirstPass, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.first[name]
	if !ok {
		return nil, fmt.Errorf("no first-pass engine registered as %q", name)
	}
	return e, nil
}

// Second returns the second-pass engine registered under name.
func (r *Registry) Second(name string) (SecondPass, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.second[name]
	if !ok {
		return nil, fmt.Errorf("no second-pass engine registered as %q", name)
	}
	return e, nil
}
