// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package locate maps logical resource names to filesystem paths.
// A logical name is what a handler or warm-up call asks for ("app",
// "guide.md", "css/site.css"); the locator decides where on disk that
// name lives, based on the configured root directory and the per-kind
// offsets for views and public assets.
package locate

import (
	"path/filepath"
	"strings"
)

// Kind selects which base-directory offset a name resolves under.
type Kind int

const (
	// Views resolves names under the template source directory.
	Views Kind = iota
	// Public resolves names under the static asset directory.
	Public
)

// Locator performs pure path computation. It holds the directory layout
// fixed at startup; it never touches the filesystem.
type Locator struct {
	Root      string // absolute or working-directory-relative project root
	ViewsDir  string // offset under Root for template sources, e.g. "views"
	PublicDir string // offset under Root for static assets, e.g. "public"
}

// New creates a Locator for the given root and directory offsets.
func New(root, viewsDir, publicDir string) *Locator {
	return &Locator{Root: root, ViewsDir: viewsDir, PublicDir: publicDir}
}

// Resolve maps a logical name to a path. Names that are already
// path-qualified (rooted at the filesystem, or explicitly relative with
// "./" or "../") are returned verbatim; everything else is joined under
// the root and the offset for the given kind.
//
// Degenerate names (empty string, trailing separators) are passed
// through the join unchanged — a bad name surfaces later as a read
// error, not a locator error.
func (l *Locator) Resolve(name string, kind Kind) string {
	if isQualified(name) {
		return name
	}

	offset := l.ViewsDir
	if kind == Public {
		offset = l.PublicDir
	}
	return filepath.Join(l.Root, offset, name)
}

// WithDefaultExt appends "." + ext to names that carry no extension,
// so extensionless template names uniformly denote first-pass sources.
// Names that already have an extension are returned unchanged.
func WithDefaultExt(name, ext string) string {
	if name == "" || ext == "" {
		return name
	}
	if filepath.Ext(name) != "" {
		return name
	}
	return name + "." + ext
}

// isQualified reports whether a name already denotes a concrete path
// and should bypass root/offset joining.
func isQualified(name string) bool {
	return strings.HasPrefix(name, "/") ||
		strings.HasPrefix(name, "./") ||
		strings.HasPrefix(name, "../") ||
		strings.HasPrefix(name, string(filepath.Separator))
}
