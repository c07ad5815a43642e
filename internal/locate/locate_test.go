// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package locate

import (
	"path/filepath"
	"testing"
)

func TestResolve(t *testing.T) {
	loc := New("/srv/site", "views", "public")

	tests := []struct {
		name string
		in   string
		kind Kind
		want string
	}{
		{
			name: "bare view name joins under views offset",
			in:   "app.md",
			kind: Views,
			want: filepath.Join("/srv/site", "views", "app.md"),
		},
		{
			name: "bare asset name joins under public offset",
			in:   "css/site.css",
			kind: Public,
			want: filepath.Join("/srv/site", "public", "css", "site.css"),
		},
		{
			name: "rooted path passes through verbatim",
			in:   "/etc/motd",
			kind: Views,
			want: "/etc/motd",
		},
		{
			name: "dot-relative path passes through verbatim",
			in:   "./local/app.md",
			kind: Public,
			want: "./local/app.md",
		},
		{
			name: "parent-relative path passes through verbatim",
			in:   "../shared/app.md",
			kind: Views,
			want: "../shared/app.md",
		},
		{
			name: "empty name still joins to a directory path",
			in:   "",
			kind: Views,
			want: filepath.Join("/srv/site", "views"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := loc.Resolve(tt.in, tt.kind)
			if got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestWithDefaultExt(t *testing.T) {
	tests := []struct {
		name string
		in   string
		ext  string
		want string
	}{
		{
			name: "extensionless name gains default extension",
			in:   "app",
			ext:  "md",
			want: "app.md",
		},
		{
			name: "existing extension is kept",
			in:   "app.html",
			ext:  "md",
			want: "app.html",
		},
		{
			name: "nested extensionless name",
			in:   "docs/guide",
			ext:  "md",
			want: "docs/guide.md",
		},
		{
			name: "empty name unchanged",
			in:   "",
			ext:  "md",
			want: "",
		},
		{
			name: "empty extension unchanged",
			in:   "app",
			ext:  "",
			want: "app",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WithDefaultExt(tt.in, tt.ext)
			if got != tt.want {
				t.Errorf("WithDefaultExt(%q, %q) = %q, want %q", tt.in, tt.ext, got, tt.want)
			}
		})
	}
}
