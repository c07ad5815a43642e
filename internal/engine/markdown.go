// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package engine

import (
	"renderpress/internal/markdown"
)

// Markdown is the built-in first-pass engine: it converts Markdown
// template source into HTML markup via goldmark. Render params are
// accepted for interface compatibility; Markdown conversion itself is
// parameter-free.
type Markdown struct{}

// Render converts src from Markdown to HTML.
func (Markdown) Render(src []byte, params map[string]any) (string, error) {
	return markdown.ToHTML(string(src))
}
