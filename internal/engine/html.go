// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package engine

import (
	"bytes"
	"html/template"
)

// HTMLTemplate is the built-in second-pass engine. It compiles markup
// containing Go template actions ({{.name}}) into a RenderFunc whose
// locals map becomes the template data. The compiled template is parsed
// once; execution allocates only the output buffer.
type HTMLTemplate struct{}

// Compile parses markup as an html/template and returns a function
// rendering it with per-request locals.
func (HTMLTemplate) Compile(markup string) (RenderFunc, error) {
	tmpl, err := template.New("view").Parse(markup)
	if err != nil {
		return nil, err
	}

	return func(locals map[string]any) (string, error) {
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, locals); err != nil {
			return "", err
		}
		return buf.String(), nil
	}, nil
}
