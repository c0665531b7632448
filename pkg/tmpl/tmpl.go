// Package tmpl renders text templates used for assistant prompts.
package tmpl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/template"
)

func toJSON(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func percent(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64) + "%"
}

func stringOrDefault(def, s string) string {
	if strings.TrimSpace(s) != "" {
		return s
	}
	return def
}

var funcs = template.FuncMap{
	"quote":   strconv.Quote,
	"join":    strings.Join,
	"json":    toJSON,
	"pct":     percent,
	"default": stringOrDefault,
}

// Render executes a Go template string with the given data.
// Returns an error if the template is invalid or references undefined keys.
//
// Available template functions:
//   - quote: Double-quote a string, escaping as Go does
//   - join: Join string slice with separator (e.g., join .Tags ", ")
//   - json: Indented JSON encoding of any value
//   - pct: Format a 0-100 float as "42.0%"
//   - default: Fall back to the first argument when the second is blank
func Render(tmpl string, data any) (string, error) {
	t, err := template.New("").Funcs(funcs).Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}

	return buf.String(), nil
}
