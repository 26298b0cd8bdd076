// Package template renders command line arguments for the push boundary.
package template

import (
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"
)

// Data is the value arguments are rendered against.
type Data struct {
	Path string
	ID   string
	Name string
	File string
}

// Render executes templateStr against data. Strings without an action are
// returned unchanged.
func Render(templateStr string, data any) (string, error) {
	if !NeedsTemplating(templateStr) {
		return templateStr, nil
	}

	tmpl, err := template.
		New("argument").
		Option("missingkey=error").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
			"env": os.Getenv,
			"quote": func(value string) string {
				return fmt.Sprintf("%q", value)
			},
		}).Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	return buf.String(), nil
}

// RenderArgs renders every argument. An argument that renders to an empty
// string is kept so positional commands see the slot.
func RenderArgs(args []string, data any) ([]string, error) {
	rendered := make([]string, 0, len(args))

	for _, arg := range args {
		value, err := Render(arg, data)
		if err != nil {
			return nil, err
		}

		rendered = append(rendered, value)
	}

	return rendered, nil
}

// NeedsTemplating reports whether input contains a template action.
func NeedsTemplating(input string) bool {
	return strings.Contains(input, "{{")
}
