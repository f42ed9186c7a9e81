// Package templates renders the starting body of a new ticket.
//
// Each ticket type maps to an embedded text/template. Types without a
// dedicated template use the generic Description / Rationale / Solution
// Analysis / Implementation Specification / Acceptance Criteria layout.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
)

//go:embed files/*.md.tmpl
var files embed.FS

// Template names.
const (
	Generic       = "generic.md.tmpl"
	Bug           = "bug.md.tmpl"
	Research      = "research.md.tmpl"
	Architecture  = "architecture.md.tmpl"
	Documentation = "documentation.md.tmpl"
)

// byType maps ticket types to their template. Types not listed fall back
// to Generic.
var byType = map[string]string{
	"Bug Fix":       Bug,
	"Research":      Research,
	"Architecture":  Architecture,
	"Documentation": Documentation,
}

// Data is the input every template receives.
type Data struct {
	Key   string
	Title string
	Type  string
}

// Renderer executes the embedded templates.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses all embedded templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("tickets").ParseFS(files, "files/*.md.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parsing ticket templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// NameFor returns the template used for a ticket type.
func NameFor(ticketType string) string {
	if name, ok := byType[ticketType]; ok {
		return name
	}
	return Generic
}

// Render executes the named template.
func (r *Renderer) Render(name string, data Data) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("rendering template %s: %w", name, err)
	}
	return buf.String(), nil
}

// ForType renders the template for a ticket type.
func (r *Renderer) ForType(data Data) (string, error) {
	return r.Render(NameFor(data.Type), data)
}
