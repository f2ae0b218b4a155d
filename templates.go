package dashborionauth

import (
	"embed"
	"fmt"
	"html/template"
	"io"
)

//go:embed templates/*.html
var embeddedTemplates embed.FS

// ErrorData holds data for rendering the error page template.
type ErrorData struct {
	Title   string
	Message string
}

// TemplateRenderer renders the HTML error page.
type TemplateRenderer struct {
	err *template.Template
}

// NewTemplateRenderer creates a renderer using the embedded template.
func NewTemplateRenderer() (*TemplateRenderer, error) {
	errTmpl, err := template.ParseFS(embeddedTemplates, "templates/error.html")
	if err != nil {
		return nil, fmt.Errorf("parse embedded error.html: %w", err)
	}

	return &TemplateRenderer{err: errTmpl}, nil
}

// RenderError renders an error page.
func (r *TemplateRenderer) RenderError(w io.Writer, data ErrorData) error {
	return r.err.Execute(w, data)
}
