package guard

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var tmpl = template.Must(template.New("guard").ParseFS(templateFS, "templates/*.tmpl"))

// DefaultContactURL is where the denial view points users who need more access.
const DefaultContactURL = "/contact"

type renderData struct {
	Decision
	Content template.HTML
}

// Render writes the view for d. Loading renders a neutral placeholder and
// never content; Denied renders the denial view; only Allowed renders content.
func Render(w io.Writer, d Decision, content template.HTML) error {
	name := "guard-loading"
	if d.ContactURL == "" {
		d.ContactURL = DefaultContactURL
	}
	data := renderData{Decision: d}
	switch d.State {
	case Allowed:
		name = "guard-allowed"
		data.Content = content
	case Denied:
		name = "guard-denied"
	case Loading:
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// RenderHTML is Render into a string for embedding in a page layout.
func RenderHTML(d Decision, content template.HTML) (template.HTML, error) {
	var buf bytes.Buffer
	if err := Render(&buf, d, content); err != nil {
		return "", err
	}
	// #nosec G203 - produced by html/template above; content was escaped when it was rendered.
	return template.HTML(buf.String()), nil
}
