package render

import (
	"embed"
	"html/template"
	"io"
)

//go:embed templates/*.html
var templateFS embed.FS

var tmpl = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// WriteHTML writes the proposal fragment. Truncated day content is wrapped in
// a <details> element so the reader can expand it.
func WriteHTML(w io.Writer, d Document) error {
	return tmpl.ExecuteTemplate(w, "proposal", struct {
		Root string
		Doc  Document
	}{SectionRoot, d})
}
