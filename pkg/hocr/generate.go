package hocr

import (
	"bytes"
	"embed"
	"fmt"
	"html"
	"text/template"
)

//go:embed templates/hocr.tmpl
var templateFS embed.FS

// Generate renders a Doc as a complete hOCR HTML document.
// The output round-trips through Parse.
func Generate(doc *Doc) (string, error) {
	tmpl, err := template.New("hocr.tmpl").Funcs(template.FuncMap{
		"esc": html.EscapeString,
		"bbox": func(b BBox) string {
			return fmt.Sprintf("%.0f %.0f %.0f %.0f", b.X1, b.Y1, b.X2, b.Y2)
		},
		"ppageno": func(n int) int {
			// hOCR ppageno is 0-based
			if n > 0 {
				return n - 1
			}
			return 0
		},
	}).ParseFS(templateFS, "templates/hocr.tmpl")
	if err != nil {
		return "", fmt.Errorf("error parsing hOCR template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, doc); err != nil {
		return "", fmt.Errorf("error rendering hOCR template: %w", err)
	}
	return buf.String(), nil
}
