// Package render turns a composed document into HTML markup.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"regexp"

	"github.com/kozaktomas/school-reports/internal/database"
	"github.com/kozaktomas/school-reports/internal/document"
)

//go:embed templates/*.html
var templateFS embed.FS

// Mode selects the shape of the rendered markup.
type Mode int

const (
	// ModePreview renders a fragment for an on-screen scrollable panel.
	ModePreview Mode = iota
	// ModePrint renders a standalone A4 page for the PDF engines.
	ModePrint
)

func (m Mode) String() string {
	switch m {
	case ModePreview:
		return "preview"
	case ModePrint:
		return "print"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// safeColor returns c if it is a hex color, the default ink otherwise.
func safeColor(c string) template.CSS {
	if !hexColor.MatchString(c) {
		c = document.DefaultInkColor
	}
	return template.CSS(c)
}

// imageSrc allows http(s) and image data URLs through html/template's URL
// filter, which otherwise rejects data URLs.
func imageSrc(url string) template.URL {
	if !database.IsImageRef(url) {
		return ""
	}
	return template.URL(url)
}

// Renderer renders documents. It is safe for concurrent use.
type Renderer struct {
	tmpl *template.Template
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"color":    safeColor,
		"imageSrc": imageSrc,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// MustNew is like New but panics on a broken template.
func MustNew() *Renderer {
	r, err := New()
	if err != nil {
		panic(err)
	}
	return r
}

type view struct {
	Doc  *document.Document
	Mode Mode
}

// HTML renders doc. Identical documents produce identical output.
func (r *Renderer) HTML(doc *document.Document, mode Mode) (string, error) {
	var name string
	switch mode {
	case ModePreview:
		name = "preview"
	case ModePrint:
		name = "print"
	default:
		return "", fmt.Errorf("unknown render mode %s", mode)
	}

	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, view{Doc: doc, Mode: mode}); err != nil {
		return "", fmt.Errorf("render %s: %w", mode, err)
	}
	return buf.String(), nil
}
