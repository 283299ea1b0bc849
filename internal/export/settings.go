package export

import (
	"strings"
	"unicode"
)

// Page geometry shared by both engines.
const (
	PageSize     = "A4"
	Orientation  = "P"
	MarginMM     = 10.0
	pageWidthMM  = 210.0
	pageHeightMM = 297.0
)

// Settings are the export-time fidelity parameters.
type Settings struct {
	Scale   float64 // raster scale factor relative to the on-screen layout
	Quality float64 // JPEG quality of embedded photos, in (0, 1]
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{Scale: 2, Quality: 0.98}
}

// Normalized clamps out-of-range values back to usable ones.
func (s Settings) Normalized() Settings {
	d := DefaultSettings()
	if s.Scale <= 0 {
		s.Scale = d.Scale
	}
	s.Scale = min(s.Scale, 4)
	if s.Quality <= 0 || s.Quality > 1 {
		s.Quality = d.Quality
	}
	return s
}

// jpegQuality converts Quality to the 1-100 scale of the JPEG encoder.
func (s Settings) jpegQuality() int {
	return max(1, min(100, int(s.Quality*100+0.5)))
}

// Filename returns the download name for a report titled title:
// "<title>.pdf", or "report.pdf" when the title is blank.
// Path separators, quotes and control characters are removed.
func Filename(title string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == '"':
			return -1
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, title)
	name = strings.TrimSpace(name)
	if name == "" || strings.Trim(name, ".") == "" {
		name = "report"
	}
	return name + ".pdf"
}
