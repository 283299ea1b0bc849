// Package document builds the layout tree shared by the preview and export paths.
package document

import "github.com/kozaktomas/school-reports/internal/imageinfo"

// Layout constants of the report document.
const (
	DefaultInkColor     = "#1a1f2c"
	LogoSizePx          = 80
	PortraitCellHeight  = 400
	LandscapeCellHeight = 300
	FitContain          = "contain"
)

// Grid kinds.
const (
	GridPortrait  = "portrait"
	GridLandscape = "landscape"
)

// Document is the composed report, ready to be rendered.
type Document struct {
	Language   string
	Header     *Header // nil when no template is active
	Title      string
	Fields     []FieldRow
	Photos     *PhotoSection // nil when the report has no images
	Signature  Signature
	FooterText string
}

// Header is the branding block at the top of the document.
// Empty logo URLs render as blank placeholders of LogoSizePx.
type Header struct {
	Logo          string
	SchoolName    string
	NameColor     string
	HeaderText    string
	SecondaryLogo string
	LogoSize      int
}

// FieldRow is one label/value row of the field table.
type FieldRow struct {
	Label  string
	Value  string
	Shaded bool
}

// PhotoSection holds the portrait and landscape grids. Either may be nil
// but not both.
type PhotoSection struct {
	Heading   string
	Portrait  *Grid
	Landscape *Grid
}

// Grids returns the non-nil grids, portrait first.
func (s *PhotoSection) Grids() []*Grid {
	var grids []*Grid
	if s.Portrait != nil {
		grids = append(grids, s.Portrait)
	}
	if s.Landscape != nil {
		grids = append(grids, s.Landscape)
	}
	return grids
}

// Grid is a uniform grid of images of one orientation.
type Grid struct {
	Kind       string
	Columns    int
	CellHeight int // px
	Fit        string
	Images     []imageinfo.ProcessedImage
}

// Rows splits the grid images into rows of Columns entries.
func (g *Grid) Rows() [][]imageinfo.ProcessedImage {
	var rows [][]imageinfo.ProcessedImage
	for i := 0; i < len(g.Images); i += g.Columns {
		rows = append(rows, g.Images[i:min(i+g.Columns, len(g.Images))])
	}
	return rows
}

// Signature is the right-aligned teacher block closing the document.
type Signature struct {
	NameLabel        string
	Name             string
	DesignationLabel string
	Designation      string
}
