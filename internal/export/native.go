package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/go-pdf/fpdf"
	"github.com/kozaktomas/school-reports/internal/document"
	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/webp" // register WebP decoder
	"golang.org/x/sync/errgroup"
)

// Layout of the native engine, in mm unless noted. Document pixel sizes are
// mapped onto the 190mm content width as a 760px layout.
const (
	pxToMM             = 0.25
	prepareConcurrency = 5

	rowPadding   = 3.0
	lineHeight   = 5.0
	gridGap      = 3.75
	sectionSpace = 7.5
	headerGap    = 5.0
	labelColumn  = 0.30
)

var (
	inkColor    = rgb{0x1a, 0x1f, 0x2c}
	shadeColor  = rgb{0xF1, 0xF0, 0xFB}
	borderColor = rgb{0x8E, 0x91, 0x96}
	ruleColor   = rgb{0xdd, 0xdd, 0xdd}
	mutedColor  = rgb{0x55, 0x55, 0x55}
)

type rgb struct{ r, g, b int }

// parseHexColor parses #rgb and #rrggbb.
func parseHexColor(s string) (rgb, bool) {
	hex, ok := strings.CutPrefix(s, "#")
	if !ok {
		return rgb{}, false
	}
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return rgb{}, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return rgb{}, false
	}
	return rgb{int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)}, true
}

// containRect fits an imgW x imgH image inside the box, centered, without cropping.
func containRect(boxX, boxY, boxW, boxH, imgW, imgH float64) (x, y, w, h float64) {
	if imgW <= 0 || imgH <= 0 {
		return boxX, boxY, 0, 0
	}
	scale := math.Min(boxW/imgW, boxH/imgH)
	w, h = imgW*scale, imgH*scale
	return boxX + (boxW-w)/2, boxY + (boxH-h)/2, w, h
}

// ImageFetcher loads raw image bytes.
type ImageFetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// NativeEngine draws the document directly with fpdf. Photos are downscaled
// to the export scale and re-encoded as JPEG at the export quality.
type NativeEngine struct {
	fetcher ImageFetcher
}

// NewNativeEngine creates the engine.
func NewNativeEngine(fetcher ImageFetcher) *NativeEngine {
	return &NativeEngine{fetcher: fetcher}
}

func (n *NativeEngine) Name() string { return EngineNative }

type preparedImage struct {
	data          []byte
	width, height int
}

// imageSlot is where an image will be drawn, used to size the downscale.
type imageSlot struct {
	url        string
	boxW, boxH float64
}

func documentSlots(doc *document.Document) []imageSlot {
	var slots []imageSlot
	logo := float64(document.LogoSizePx) * pxToMM
	if h := doc.Header; h != nil {
		for _, url := range []string{h.Logo, h.SecondaryLogo} {
			if url != "" {
				slots = append(slots, imageSlot{url: url, boxW: logo, boxH: logo})
			}
		}
	}
	if doc.Photos != nil {
		contentW := pageWidthMM - 2*MarginMM
		for _, grid := range doc.Photos.Grids() {
			colW := (contentW - gridGap*float64(grid.Columns-1)) / float64(grid.Columns)
			for _, img := range grid.Images {
				slots = append(slots, imageSlot{url: img.URL, boxW: colW, boxH: float64(grid.CellHeight) * pxToMM})
			}
		}
	}
	return slots
}

// prepareImages loads every image of the document before drawing starts.
// Failed images are left out and render as empty cells.
func (n *NativeEngine) prepareImages(ctx context.Context, doc *document.Document, settings Settings) (map[string]*preparedImage, error) {
	slots := documentSlots(doc)
	results := make([]*preparedImage, len(slots))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(prepareConcurrency)
	for i, slot := range slots {
		g.Go(func() error {
			img, err := n.prepare(gctx, slot, settings)
			if err != nil {
				log.Warn().Err(err).Str("engine", EngineNative).Msg("image left blank in export")
				return nil
			}
			results[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("prepare images: %w", err)
	}

	prepared := make(map[string]*preparedImage, len(slots))
	for i, slot := range slots {
		if results[i] != nil {
			prepared[slot.url] = results[i]
		}
	}
	return prepared, nil
}

func (n *NativeEngine) prepare(ctx context.Context, slot imageSlot, settings Settings) (*preparedImage, error) {
	data, err := n.fetcher.Fetch(ctx, slot.url)
	if err != nil {
		return nil, err
	}
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	// Layout pixels of the slot times the raster scale.
	maxW := int(math.Ceil(slot.boxW / pxToMM * settings.Scale))
	maxH := int(math.Ceil(slot.boxH / pxToMM * settings.Scale))
	img := imaging.Fit(src, maxW, maxH, imaging.Lanczos)

	// JPEG has no alpha channel.
	bounds := img.Bounds()
	flat := imaging.New(bounds.Dx(), bounds.Dy(), color.White)
	flat = imaging.Overlay(flat, img, image.Pt(0, 0), 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, flat, imaging.JPEG, imaging.JPEGQuality(settings.jpegQuality())); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return &preparedImage{data: buf.Bytes(), width: bounds.Dx(), height: bounds.Dy()}, nil
}

// Render draws doc onto A4 pages.
func (n *NativeEngine) Render(ctx context.Context, doc *document.Document, settings Settings) ([]byte, error) {
	settings = settings.Normalized()
	images, err := n.prepareImages(ctx, doc, settings)
	if err != nil {
		return nil, err
	}

	pdf := fpdf.New(Orientation, "mm", PageSize, "")
	pdf.SetMargins(MarginMM, MarginMM, MarginMM)
	pdf.SetAutoPageBreak(false, MarginMM)
	pdf.SetTitle(doc.Title, true)
	pdf.AddPage()

	w := &pdfWriter{
		pdf:        pdf,
		tr:         pdf.UnicodeTranslatorFromDescriptor(""),
		images:     images,
		registered: make(map[string]string),
		left:       MarginMM,
		contentW:   pageWidthMM - 2*MarginMM,
		bottom:     pageHeightMM - MarginMM,
	}
	w.y = MarginMM

	if doc.Header != nil {
		w.header(doc.Header)
	}
	w.title(doc.Title)
	w.fields(doc.Fields)
	if doc.Photos != nil {
		w.photos(doc.Photos)
	}
	w.signature(doc.Signature)
	if doc.FooterText != "" {
		w.footer(doc.FooterText)
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("draw pdf: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// pdfWriter tracks the vertical cursor while drawing.
type pdfWriter struct {
	pdf        *fpdf.Fpdf
	tr         func(string) string
	images     map[string]*preparedImage
	registered map[string]string
	left       float64
	contentW   float64
	bottom     float64
	y          float64
}

func (w *pdfWriter) ensureSpace(h float64) {
	if w.y+h > w.bottom && w.y > MarginMM {
		w.pdf.AddPage()
		w.y = MarginMM
	}
}

func (w *pdfWriter) textColor(c rgb) { w.pdf.SetTextColor(c.r, c.g, c.b) }

func (w *pdfWriter) rule() {
	w.pdf.SetDrawColor(ruleColor.r, ruleColor.g, ruleColor.b)
	w.pdf.SetLineWidth(0.5)
	w.pdf.Line(w.left, w.y, w.left+w.contentW, w.y)
}

// image draws a prepared image contain-fit into the box. Missing images
// leave the box empty.
func (w *pdfWriter) image(url string, x, y, boxW, boxH float64) {
	img, ok := w.images[url]
	if !ok {
		return
	}
	name, ok := w.registered[url]
	if !ok {
		name = fmt.Sprintf("img%d", len(w.registered))
		opts := fpdf.ImageOptions{ImageType: "JPG"}
		w.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img.data))
		w.registered[url] = name
	}
	ix, iy, iw, ih := containRect(x, y, boxW, boxH, float64(img.width), float64(img.height))
	w.pdf.ImageOptions(name, ix, iy, iw, ih, false, fpdf.ImageOptions{ImageType: "JPG"}, 0, "")
}

func (w *pdfWriter) header(h *document.Header) {
	logo := float64(h.LogoSize) * pxToMM
	nameX := w.left + logo + headerGap
	nameW := w.contentW - 2*(logo+headerGap)

	w.image(h.Logo, w.left, w.y, logo, logo)
	w.image(h.SecondaryLogo, w.left+w.contentW-logo, w.y, logo, logo)

	name := w.tr(h.SchoolName)
	w.pdf.SetFont("Arial", "B", 18)
	nameLines := w.pdf.SplitLines([]byte(name), nameW)
	textH := float64(len(nameLines)) * 8
	var sub [][]byte
	if h.HeaderText != "" {
		w.pdf.SetFont("Arial", "", 10.5)
		sub = w.pdf.SplitLines([]byte(w.tr(h.HeaderText)), nameW)
		textH += 2 + float64(len(sub))*lineHeight
	}

	blockH := math.Max(logo, textH)
	y := w.y + (blockH-textH)/2

	c, ok := parseHexColor(h.NameColor)
	if !ok {
		c = inkColor
	}
	w.textColor(c)
	w.pdf.SetFont("Arial", "B", 18)
	for _, line := range nameLines {
		w.pdf.SetXY(nameX, y)
		w.pdf.CellFormat(nameW, 8, string(line), "", 0, "C", false, 0, "")
		y += 8
	}
	if len(sub) > 0 {
		y += 2
		w.textColor(mutedColor)
		w.pdf.SetFont("Arial", "", 10.5)
		for _, line := range sub {
			w.pdf.SetXY(nameX, y)
			w.pdf.CellFormat(nameW, lineHeight, string(line), "", 0, "C", false, 0, "")
			y += lineHeight
		}
	}

	w.y += blockH + headerGap
	w.rule()
	w.y += sectionSpace
}

func (w *pdfWriter) title(title string) {
	w.pdf.SetFont("Arial", "B", 18)
	w.textColor(inkColor)
	lines := w.pdf.SplitLines([]byte(w.tr(title)), w.contentW)
	w.ensureSpace(float64(len(lines)) * 8)
	for _, line := range lines {
		w.pdf.SetXY(w.left, w.y)
		w.pdf.CellFormat(w.contentW, 8, string(line), "", 0, "C", false, 0, "")
		w.y += 8
	}
	w.y += sectionSpace
}

// fields draws the field table. Rows taller than the remaining page space
// continue on the next page.
func (w *pdfWriter) fields(rows []document.FieldRow) {
	labelW := w.contentW * labelColumn
	valueW := w.contentW - labelW
	w.pdf.SetDrawColor(borderColor.r, borderColor.g, borderColor.b)
	w.pdf.SetLineWidth(0.25)
	w.pdf.SetFillColor(shadeColor.r, shadeColor.g, shadeColor.b)
	w.textColor(inkColor)

	for _, row := range rows {
		w.pdf.SetFont("Arial", "B", 11)
		labelLines := w.pdf.SplitLines([]byte(w.tr(row.Label)), labelW-2*rowPadding)
		w.pdf.SetFont("Arial", "", 11)
		var valueLines [][]byte
		for part := range strings.SplitSeq(w.tr(row.Value), "\n") {
			valueLines = append(valueLines, w.pdf.SplitLines([]byte(part), valueW-2*rowPadding)...)
		}

		for first := true; first || len(valueLines) > 0; first = false {
			need := max(len(labelLines), len(valueLines), 1)
			avail := int((w.bottom - w.y - 2*rowPadding) / lineHeight)
			if avail < min(need, 2) {
				w.pdf.AddPage()
				w.pdf.SetDrawColor(borderColor.r, borderColor.g, borderColor.b)
				w.pdf.SetFillColor(shadeColor.r, shadeColor.g, shadeColor.b)
				w.y = MarginMM
				avail = int((w.bottom - w.y - 2*rowPadding) / lineHeight)
			}
			n := min(need, avail)
			chunk := valueLines[:min(n, len(valueLines))]
			valueLines = valueLines[len(chunk):]
			var labels [][]byte
			if first {
				labels = labelLines[:min(n, len(labelLines))]
			}

			h := float64(n)*lineHeight + 2*rowPadding
			style := "D"
			if row.Shaded {
				style = "FD"
			}
			w.pdf.Rect(w.left, w.y, labelW, h, style)
			w.pdf.Rect(w.left+labelW, w.y, valueW, h, style)

			w.pdf.SetFont("Arial", "B", 11)
			for i, line := range labels {
				w.pdf.SetXY(w.left+rowPadding, w.y+rowPadding+float64(i)*lineHeight)
				w.pdf.CellFormat(labelW-2*rowPadding, lineHeight, string(line), "", 0, "L", false, 0, "")
			}
			w.pdf.SetFont("Arial", "", 11)
			for i, line := range chunk {
				w.pdf.SetXY(w.left+labelW+rowPadding, w.y+rowPadding+float64(i)*lineHeight)
				w.pdf.CellFormat(valueW-2*rowPadding, lineHeight, string(line), "", 0, "L", false, 0, "")
			}
			w.y += h
		}
	}
	w.y += sectionSpace
}

func (w *pdfWriter) photos(section *document.PhotoSection) {
	// Keep the heading together with at least one landscape row.
	w.ensureSpace(8 + headerGap + float64(document.LandscapeCellHeight)*pxToMM)
	w.pdf.SetFont("Arial", "B", 13.5)
	w.textColor(inkColor)
	w.pdf.SetXY(w.left, w.y)
	w.pdf.CellFormat(w.contentW, 8, w.tr(section.Heading), "", 0, "L", false, 0, "")
	w.y += 8 + headerGap

	for _, grid := range section.Grids() {
		colW := (w.contentW - gridGap*float64(grid.Columns-1)) / float64(grid.Columns)
		cellH := float64(grid.CellHeight) * pxToMM
		for _, row := range grid.Rows() {
			w.ensureSpace(cellH)
			for i, img := range row {
				x := w.left + float64(i)*(colW+gridGap)
				w.image(img.URL, x, w.y, colW, cellH)
			}
			w.y += cellH + gridGap
		}
	}
	w.y += sectionSpace - gridGap
}

func (w *pdfWriter) signature(sig document.Signature) {
	w.y += 2 * headerGap
	w.ensureSpace(headerGap + 2*6)
	w.rule()
	w.y += headerGap

	w.textColor(inkColor)
	for _, line := range [][2]string{
		{sig.NameLabel + ":", sig.Name},
		{sig.DesignationLabel + ":", sig.Designation},
	} {
		label, value := w.tr(line[0]), " "+w.tr(line[1])
		w.pdf.SetFont("Arial", "B", 10.5)
		labelW := w.pdf.GetStringWidth(label)
		w.pdf.SetFont("Arial", "", 10.5)
		valueW := w.pdf.GetStringWidth(value)

		x := w.left + w.contentW - labelW - valueW
		w.pdf.SetFont("Arial", "B", 10.5)
		w.pdf.SetXY(x, w.y)
		w.pdf.CellFormat(labelW, 6, label, "", 0, "L", false, 0, "")
		w.pdf.SetFont("Arial", "", 10.5)
		w.pdf.CellFormat(valueW, 6, value, "", 0, "L", false, 0, "")
		w.y += 6
	}
}

func (w *pdfWriter) footer(text string) {
	w.pdf.SetFont("Arial", "", 9)
	lines := w.pdf.SplitLines([]byte(w.tr(text)), w.contentW)
	w.y += sectionSpace
	w.ensureSpace(float64(len(lines)) * lineHeight)
	w.textColor(borderColor)
	for _, line := range lines {
		w.pdf.SetXY(w.left, w.y)
		w.pdf.CellFormat(w.contentW, lineHeight, string(line), "", 0, "C", false, 0, "")
		w.y += lineHeight
	}
}
