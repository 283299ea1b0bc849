package document

import (
	"strings"

	"github.com/kozaktomas/school-reports/internal/database"
	"github.com/kozaktomas/school-reports/internal/imageinfo"
	"github.com/kozaktomas/school-reports/internal/locale"
)

// portraitColumns returns the column count of the portrait grid.
func portraitColumns(count int) int {
	if count <= 4 {
		return 2
	}
	return 3
}

// Compose lays out report with its classified images. images must be in
// report.Images order; tmpl may be nil. Compose is pure.
func Compose(report *database.Report, images []imageinfo.ProcessedImage, tmpl *database.TemplateSettings, labels locale.Labels) *Document {
	doc := &Document{
		Language: locale.Normalize(report.Language),
		Title:    report.Title,
		Fields:   composeFields(report, tmpl, labels),
		Photos:   composePhotos(images, labels),
		Signature: Signature{
			NameLabel:        labels.SignatureName,
			Name:             report.TeacherName,
			DesignationLabel: labels.SignatureDesignation,
			Designation:      report.TeacherDesignation,
		},
	}
	if tmpl != nil {
		doc.Header = composeHeader(tmpl)
		doc.FooterText = strings.TrimSpace(tmpl.FooterText)
	}
	return doc
}

func composeHeader(tmpl *database.TemplateSettings) *Header {
	color := tmpl.PrimaryColor
	if color == "" {
		color = DefaultInkColor
	}
	return &Header{
		Logo:          tmpl.SchoolLogo,
		SchoolName:    tmpl.SchoolName,
		NameColor:     color,
		HeaderText:    strings.TrimSpace(tmpl.HeaderText),
		SecondaryLogo: tmpl.FirstAdditionalLogo(),
		LogoSize:      LogoSizePx,
	}
}

func composeFields(report *database.Report, tmpl *database.TemplateSettings, labels locale.Labels) []FieldRow {
	rows := []FieldRow{
		{Label: labels.Date, Value: report.Date},
		{Label: labels.Time, Value: report.Time},
		{Label: labels.Venue, Value: report.Venue},
		{Label: labels.Organizer, Value: report.Organizer},
		{Label: labels.Attendance, Value: report.Attendance},
		{Label: labels.Impact, Value: report.Impact},
		{Label: labels.Summary, Value: report.Summary},
	}

	if tmpl != nil {
		for _, field := range tmpl.CustomFields {
			value := strings.TrimSpace(report.CustomFieldValues[field.ID])
			if value == "" {
				value = field.DefaultValue
			}
			if value == "" {
				continue
			}
			rows = append(rows, FieldRow{Label: field.Name.For(report.Language), Value: value})
		}
	}

	for i := range rows {
		rows[i].Shaded = i%2 == 0
	}
	return rows
}

func composePhotos(images []imageinfo.ProcessedImage, labels locale.Labels) *PhotoSection {
	if len(images) == 0 {
		return nil
	}

	var portrait, landscape []imageinfo.ProcessedImage
	for _, img := range images {
		if img.IsPortrait {
			portrait = append(portrait, img)
		} else {
			landscape = append(landscape, img)
		}
	}

	section := &PhotoSection{Heading: labels.EventPhotos}
	if len(portrait) > 0 {
		section.Portrait = &Grid{
			Kind:       GridPortrait,
			Columns:    portraitColumns(len(portrait)),
			CellHeight: PortraitCellHeight,
			Fit:        FitContain,
			Images:     portrait,
		}
	}
	if len(landscape) > 0 {
		section.Landscape = &Grid{
			Kind:       GridLandscape,
			Columns:    2,
			CellHeight: LandscapeCellHeight,
			Fit:        FitContain,
			Images:     landscape,
		}
	}
	return section
}
