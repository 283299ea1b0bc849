package render

import (
	"strings"
	"testing"

	"github.com/kozaktomas/school-reports/internal/database"
	"github.com/kozaktomas/school-reports/internal/document"
	"github.com/kozaktomas/school-reports/internal/imageinfo"
	"github.com/kozaktomas/school-reports/internal/locale"
)

func minimalReport() *database.Report {
	return &database.Report{
		Title:              "Sports Day",
		Date:               "2024-03-01",
		Time:               "08:00",
		Venue:              "Field",
		Organizer:          "PE Unit",
		Attendance:         "300",
		Impact:             "Fitness",
		Summary:            "Races",
		TeacherName:        "Aminah",
		TeacherDesignation: "PE Teacher",
		Language:           "en",
	}
}

func render(t *testing.T, doc *document.Document, mode Mode) string {
	t.Helper()
	out, err := MustNew().HTML(doc, mode)
	if err != nil {
		t.Fatalf("HTML() error: %v", err)
	}
	return out
}

func TestHTML_Minimal(t *testing.T) {
	doc := document.Compose(minimalReport(), nil, nil, locale.Resolve("en"))
	out := render(t, doc, ModePreview)

	if strings.Contains(out, "School Logo") || strings.Contains(out, "border-bottom: 2px solid #ddd") {
		t.Error("expected no header block")
	}
	if n := strings.Count(out, "<tr"); n != 7 {
		t.Errorf("expected 7 table rows, got %d", n)
	}
	if n := strings.Count(out, `<tr style="background-color: #F1F0FB;">`); n != 4 {
		t.Errorf("expected 4 shaded rows, got %d", n)
	}
	if strings.Contains(out, "report-photos") {
		t.Error("expected no photo section")
	}
	for _, want := range []string{"Sports Day", "Teacher&#39;s Name:</strong> Aminah", "Designation:</strong> PE Teacher", "Program Impact"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q", want)
		}
	}
	if !strings.HasPrefix(out, `<div class="report-preview"`) {
		t.Error("expected preview fragment wrapper")
	}
	if strings.Contains(out, "<html") {
		t.Error("preview must be a fragment")
	}
}

func TestHTML_Print(t *testing.T) {
	doc := document.Compose(minimalReport(), nil, nil, locale.Resolve("my"))
	out := render(t, doc, ModePrint)

	for _, want := range []string{"<!DOCTYPE html>", "@page { size: A4 portrait; margin: 10mm; }", `<html lang="en">`, "<title>Sports Day</title>"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected print output to contain %q", want)
		}
	}
}

func TestHTML_HeaderAndGrids(t *testing.T) {
	tmpl := &database.TemplateSettings{
		SchoolName:      "SK Taman Jaya",
		SchoolLogo:      "https://cdn.example.com/logo.png",
		AdditionalLogos: []string{"https://cdn.example.com/a.png", "https://cdn.example.com/b.png"},
		PrimaryColor:    "#0055aa",
		FooterText:      "School office",
	}
	images := []imageinfo.ProcessedImage{
		{URL: "https://cdn.example.com/p.jpg", IsPortrait: true, AspectRatio: 0.75},
		{URL: "data:image/png;base64,iVBORw0KGgo=", AspectRatio: 1.5},
	}
	out := render(t, document.Compose(minimalReport(), images, tmpl, locale.Resolve("en")), ModePreview)

	for _, want := range []string{
		`src="https://cdn.example.com/logo.png"`,
		`src="https://cdn.example.com/a.png"`,
		"color: #0055aa",
		"SK Taman Jaya",
		"Event Photos",
		"photo-grid-portrait",
		"photo-grid-landscape",
		"height: 400px",
		"height: 300px",
		"repeat(2, 1fr)",
		"object-fit: contain",
		`src="data:image/png;base64,iVBORw0KGgo="`,
		"School office",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q", want)
		}
	}
	if strings.Contains(out, "b.png") {
		t.Error("expected only the first additional logo")
	}
	if strings.Index(out, "photo-grid-portrait") > strings.Index(out, "photo-grid-landscape") {
		t.Error("expected portrait grid before landscape grid")
	}
}

func TestHTML_PlaceholderLogos(t *testing.T) {
	tmpl := &database.TemplateSettings{SchoolName: "SK"}
	out := render(t, document.Compose(minimalReport(), nil, tmpl, locale.Resolve("en")), ModePreview)

	if n := strings.Count(out, `<div style="width: 80px;"></div>`); n != 2 {
		t.Errorf("expected 2 logo placeholders, got %d", n)
	}
	if !strings.Contains(out, "color: #1a1f2c; font-size: 24px") {
		t.Error("expected default ink color for the school name")
	}
}

func TestHTML_EscapesUserText(t *testing.T) {
	report := minimalReport()
	report.Title = `<script>alert("x")</script>`
	report.Summary = `<img src=x onerror=alert(1)>`
	tmpl := &database.TemplateSettings{SchoolName: "SK", PrimaryColor: "red;background:url(evil)"}
	images := []imageinfo.ProcessedImage{{URL: "javascript:alert(1)"}}

	out := render(t, document.Compose(report, images, tmpl, locale.Resolve("en")), ModePreview)

	if strings.Contains(out, "<script>") || strings.Contains(out, "<img src=x") {
		t.Error("user text was not escaped")
	}
	if strings.Contains(out, "evil") {
		t.Error("invalid color was inserted into CSS")
	}
	if strings.Contains(out, "javascript:") {
		t.Error("unsafe image URL was rendered")
	}
}

func TestHTML_Deterministic(t *testing.T) {
	images := []imageinfo.ProcessedImage{{URL: "https://cdn.example.com/1.jpg", IsPortrait: true}}
	tmpl := &database.TemplateSettings{SchoolName: "SK", AdditionalLogos: []string{"https://cdn.example.com/a.png"}}
	r := MustNew()

	for _, mode := range []Mode{ModePreview, ModePrint} {
		a, err := r.HTML(document.Compose(minimalReport(), images, tmpl, locale.Resolve("en")), mode)
		if err != nil {
			t.Fatal(err)
		}
		b, err := r.HTML(document.Compose(minimalReport(), images, tmpl, locale.Resolve("en")), mode)
		if err != nil {
			t.Fatal(err)
		}
		if a != b {
			t.Errorf("%s output differs between identical renders", mode)
		}
	}
}

func TestHTML_UnknownMode(t *testing.T) {
	doc := document.Compose(minimalReport(), nil, nil, locale.Resolve("en"))
	if _, err := MustNew().HTML(doc, Mode(7)); err == nil {
		t.Error("expected error for unknown mode")
	}
}
