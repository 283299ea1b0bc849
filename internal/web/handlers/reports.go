package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/school-reports/internal/database"
	"github.com/kozaktomas/school-reports/internal/document"
	"github.com/kozaktomas/school-reports/internal/export"
	"github.com/kozaktomas/school-reports/internal/render"
	"github.com/rs/zerolog/log"
)

// DocumentPreparer composes the printable document of a report.
type DocumentPreparer interface {
	Prepare(ctx context.Context, report *database.Report) (*document.Document, error)
}

// DocumentRenderer renders a composed document to HTML.
type DocumentRenderer interface {
	HTML(doc *document.Document, mode render.Mode) (string, error)
}

// ReportExporter renders documents to PDF and tracks per-report export state.
type ReportExporter interface {
	Export(ctx context.Context, reportID string, doc *document.Document, engine string) ([]byte, error)
	State(reportID string) export.State
	Engines() []string
}

// ReportsHandler handles report endpoints
type ReportsHandler struct {
	pipeline DocumentPreparer
	renderer DocumentRenderer
	exporter ReportExporter
}

// NewReportsHandler creates a new reports handler
func NewReportsHandler(pipeline DocumentPreparer, renderer DocumentRenderer, exporter ReportExporter) *ReportsHandler {
	return &ReportsHandler{pipeline: pipeline, renderer: renderer, exporter: exporter}
}

func getReportWriter(r *http.Request, w http.ResponseWriter) database.ReportWriter {
	writer, err := database.GetReportWriter(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "report storage not available")
		return nil
	}
	return writer
}

type reportRequest struct {
	Title              string            `json:"title"`
	Date               string            `json:"date"`
	Time               string            `json:"time"`
	Venue              string            `json:"venue"`
	Organizer          string            `json:"organizer"`
	Attendance         string            `json:"attendance"`
	Impact             string            `json:"impact"`
	Summary            string            `json:"summary"`
	TeacherName        string            `json:"teacher_name"`
	TeacherDesignation string            `json:"teacher_designation"`
	Images             []string          `json:"images"`
	Language           string            `json:"language"`
	CustomFieldValues  map[string]string `json:"custom_field_values"`
}

// apply overwrites every editable field of report.
func (req *reportRequest) apply(report *database.Report) {
	report.Title = req.Title
	report.Date = req.Date
	report.Time = req.Time
	report.Venue = req.Venue
	report.Organizer = req.Organizer
	report.Attendance = req.Attendance
	report.Impact = req.Impact
	report.Summary = req.Summary
	report.TeacherName = req.TeacherName
	report.TeacherDesignation = req.TeacherDesignation
	report.Images = req.Images
	report.Language = req.Language
	report.CustomFieldValues = req.CustomFieldValues
}

type reportResponse struct {
	ID                 string            `json:"id"`
	Title              string            `json:"title"`
	Date               string            `json:"date"`
	Time               string            `json:"time"`
	Venue              string            `json:"venue"`
	Organizer          string            `json:"organizer"`
	Attendance         string            `json:"attendance"`
	Impact             string            `json:"impact"`
	Summary            string            `json:"summary"`
	TeacherName        string            `json:"teacher_name"`
	TeacherDesignation string            `json:"teacher_designation"`
	Images             []string          `json:"images"`
	Language           string            `json:"language"`
	CustomFieldValues  map[string]string `json:"custom_field_values,omitempty"`
	CreatedAt          string            `json:"created_at"`
	UpdatedAt          string            `json:"updated_at"`
}

func newReportResponse(r *database.Report) reportResponse {
	images := r.Images
	if images == nil {
		images = []string{}
	}
	return reportResponse{
		ID:                 r.ID,
		Title:              r.Title,
		Date:               r.Date,
		Time:               r.Time,
		Venue:              r.Venue,
		Organizer:          r.Organizer,
		Attendance:         r.Attendance,
		Impact:             r.Impact,
		Summary:            r.Summary,
		TeacherName:        r.TeacherName,
		TeacherDesignation: r.TeacherDesignation,
		Images:             images,
		Language:           r.Language,
		CustomFieldValues:  r.CustomFieldValues,
		CreatedAt:          r.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:          r.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type reportPageResponse struct {
	Reports    []reportResponse `json:"reports"`
	TotalCount int              `json:"total_count"`
	NextPage   *int             `json:"next_page"`
}

// loadReport fetches the report named by the {id} URL parameter and writes
// 404 when it does not exist for the current owner.
func loadReport(w http.ResponseWriter, r *http.Request, rw database.ReportReader, owner string) *database.Report {
	id := chi.URLParam(r, "id")
	report, err := rw.GetReport(r.Context(), owner, id)
	if err != nil {
		log.Error().Err(err).Str("report_id", sanitizeForLog(id)).Msg("failed to get report")
		respondError(w, http.StatusInternalServerError, "failed to get report")
		return nil
	}
	if report == nil {
		respondError(w, http.StatusNotFound, "report not found")
		return nil
	}
	return report
}

// ListReports returns one page of the owner's reports, newest first.
func (h *ReportsHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	owner := requireOwner(w, r)
	if owner == "" {
		return
	}
	rw := getReportWriter(r, w)
	if rw == nil {
		return
	}

	page := 0
	if s := r.URL.Query().Get("page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid page")
			return
		}
		page = n
	}

	result, err := rw.ListReports(r.Context(), owner, page)
	if err != nil {
		log.Error().Err(err).Int("page", page).Msg("failed to list reports")
		respondError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}

	resp := reportPageResponse{
		Reports:    make([]reportResponse, len(result.Reports)),
		TotalCount: result.TotalCount,
		NextPage:   result.NextPage,
	}
	for i := range result.Reports {
		resp.Reports[i] = newReportResponse(&result.Reports[i])
	}
	respondJSON(w, http.StatusOK, resp)
}

// CreateReport validates and stores a new report.
func (h *ReportsHandler) CreateReport(w http.ResponseWriter, r *http.Request) {
	owner := requireOwner(w, r)
	if owner == "" {
		return
	}
	rw := getReportWriter(r, w)
	if rw == nil {
		return
	}

	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	report := &database.Report{OwnerID: owner}
	req.apply(report)
	if err := database.ValidateReport(report); err != nil {
		respondSaveError(w, err, "failed to create report")
		return
	}

	if err := rw.CreateReport(r.Context(), report); err != nil {
		log.Error().Err(err).Msg("failed to create report")
		respondSaveError(w, err, "failed to create report")
		return
	}
	log.Info().Str("report_id", report.ID).Msg("report created")
	respondJSON(w, http.StatusCreated, newReportResponse(report))
}

// GetReport returns a single report.
func (h *ReportsHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	owner := requireOwner(w, r)
	if owner == "" {
		return
	}
	rw := getReportWriter(r, w)
	if rw == nil {
		return
	}
	report := loadReport(w, r, rw, owner)
	if report == nil {
		return
	}
	respondJSON(w, http.StatusOK, newReportResponse(report))
}

// UpdateReport overwrites the fields of an existing report.
func (h *ReportsHandler) UpdateReport(w http.ResponseWriter, r *http.Request) {
	owner := requireOwner(w, r)
	if owner == "" {
		return
	}
	rw := getReportWriter(r, w)
	if rw == nil {
		return
	}
	report := loadReport(w, r, rw, owner)
	if report == nil {
		return
	}

	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	req.apply(report)
	if err := database.ValidateReport(report); err != nil {
		respondSaveError(w, err, "failed to update report")
		return
	}

	if err := rw.UpdateReport(r.Context(), report); err != nil {
		log.Error().Err(err).Str("report_id", report.ID).Msg("failed to update report")
		respondSaveError(w, err, "failed to update report")
		return
	}
	respondJSON(w, http.StatusOK, newReportResponse(report))
}

// DeleteReport permanently removes a report.
func (h *ReportsHandler) DeleteReport(w http.ResponseWriter, r *http.Request) {
	owner := requireOwner(w, r)
	if owner == "" {
		return
	}
	rw := getReportWriter(r, w)
	if rw == nil {
		return
	}
	id := chi.URLParam(r, "id")
	if err := rw.DeleteReport(r.Context(), owner, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "report not found")
			return
		}
		log.Error().Err(err).Str("report_id", sanitizeForLog(id)).Msg("failed to delete report")
		respondError(w, http.StatusInternalServerError, "failed to delete report")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// DuplicateReport stores a copy of a report under the current owner.
func (h *ReportsHandler) DuplicateReport(w http.ResponseWriter, r *http.Request) {
	owner := requireOwner(w, r)
	if owner == "" {
		return
	}
	rw := getReportWriter(r, w)
	if rw == nil {
		return
	}
	src := loadReport(w, r, rw, owner)
	if src == nil {
		return
	}

	dup := database.DuplicateReport(src, owner, time.Now())
	if err := rw.CreateReport(r.Context(), dup); err != nil {
		log.Error().Err(err).Str("report_id", src.ID).Msg("failed to duplicate report")
		respondError(w, http.StatusInternalServerError, "failed to duplicate report")
		return
	}
	log.Info().Str("report_id", src.ID).Str("copy_id", dup.ID).Msg("report duplicated")
	respondJSON(w, http.StatusCreated, newReportResponse(dup))
}

// PreviewReport renders the report as an HTML fragment. ?mode=print returns
// the full printable page instead.
func (h *ReportsHandler) PreviewReport(w http.ResponseWriter, r *http.Request) {
	owner := requireOwner(w, r)
	if owner == "" {
		return
	}
	rw := getReportWriter(r, w)
	if rw == nil {
		return
	}
	report := loadReport(w, r, rw, owner)
	if report == nil {
		return
	}

	mode := render.ModePreview
	if r.URL.Query().Get("mode") == render.ModePrint.String() {
		mode = render.ModePrint
	}

	doc, err := h.pipeline.Prepare(r.Context(), report)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to prepare report")
		return
	}
	html, err := h.renderer.HTML(doc, mode)
	if err != nil {
		log.Error().Err(err).Str("report_id", report.ID).Msg("failed to render report")
		respondError(w, http.StatusInternalServerError, "failed to render report")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(html))
}

// ExportReport renders the report to PDF and sends it as a download.
func (h *ReportsHandler) ExportReport(w http.ResponseWriter, r *http.Request) {
	owner := requireOwner(w, r)
	if owner == "" {
		return
	}
	engine := r.URL.Query().Get("engine")
	if engine != "" && !slices.Contains(h.exporter.Engines(), engine) {
		respondError(w, http.StatusBadRequest, "unknown export engine")
		return
	}
	rw := getReportWriter(r, w)
	if rw == nil {
		return
	}
	report := loadReport(w, r, rw, owner)
	if report == nil {
		return
	}
	if h.exporter.State(report.ID) == export.StateExporting {
		respondError(w, http.StatusConflict, export.ErrExportInProgress.Error())
		return
	}

	doc, err := h.pipeline.Prepare(r.Context(), report)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to prepare report")
		return
	}

	data, err := h.exporter.Export(r.Context(), report.ID, doc, engine)
	switch {
	case errors.Is(err, export.ErrExportInProgress):
		respondError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, export.ErrUnknownEngine):
		respondError(w, http.StatusBadRequest, "unknown export engine")
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, "failed to export report")
		return
	}

	disposition := mime.FormatMediaType("attachment", map[string]string{
		"filename": export.Filename(report.Title),
	})
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", disposition)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

type exportStatusResponse struct {
	ReportID string       `json:"report_id"`
	State    export.State `json:"state"`
}

// ExportStatus reports whether an export of the report is running or failed.
func (h *ReportsHandler) ExportStatus(w http.ResponseWriter, r *http.Request) {
	owner := requireOwner(w, r)
	if owner == "" {
		return
	}
	rw := getReportWriter(r, w)
	if rw == nil {
		return
	}
	report := loadReport(w, r, rw, owner)
	if report == nil {
		return
	}
	respondJSON(w, http.StatusOK, exportStatusResponse{
		ReportID: report.ID,
		State:    h.exporter.State(report.ID),
	})
}
