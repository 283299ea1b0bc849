package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/school-reports/internal/database"
	"github.com/rs/zerolog/log"
)

// TemplatesHandler handles template settings endpoints
type TemplatesHandler struct{}

// NewTemplatesHandler creates a new templates handler
func NewTemplatesHandler() *TemplatesHandler {
	return &TemplatesHandler{}
}

func getTemplateWriter(r *http.Request, w http.ResponseWriter) database.TemplateWriter {
	writer, err := database.GetTemplateWriter(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "template storage not available")
		return nil
	}
	return writer
}

type templateRequest struct {
	Name            string                 `json:"name"`
	SchoolName      string                 `json:"school_name"`
	SchoolLogo      string                 `json:"school_logo"`
	AdditionalLogos []string               `json:"additional_logos"`
	PrimaryColor    string                 `json:"primary_color"`
	SecondaryColor  string                 `json:"secondary_color"`
	HeaderText      string                 `json:"header_text"`
	FooterText      string                 `json:"footer_text"`
	Language        string                 `json:"language"`
	CustomFields    []database.CustomField `json:"custom_fields"`
	// Activate defaults to true on create: saving settings makes them the
	// ones applied to the owner's reports.
	Activate *bool `json:"activate,omitempty"`
}

func (req *templateRequest) apply(t *database.TemplateSettings) {
	t.Name = req.Name
	t.SchoolName = req.SchoolName
	t.SchoolLogo = req.SchoolLogo
	t.AdditionalLogos = req.AdditionalLogos
	t.PrimaryColor = req.PrimaryColor
	t.SecondaryColor = req.SecondaryColor
	t.HeaderText = req.HeaderText
	t.FooterText = req.FooterText
	t.Language = req.Language
	t.CustomFields = req.CustomFields
}

type templateResponse struct {
	ID              string                 `json:"id"`
	Name            string                 `json:"name"`
	SchoolName      string                 `json:"school_name"`
	SchoolLogo      string                 `json:"school_logo"`
	AdditionalLogos []string               `json:"additional_logos"`
	PrimaryColor    string                 `json:"primary_color"`
	SecondaryColor  string                 `json:"secondary_color"`
	HeaderText      string                 `json:"header_text"`
	FooterText      string                 `json:"footer_text"`
	Language        string                 `json:"language"`
	CustomFields    []database.CustomField `json:"custom_fields"`
	IsActive        bool                   `json:"is_active"`
	CreatedAt       string                 `json:"created_at"`
	UpdatedAt       string                 `json:"updated_at"`
}

func newTemplateResponse(t *database.TemplateSettings) templateResponse {
	logos := t.AdditionalLogos
	if logos == nil {
		logos = []string{}
	}
	fields := t.CustomFields
	if fields == nil {
		fields = []database.CustomField{}
	}
	return templateResponse{
		ID:              t.ID,
		Name:            t.Name,
		SchoolName:      t.SchoolName,
		SchoolLogo:      t.SchoolLogo,
		AdditionalLogos: logos,
		PrimaryColor:    t.PrimaryColor,
		SecondaryColor:  t.SecondaryColor,
		HeaderText:      t.HeaderText,
		FooterText:      t.FooterText,
		Language:        t.Language,
		CustomFields:    fields,
		IsActive:        t.IsActive,
		CreatedAt:       t.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       t.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// ListTemplates returns all of the owner's templates.
func (h *TemplatesHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	owner := requireOwner(w, r)
	if owner == "" {
		return
	}
	tw := getTemplateWriter(r, w)
	if tw == nil {
		return
	}
	templates, err := tw.ListTemplates(r.Context(), owner)
	if err != nil {
		log.Error().Err(err).Msg("failed to list templates")
		respondError(w, http.StatusInternalServerError, "failed to list templates")
		return
	}
	result := make([]templateResponse, len(templates))
	for i := range templates {
		result[i] = newTemplateResponse(&templates[i])
	}
	respondJSON(w, http.StatusOK, result)
}

// GetActiveTemplate returns the owner's active template, or null.
func (h *TemplatesHandler) GetActiveTemplate(w http.ResponseWriter, r *http.Request) {
	owner := requireOwner(w, r)
	if owner == "" {
		return
	}
	tw := getTemplateWriter(r, w)
	if tw == nil {
		return
	}
	tmpl, err := tw.GetActiveTemplate(r.Context(), owner)
	if err != nil {
		log.Error().Err(err).Msg("failed to get active template")
		respondError(w, http.StatusInternalServerError, "failed to get active template")
		return
	}
	if tmpl == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("null\n"))
		return
	}
	respondJSON(w, http.StatusOK, newTemplateResponse(tmpl))
}

// CreateTemplate stores new template settings and, unless told otherwise,
// makes them the active template.
func (h *TemplatesHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	owner := requireOwner(w, r)
	if owner == "" {
		return
	}
	tw := getTemplateWriter(r, w)
	if tw == nil {
		return
	}

	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	tmpl := &database.TemplateSettings{OwnerID: owner}
	req.apply(tmpl)
	if err := database.ValidateTemplate(tmpl); err != nil {
		respondSaveError(w, err, "failed to create template")
		return
	}
	if err := tw.CreateTemplate(r.Context(), tmpl); err != nil {
		log.Error().Err(err).Msg("failed to create template")
		respondError(w, http.StatusInternalServerError, "failed to create template")
		return
	}

	if req.Activate == nil || *req.Activate {
		if err := tw.SetActiveTemplate(r.Context(), owner, tmpl.ID); err != nil {
			log.Error().Err(err).Str("template_id", tmpl.ID).Msg("failed to activate template")
			respondError(w, http.StatusInternalServerError, "failed to activate template")
			return
		}
		tmpl.IsActive = true
	}

	log.Info().Str("template_id", tmpl.ID).Bool("active", tmpl.IsActive).Msg("template created")
	respondJSON(w, http.StatusCreated, newTemplateResponse(tmpl))
}

// UpdateTemplate overwrites template settings. Custom fields are saved as a
// unit and renumbered.
func (h *TemplatesHandler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	owner := requireOwner(w, r)
	if owner == "" {
		return
	}
	tw := getTemplateWriter(r, w)
	if tw == nil {
		return
	}

	id := chi.URLParam(r, "id")
	tmpl, err := tw.GetTemplate(r.Context(), owner, id)
	if err != nil {
		log.Error().Err(err).Str("template_id", sanitizeForLog(id)).Msg("failed to get template")
		respondError(w, http.StatusInternalServerError, "failed to get template")
		return
	}
	if tmpl == nil {
		respondError(w, http.StatusNotFound, "template not found")
		return
	}

	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	req.apply(tmpl)
	if err := database.ValidateTemplate(tmpl); err != nil {
		respondSaveError(w, err, "failed to update template")
		return
	}
	if err := tw.UpdateTemplate(r.Context(), tmpl); err != nil {
		log.Error().Err(err).Str("template_id", tmpl.ID).Msg("failed to update template")
		respondSaveError(w, err, "failed to update template")
		return
	}

	if req.Activate != nil && *req.Activate && !tmpl.IsActive {
		if err := tw.SetActiveTemplate(r.Context(), owner, tmpl.ID); err != nil {
			log.Error().Err(err).Str("template_id", tmpl.ID).Msg("failed to activate template")
			respondError(w, http.StatusInternalServerError, "failed to activate template")
			return
		}
		tmpl.IsActive = true
	}
	respondJSON(w, http.StatusOK, newTemplateResponse(tmpl))
}

// ActivateTemplate makes one template active and deactivates the owner's others.
func (h *TemplatesHandler) ActivateTemplate(w http.ResponseWriter, r *http.Request) {
	owner := requireOwner(w, r)
	if owner == "" {
		return
	}
	tw := getTemplateWriter(r, w)
	if tw == nil {
		return
	}
	id := chi.URLParam(r, "id")
	if err := tw.SetActiveTemplate(r.Context(), owner, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "template not found")
			return
		}
		log.Error().Err(err).Str("template_id", sanitizeForLog(id)).Msg("failed to activate template")
		respondError(w, http.StatusInternalServerError, "failed to activate template")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "active"})
}
