package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/school-reports/internal/database"
)

func templateRequestFor(method, path, id, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if id != "" {
		req = requestWithChiParams(req, map[string]string{"id": id})
	}
	return withSession(req, testOwner)
}

func TestTemplatesHandler_ListTemplates(t *testing.T) {
	stores := setupStores(t)
	handler := NewTemplatesHandler()
	now := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	stores.templates.AddTemplate(database.TemplateSettings{ID: "t1", OwnerID: testOwner, SchoolName: "A", CreatedAt: now})
	stores.templates.AddTemplate(database.TemplateSettings{ID: "t2", OwnerID: testOwner, SchoolName: "B", CreatedAt: now.Add(time.Hour)})
	stores.templates.AddTemplate(database.TemplateSettings{ID: "t3", OwnerID: "user-2", SchoolName: "C", CreatedAt: now})

	recorder := httptest.NewRecorder()
	handler.ListTemplates(recorder, templateRequestFor("GET", "/api/v1/templates", "", ""))

	assertStatusCode(t, recorder, http.StatusOK)
	var resp []templateResponse
	parseJSONResponse(t, recorder, &resp)
	if len(resp) != 2 {
		t.Fatalf("expected 2 templates, got %d", len(resp))
	}
	if resp[0].ID != "t2" {
		t.Errorf("expected newest first, got '%s'", resp[0].ID)
	}
	if resp[0].AdditionalLogos == nil || resp[0].CustomFields == nil {
		t.Error("expected empty arrays instead of null")
	}
}

func TestTemplatesHandler_ListTemplates_BackendError(t *testing.T) {
	stores := setupStores(t)
	stores.templates.ListTemplatesError = errMock

	recorder := httptest.NewRecorder()
	NewTemplatesHandler().ListTemplates(recorder, templateRequestFor("GET", "/api/v1/templates", "", ""))

	assertStatusCode(t, recorder, http.StatusInternalServerError)
	assertJSONError(t, recorder, "failed to list templates")
}

func TestTemplatesHandler_GetActiveTemplate(t *testing.T) {
	stores := setupStores(t)
	handler := NewTemplatesHandler()

	recorder := httptest.NewRecorder()
	handler.GetActiveTemplate(recorder, templateRequestFor("GET", "/api/v1/templates/active", "", ""))
	assertStatusCode(t, recorder, http.StatusOK)
	if strings.TrimSpace(recorder.Body.String()) != "null" {
		t.Errorf("expected null without an active template, got '%s'", recorder.Body.String())
	}

	stores.templates.AddTemplate(database.TemplateSettings{ID: "t1", OwnerID: testOwner, SchoolName: "SK Melati", IsActive: true})

	recorder = httptest.NewRecorder()
	handler.GetActiveTemplate(recorder, templateRequestFor("GET", "/api/v1/templates/active", "", ""))
	var resp templateResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.ID != "t1" || !resp.IsActive {
		t.Errorf("expected active template t1, got %+v", resp)
	}
}

func TestTemplatesHandler_CreateTemplate_ActivatesByDefault(t *testing.T) {
	stores := setupStores(t)
	handler := NewTemplatesHandler()
	stores.templates.AddTemplate(database.TemplateSettings{ID: "old", OwnerID: testOwner, SchoolName: "Old", IsActive: true})

	body := `{
		"school_name": "SK Taman Melati",
		"primary_color": "#1a1f2c",
		"custom_fields": [
			{"name": {"en": "Budget", "my": "Bajet"}, "type": "number", "order": 5},
			{"name": {"en": "Theme"}, "type": "text", "order": 1}
		]
	}`
	recorder := httptest.NewRecorder()
	handler.CreateTemplate(recorder, templateRequestFor("POST", "/api/v1/templates", "", body))

	assertStatusCode(t, recorder, http.StatusCreated)
	var resp templateResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.Name != "SK Taman Melati" {
		t.Errorf("expected name defaulted to school name, got '%s'", resp.Name)
	}
	if !resp.IsActive {
		t.Error("expected new template active")
	}
	if len(resp.CustomFields) != 2 || resp.CustomFields[0].Name.En != "Theme" || resp.CustomFields[1].Order != 1 {
		t.Errorf("expected custom fields sorted and renumbered, got %+v", resp.CustomFields)
	}
	for _, f := range resp.CustomFields {
		if f.ID == "" {
			t.Error("expected custom field ids assigned")
		}
	}

	old, _ := stores.templates.GetTemplate(t.Context(), testOwner, "old")
	if old.IsActive {
		t.Error("expected previous template deactivated")
	}
}

func TestTemplatesHandler_CreateTemplate_WithoutActivation(t *testing.T) {
	stores := setupStores(t)

	recorder := httptest.NewRecorder()
	NewTemplatesHandler().CreateTemplate(recorder, templateRequestFor("POST", "/api/v1/templates", "", `{"school_name": "SK", "activate": false}`))

	assertStatusCode(t, recorder, http.StatusCreated)
	active, _ := stores.templates.GetActiveTemplate(t.Context(), testOwner)
	if active != nil {
		t.Errorf("expected no active template, got %s", active.ID)
	}
}

func TestTemplatesHandler_CreateTemplate_ValidationFailure(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing school name", `{"school_name": "  "}`, "school_name"},
		{"bad color", `{"school_name": "SK", "primary_color": "red"}`, "primary_color"},
		{"bad logo", `{"school_name": "SK", "school_logo": "logo.png"}`, "school_logo"},
		{"bad field type", `{"school_name": "SK", "custom_fields": [{"name": {"en": "X"}, "type": "select"}]}`, "custom_fields[0].type"},
		{"repeated field label", `{"school_name": "SK", "custom_fields": [{"name": {"en": "Venue"}, "type": "text"}, {"name": {"en": "venue"}, "type": "text"}]}`, "custom_fields[1].name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupStores(t)

			recorder := httptest.NewRecorder()
			NewTemplatesHandler().CreateTemplate(recorder, templateRequestFor("POST", "/api/v1/templates", "", tt.body))

			assertStatusCode(t, recorder, http.StatusBadRequest)
			var resp validationErrorResponse
			parseJSONResponse(t, recorder, &resp)
			if _, ok := resp.Fields[tt.field]; !ok {
				t.Errorf("expected field error for %s, got %v", tt.field, resp.Fields)
			}
		})
	}
}

func TestTemplatesHandler_UpdateTemplate(t *testing.T) {
	stores := setupStores(t)
	stores.templates.AddTemplate(database.TemplateSettings{ID: "t1", OwnerID: testOwner, SchoolName: "Old", IsActive: true})

	body := `{"school_name": "New", "footer_text": "Thank you", "additional_logos": ["https://cdn.school.test/pta.png"]}`
	recorder := httptest.NewRecorder()
	NewTemplatesHandler().UpdateTemplate(recorder, templateRequestFor("PUT", "/api/v1/templates/t1", "t1", body))

	assertStatusCode(t, recorder, http.StatusOK)
	stored, _ := stores.templates.GetTemplate(t.Context(), testOwner, "t1")
	if stored.SchoolName != "New" || stored.FooterText != "Thank you" || len(stored.AdditionalLogos) != 1 {
		t.Errorf("unexpected stored template: %+v", stored)
	}
	if !stored.IsActive {
		t.Error("expected active flag preserved")
	}
}

func TestTemplatesHandler_UpdateTemplate_NotFound(t *testing.T) {
	stores := setupStores(t)
	stores.templates.AddTemplate(database.TemplateSettings{ID: "t1", OwnerID: "user-2", SchoolName: "Other"})

	recorder := httptest.NewRecorder()
	NewTemplatesHandler().UpdateTemplate(recorder, templateRequestFor("PUT", "/api/v1/templates/t1", "t1", `{"school_name": "Mine"}`))

	assertStatusCode(t, recorder, http.StatusNotFound)
	assertJSONError(t, recorder, "template not found")
}

func TestTemplatesHandler_ActivateTemplate(t *testing.T) {
	stores := setupStores(t)
	stores.templates.AddTemplate(database.TemplateSettings{ID: "t1", OwnerID: testOwner, SchoolName: "A", IsActive: true})
	stores.templates.AddTemplate(database.TemplateSettings{ID: "t2", OwnerID: testOwner, SchoolName: "B"})
	handler := NewTemplatesHandler()

	recorder := httptest.NewRecorder()
	handler.ActivateTemplate(recorder, templateRequestFor("POST", "/api/v1/templates/t2/activate", "t2", ""))
	assertStatusCode(t, recorder, http.StatusOK)

	active, _ := stores.templates.GetActiveTemplate(t.Context(), testOwner)
	if active == nil || active.ID != "t2" {
		t.Fatalf("expected t2 active, got %+v", active)
	}
	t1, _ := stores.templates.GetTemplate(t.Context(), testOwner, "t1")
	if t1.IsActive {
		t.Error("expected t1 deactivated")
	}

	recorder = httptest.NewRecorder()
	handler.ActivateTemplate(recorder, templateRequestFor("POST", "/api/v1/templates/nope/activate", "nope", ""))
	assertStatusCode(t, recorder, http.StatusNotFound)
}

func TestTemplatesHandler_NoStorage(t *testing.T) {
	database.ResetForTesting()

	recorder := httptest.NewRecorder()
	NewTemplatesHandler().ListTemplates(recorder, templateRequestFor("GET", "/api/v1/templates", "", ""))

	assertStatusCode(t, recorder, http.StatusInternalServerError)
	assertJSONError(t, recorder, "template storage not available")
}
