package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/school-reports/internal/database"
)

func TestRespondJSON_SetsContentTypeAndStatus(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
	}{
		{"OK", http.StatusOK},
		{"Created", http.StatusCreated},
		{"NotFound", http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			respondJSON(recorder, tc.statusCode, map[string]string{"status": "ok"})

			assertStatusCode(t, recorder, tc.statusCode)
			assertContentType(t, recorder, "application/json")
		})
	}
}

func TestRespondJSON_NilData(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondJSON(recorder, http.StatusOK, nil)

	if recorder.Body.Len() != 0 {
		t.Errorf("expected empty body for nil data, got '%s'", recorder.Body.String())
	}
}

func TestRespondError_ContainsErrorKey(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondError(recorder, http.StatusBadRequest, "something went wrong")

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "something went wrong")
}

func TestRespondSaveError(t *testing.T) {
	t.Run("validation errors carry fields", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		respondSaveError(recorder, database.ValidationErrors{"title": "is required"}, "failed to save")

		assertStatusCode(t, recorder, http.StatusBadRequest)
		var resp validationErrorResponse
		parseJSONResponse(t, recorder, &resp)
		if resp.Error != "validation failed" {
			t.Errorf("expected 'validation failed', got '%s'", resp.Error)
		}
		if resp.Fields["title"] != "is required" {
			t.Errorf("expected title field message, got %v", resp.Fields)
		}
	})

	t.Run("not found", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		respondSaveError(recorder, fmt.Errorf("update report: %w", database.ErrNotFound), "failed to save")

		assertStatusCode(t, recorder, http.StatusNotFound)
	})

	t.Run("backend error", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		respondSaveError(recorder, errMock, "failed to save")

		assertStatusCode(t, recorder, http.StatusInternalServerError)
		assertJSONError(t, recorder, "failed to save")
	})
}

func TestRequireOwner(t *testing.T) {
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/reports", nil)

	if got := requireOwner(recorder, req); got != "" {
		t.Errorf("expected empty owner, got '%s'", got)
	}
	assertStatusCode(t, recorder, http.StatusUnauthorized)

	recorder = httptest.NewRecorder()
	if got := requireOwner(recorder, withSession(req, testOwner)); got != testOwner {
		t.Errorf("expected owner '%s', got '%s'", testOwner, got)
	}
	if recorder.Body.Len() != 0 {
		t.Errorf("expected nothing written, got '%s'", recorder.Body.String())
	}
}

func TestSanitizeForLog(t *testing.T) {
	if got := sanitizeForLog("line1\r\nline2\n"); got != "line1line2" {
		t.Errorf("expected 'line1line2', got '%s'", got)
	}
}

func TestHealthCheck(t *testing.T) {
	for _, method := range []string{"GET", "HEAD"} {
		t.Run(method, func(t *testing.T) {
			req := httptest.NewRequest(method, "/api/v1/health", nil)
			recorder := httptest.NewRecorder()

			HealthCheck(recorder, req)

			assertStatusCode(t, recorder, http.StatusOK)
			var result map[string]string
			if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if result["status"] != "ok" {
				t.Errorf("expected status 'ok', got '%s'", result["status"])
			}
		})
	}
}
