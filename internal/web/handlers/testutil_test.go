package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/school-reports/internal/database"
	"github.com/kozaktomas/school-reports/internal/database/mock"
	"github.com/kozaktomas/school-reports/internal/web/middleware"
)

var errMock = errors.New("mock error")

const testOwner = "user-1"

// testStores holds the mocks registered through the database provider.
type testStores struct {
	reports   *mock.MockReportWriter
	templates *mock.MockTemplateWriter
	users     *mock.MockUserStore
}

// setupStores registers in-memory repositories via the database provider
// system. Cleanup deregisters them.
func setupStores(t *testing.T) *testStores {
	t.Helper()

	s := &testStores{
		reports:   mock.NewMockReportWriter(),
		templates: mock.NewMockTemplateWriter(),
		users:     mock.NewMockUserStore(),
	}
	database.RegisterReportWriter(func() database.ReportWriter { return s.reports })
	database.RegisterTemplateWriter(func() database.TemplateWriter { return s.templates })
	database.RegisterUserStore(func() database.UserStore { return s.users })

	t.Cleanup(func() {
		database.ResetForTesting()
	})
	return s
}

// sampleReport returns a report that passes validation.
func sampleReport(id, owner string) database.Report {
	now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	return database.Report{
		ID:         id,
		OwnerID:    owner,
		Title:      "Sports Day",
		Date:       "2025-03-14",
		Time:       "08:00 - 12:00",
		Venue:      "School field",
		Organizer:  "PE Department",
		Attendance: "320 students",
		Impact:     "Improved teamwork",
		Summary:    "Annual sports day.",
		Images:     []string{},
		Language:   database.LanguageEnglish,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// withSession attaches an authenticated session for owner to the request.
func withSession(r *http.Request, owner string) *http.Request {
	session := &middleware.Session{ID: "session-" + owner, UserID: owner, Email: owner + "@school.test"}
	return r.WithContext(middleware.SetSessionInContext(r.Context(), session))
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%v'", expectedMessage, result["error"])
	}
}
