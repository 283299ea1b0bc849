package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/school-reports/internal/database"
	"github.com/kozaktomas/school-reports/internal/web/middleware"
	"golang.org/x/crypto/bcrypt"
)

func setupAuthTest(t *testing.T) (*testStores, *middleware.SessionManager, *AuthHandler) {
	t.Helper()
	stores := setupStores(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	stores.users.AddUser(database.User{
		ID:           testOwner,
		Email:        "aminah@school.test",
		PasswordHash: string(hash),
		DisplayName:  "Aminah",
	})

	sm := middleware.NewSessionManager("test-secret", nil)
	return stores, sm, NewAuthHandler(sm)
}

func login(t *testing.T, handler *AuthHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	handler.Login(recorder, req)
	return recorder
}

func TestAuthHandler_Login_Success(t *testing.T) {
	_, sm, handler := setupAuthTest(t)

	recorder := login(t, handler, `{"email": " Aminah@School.test ", "password": "s3cret-pass"}`)

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "application/json")

	var response LoginResponse
	parseJSONResponse(t, recorder, &response)
	if !response.Success {
		t.Error("expected success to be true")
	}
	if response.UserID != testOwner {
		t.Errorf("expected user_id '%s', got '%s'", testOwner, response.UserID)
	}
	if response.SessionID == "" || response.ExpiresAt == "" {
		t.Errorf("expected session id and expiry, got %+v", response)
	}

	cookies := recorder.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}

	next := httptest.NewRequest("GET", "/api/v1/auth/status", nil)
	next.AddCookie(cookies[0])
	session := sm.GetSessionFromRequest(next)
	if session == nil || session.UserID != testOwner {
		t.Fatalf("expected session for %s, got %+v", testOwner, session)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"wrong password", `{"email": "aminah@school.test", "password": "nope"}`},
		{"unknown user", `{"email": "someone@school.test", "password": "s3cret-pass"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, handler := setupAuthTest(t)

			recorder := login(t, handler, tt.body)

			assertStatusCode(t, recorder, http.StatusUnauthorized)
			assertJSONError(t, recorder, "invalid credentials")
			if len(recorder.Result().Cookies()) != 0 {
				t.Error("expected no session cookie")
			}
		})
	}
}

func TestAuthHandler_Login_MissingCredentials(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing email", `{"email": "", "password": "s3cret-pass"}`},
		{"missing password", `{"email": "aminah@school.test", "password": ""}`},
		{"missing both", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, handler := setupAuthTest(t)

			recorder := login(t, handler, tt.body)

			assertStatusCode(t, recorder, http.StatusBadRequest)
			assertJSONError(t, recorder, "email and password are required")
		})
	}
}

func TestAuthHandler_Login_InvalidJSON(t *testing.T) {
	_, _, handler := setupAuthTest(t)

	recorder := login(t, handler, `{not json`)

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, errInvalidRequestBody)
}

func TestAuthHandler_Login_BackendError(t *testing.T) {
	stores, _, handler := setupAuthTest(t)
	stores.users.GetUserError = errMock

	recorder := login(t, handler, `{"email": "aminah@school.test", "password": "s3cret-pass"}`)

	assertStatusCode(t, recorder, http.StatusInternalServerError)
	assertJSONError(t, recorder, "failed to log in")
}

func TestAuthHandler_Login_NoStorage(t *testing.T) {
	database.ResetForTesting()
	handler := NewAuthHandler(middleware.NewSessionManager("test-secret", nil))

	recorder := login(t, handler, `{"email": "aminah@school.test", "password": "s3cret-pass"}`)

	assertStatusCode(t, recorder, http.StatusInternalServerError)
	assertJSONError(t, recorder, "user storage not available")
}

func TestAuthHandler_Logout(t *testing.T) {
	_, sm, handler := setupAuthTest(t)

	session, err := sm.CreateSession(t.Context(), testOwner, "aminah@school.test")
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	req := httptest.NewRequest("POST", "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+session.ID)
	recorder := httptest.NewRecorder()
	handler.Logout(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	if sm.GetSession(t.Context(), session.ID) != nil {
		t.Error("expected session to be deleted")
	}

	cookies := recorder.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Errorf("expected a clearing cookie, got %+v", cookies)
	}
}

func TestAuthHandler_Status(t *testing.T) {
	_, sm, handler := setupAuthTest(t)

	t.Run("anonymous", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		handler.Status(recorder, httptest.NewRequest("GET", "/api/v1/auth/status", nil))

		assertStatusCode(t, recorder, http.StatusOK)
		var resp StatusResponse
		parseJSONResponse(t, recorder, &resp)
		if resp.Authenticated {
			t.Error("expected unauthenticated")
		}
	})

	t.Run("logged in", func(t *testing.T) {
		session, err := sm.CreateSession(t.Context(), testOwner, "aminah@school.test")
		if err != nil {
			t.Fatalf("failed to create session: %v", err)
		}
		req := httptest.NewRequest("GET", "/api/v1/auth/status", nil)
		req.Header.Set("Authorization", "Bearer "+session.ID)
		recorder := httptest.NewRecorder()
		handler.Status(recorder, req)

		var resp StatusResponse
		parseJSONResponse(t, recorder, &resp)
		if !resp.Authenticated || resp.UserID != testOwner || resp.Email != "aminah@school.test" {
			t.Errorf("unexpected status: %+v", resp)
		}
	})
}
