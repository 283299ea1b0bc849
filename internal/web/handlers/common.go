package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/kozaktomas/school-reports/internal/database"
	"github.com/kozaktomas/school-reports/internal/web/middleware"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

type validationErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

// respondSaveError maps a validation or storage error to a response.
// Validation errors become 400 with the per-field messages.
func respondSaveError(w http.ResponseWriter, err error, message string) {
	var verrs database.ValidationErrors
	if errors.As(err, &verrs) {
		respondJSON(w, http.StatusBadRequest, validationErrorResponse{
			Error:  "validation failed",
			Fields: verrs,
		})
		return
	}
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, "not found")
		return
	}
	respondError(w, http.StatusInternalServerError, message)
}

// ownerID returns the user id of the authenticated session, or "" when the
// request did not pass through RequireAuth.
func ownerID(r *http.Request) string {
	return middleware.OwnerFromContext(r.Context())
}

// requireOwner writes 401 and returns "" when the request carries no session.
func requireOwner(w http.ResponseWriter, r *http.Request) string {
	id := ownerID(r)
	if id == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized")
	}
	return id
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
