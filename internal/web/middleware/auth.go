package middleware

import (
	"context"
	"encoding/json"
	"net/http"
)

type sessionKey struct{}

// RequireAuth rejects requests without a live session with 401 and stores
// the session in the request context for the handlers behind it.
func RequireAuth(sm *SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := sm.GetSessionFromRequest(r)
			if session == nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
				return
			}
			next.ServeHTTP(w, r.WithContext(SetSessionInContext(r.Context(), session)))
		})
	}
}

// GetSessionFromContext returns the session stored by RequireAuth, or nil.
func GetSessionFromContext(ctx context.Context) *Session {
	session, _ := ctx.Value(sessionKey{}).(*Session)
	return session
}

// OwnerFromContext returns the user ID of the session owner, or "" when
// the context carries no session. Every report and template query is
// scoped to this ID.
func OwnerFromContext(ctx context.Context) string {
	if session := GetSessionFromContext(ctx); session != nil {
		return session.UserID
	}
	return ""
}

// SetSessionInContext adds a session to the context.
func SetSessionInContext(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}
