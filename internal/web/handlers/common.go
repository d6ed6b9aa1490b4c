package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/reunite/portal/internal/web/middleware"
)

// errInvalidRequestBody is a shared error message for unreadable request bodies.
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

// redirectBack answers a form post with a redirect so a reload does not resubmit.
func redirectBack(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// sessionValue returns per-visitor view state, creating it on first use.
// Without a session the state lives only for this request.
func sessionValue[T any](r *http.Request, key string, create func() T) T {
	session := middleware.GetSessionFromContext(r.Context())
	if session == nil {
		return create()
	}
	return session.Value(key, func() any { return create() }).(T)
}

// popNotice returns the one-shot notice of the visitor's session.
func popNotice(r *http.Request) string {
	session := middleware.GetSessionFromContext(r.Context())
	if session == nil {
		return ""
	}
	return session.PopNotice()
}

// setNotice stores a one-shot notice for the next rendered page.
func setNotice(r *http.Request, msg string) {
	if session := middleware.GetSessionFromContext(r.Context()); session != nil {
		session.SetNotice(msg)
	}
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
