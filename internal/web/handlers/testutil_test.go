package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/reunite/portal/internal/backend"
	"github.com/reunite/portal/internal/config"
	"github.com/reunite/portal/internal/identity"
	"github.com/reunite/portal/internal/web/middleware"
)

var pngPixel = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89\x00\x00\x00\rIDATx\x9cc\xf8\x0f\x00\x00\x01\x01\x00\x05\x18\xd8N\x00\x00\x00\x00IEND\xaeB`\x82")

const testRegistrationID = "7f1c2c2e-4d4b-4d7e-9a55-1d2f8c7b6a01"

// testConfig creates a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Backend: config.BackendConfig{
			URL:         "http://localhost:8060",
			PendingPath: "/admin/registrations",
		},
		Identity: config.IdentityConfig{
			Issuer:     "https://clerk.example.test",
			SignInURL:  "https://accounts.example.test/sign-in",
			AdminEmail: "admin@example.com",
		},
		Web: config.WebConfig{PublicURL: "https://portal.example.test"},
	}
}

// testRenderer parses the embedded templates once per test.
func testRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("failed to parse templates: %v", err)
	}
	return r
}

// withSession attaches a session to the request context
func withSession(r *http.Request, s *middleware.Session) *http.Request {
	return r.WithContext(middleware.SetSessionInContext(r.Context(), s))
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// multipartBody is one form post: text fields plus files keyed by field name.
type multipartBody struct {
	fields map[string]string
	files  map[string][]byte
}

func (m multipartBody) request(t *testing.T, target string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range m.fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for field, data := range m.files {
		part, err := mw.CreateFormFile(field, field+".png")
		if err != nil {
			t.Fatalf("create file part: %v", err)
		}
		part.Write(data)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// formRequest builds a urlencoded POST.
func formRequest(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// setupMockBackend creates a mock matching backend for handler tests
func setupMockBackend(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for pattern, handler := range handlers {
		mux.HandleFunc(pattern, handler)
	}
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// backendClient creates a client for server authenticated with a fixed token.
func backendClient(t *testing.T, server *httptest.Server) *backend.Client {
	t.Helper()
	client, err := backend.New(server.URL, backend.WithTokenSource(backend.StaticToken("test-token")))
	if err != nil {
		t.Fatalf("failed to create backend client: %v", err)
	}
	return client
}

// adminRequest prepares a request as the admin console sees it after the gate.
func adminRequest(r *http.Request, session *middleware.Session, client *backend.Client) *http.Request {
	r = withSession(r, session)
	return r.WithContext(middleware.SetAdminClientInContext(r.Context(), client))
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(body))
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

// assertRedirect checks for a 303 to the expected location
func assertRedirect(t *testing.T, recorder *httptest.ResponseRecorder, location string) {
	t.Helper()
	assertStatusCode(t, recorder, http.StatusSeeOther)
	if got := recorder.Header().Get("Location"); got != location {
		t.Errorf("expected redirect to %q, got %q", location, got)
	}
}

// assertBodyContains checks the response body for a substring
func assertBodyContains(t *testing.T, recorder *httptest.ResponseRecorder, want string) {
	t.Helper()
	if !strings.Contains(recorder.Body.String(), want) {
		t.Errorf("expected body to contain %q\nBody: %s", want, recorder.Body.String())
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	parseJSONResponse(t, recorder, &result)
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}

// adminUser returns a provider user whose verified primary email is email.
func adminUser(email string) *identity.User {
	return &identity.User{
		ID:                    "user_1",
		FirstName:             "Asha",
		PrimaryEmailAddressID: "em_1",
		EmailAddresses: []identity.EmailAddress{{
			ID:           "em_1",
			EmailAddress: email,
			Verification: &identity.Verification{Status: "verified"},
		}},
	}
}
