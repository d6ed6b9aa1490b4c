package web

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reunite/portal/internal/config"
)

var pngPixel = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89\x00\x00\x00\rIDATx\x9cc\xf8\x0f\x00\x00\x01\x01\x00\x05\x18\xd8N\x00\x00\x00\x00IEND\xaeB`\x82")

// portalFixture runs a mock matching backend and a mock identity provider.
type portalFixture struct {
	mu           sync.Mutex
	email        string
	providerDown bool
	backendAuth  []string
	tokens       int
}

func (f *portalFixture) backend(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	record := func(r *http.Request) {
		f.mu.Lock()
		f.backendAuth = append(f.backendAuth, r.Header.Get("Authorization"))
		f.mu.Unlock()
	}
	mux.HandleFunc("POST /search", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"name":"Asha","similarity":0.92}]`))
	})
	mux.HandleFunc("GET /admin/dashboard", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		w.Write([]byte(`{"total_persons":3,"verified_persons":2,"pending_registrations":1}`))
	})
	mux.HandleFunc("GET /admin/registrations", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		w.Write([]byte(`{"pending":[]}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func (f *portalFixture) provider(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		down, email := f.providerDown, f.email
		f.mu.Unlock()
		if down {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"id":"user_1","first_name":"Asha","primary_email_address_id":"em_1",` +
			`"email_addresses":[{"id":"em_1","email_address":"` + email + `","verification":{"status":"verified"}}]}`))
	})
	mux.HandleFunc("POST /v1/sessions/{sid}/tokens/{template}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.tokens++
		f.mu.Unlock()
		w.Write([]byte(`{"jwt":"backend-token"}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestServer(t *testing.T, f *portalFixture, opts ...func(*config.Config)) *Server {
	t.Helper()
	cfg := &config.Config{
		Backend: config.BackendConfig{URL: f.backend(t).URL, PendingPath: "/admin/registrations"},
		Identity: config.IdentityConfig{
			APIURL:        f.provider(t).URL,
			SecretKey:     "sk_test",
			Issuer:        "https://clerk.example.test",
			TokenTemplate: "backend",
			AdminEmail:    "admin@example.com",
		},
		Web: config.WebConfig{Host: "127.0.0.1", Port: 0, SessionSecret: "test-secret"},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	s, err := NewServer(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(s.sessionManager.Stop)
	return s
}

// signedIn returns a session cookie for a provider user.
func signedIn(t *testing.T, s *Server) *http.Cookie {
	t.Helper()
	session, err := s.sessionManager.SignIn(context.Background(), nil, "user_1", "sess_1")
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	s.sessionManager.SetSessionCookie(rec, session)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestServer_PublicRoutes(t *testing.T) {
	s := newTestServer(t, &portalFixture{})

	tests := []struct {
		path       string
		wantStatus int
		wantBody   string
	}{
		{"/healthz", http.StatusOK, `"ok"`},
		{"/api/v1/health", http.StatusOK, `"ok"`},
		{"/", http.StatusOK, "Search by Image"},
		{"/search", http.StatusOK, "Search Missing Person"},
		{"/register", http.StatusOK, "Register Missing Person"},
		{"/admin/login", http.StatusOK, "Admin Sign In"},
		{"/assets/style.css", http.StatusOK, ""},
		{"/metrics", http.StatusOK, "reunite_"},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			rec := serve(s, httptest.NewRequest(http.MethodGet, tc.path, nil))
			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.wantBody)
			assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
		})
	}
}

func TestServer_PagesIssueSessionCookie(t *testing.T) {
	s := newTestServer(t, &portalFixture{})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/search", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "reunite_session", cookies[0].Name)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Empty(t, rec.Result().Cookies())
}

func TestServer_CORSOnlyOnAPI(t *testing.T) {
	s := newTestServer(t, &portalFixture{}, func(cfg *config.Config) {
		cfg.Web.APIOrigins = []string{"https://app.example.com"}
	})

	preflight := func(path, origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, path, nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		return serve(s, req)
	}

	rec := preflight("/api/v1/search", "https://app.example.com")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))

	rec = preflight("/api/v1/search", "http://localhost:5173")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	req := httptest.NewRequest(http.MethodGet, "/admin/login", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec = serve(s, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestServer_CORSLocalhostWhenEnabled(t *testing.T) {
	s := newTestServer(t, &portalFixture{}, func(cfg *config.Config) {
		cfg.Web.APILocalhost = true
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := serve(s, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_AdminGate(t *testing.T) {
	tests := []struct {
		name         string
		email        string
		providerDown bool
		signIn       bool
		wantStatus   int
		wantLocation string
	}{
		{name: "anonymous", signIn: false, wantStatus: http.StatusSeeOther, wantLocation: "/admin/login"},
		{name: "non-admin", email: "someone@example.com", signIn: true, wantStatus: http.StatusSeeOther, wantLocation: "/"},
		{name: "admin", email: "Admin@Example.com", signIn: true, wantStatus: http.StatusOK},
		{name: "provider loading", email: "admin@example.com", providerDown: true, signIn: true, wantStatus: http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := &portalFixture{email: tc.email, providerDown: tc.providerDown}
			s := newTestServer(t, f)

			req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
			if tc.signIn {
				req.AddCookie(signedIn(t, s))
			}
			rec := serve(s, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, tc.wantLocation, rec.Header().Get("Location"))
			if tc.providerDown {
				assert.Empty(t, rec.Body.String())
				assert.Equal(t, "2", rec.Header().Get("Refresh"))
				assert.Zero(t, f.tokens)
			}
		})
	}
}

func TestServer_AdminDashboard_FreshCredentialPerCall(t *testing.T) {
	f := &portalFixture{email: "admin@example.com"}
	s := newTestServer(t, f)

	req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	req.AddCookie(signedIn(t, s))
	rec := serve(s, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Admin Dashboard")
	assert.Contains(t, rec.Body.String(), "<strong>3</strong>")

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, 2, f.tokens)
	assert.Equal(t, []string{"Bearer backend-token", "Bearer backend-token"}, f.backendAuth)
}

func TestServer_APISearch(t *testing.T) {
	f := &portalFixture{}
	s := newTestServer(t, f)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "face.png")
	require.NoError(t, err)
	part.Write(pngPixel)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := serve(s, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `"band":"high"`), rec.Body.String())
	assert.Equal(t, []string{""}, f.backendAuth)
}
