package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/reunite/portal/internal/backend"
	"github.com/reunite/portal/internal/identity"
)

func TestWithAdminClient(t *testing.T) {
	var tokenCalls int
	providerServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		w.Write([]byte(`{"jwt":"fresh"}`))
	}))
	defer providerServer.Close()

	provider, err := identity.NewProvider(providerServer.URL, "sk_test", nil)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	base, err := backend.New("http://backend.test")
	if err != nil {
		t.Fatalf("backend.New: %v", err)
	}

	tests := []struct {
		name       string
		session    *Session
		provider   *identity.Provider
		wantStatus int
	}{
		{"no session", nil, provider, http.StatusUnauthorized},
		{"no provider session", &Session{ID: "a", UserID: "u"}, provider, http.StatusUnauthorized},
		{"no provider", &Session{ID: "b", UserID: "u", ProviderSessionID: "sess"}, nil, http.StatusUnauthorized},
		{"signed in", &Session{ID: "c", UserID: "u", ProviderSessionID: "sess"}, provider, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *backend.Client
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = GetAdminClientFromContext(r.Context())
			})
			req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
			if tt.session != nil {
				req = req.WithContext(SetSessionInContext(req.Context(), tt.session))
			}
			rec := httptest.NewRecorder()

			WithAdminClient(base, tt.provider, "backend")(next).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantStatus == http.StatusOK && (got == nil || !got.Authenticated()) {
				t.Error("expected an authenticated client in the context")
			}
		})
	}

	if base.Authenticated() {
		t.Error("the shared base client must stay unauthenticated")
	}
	if tokenCalls != 0 {
		t.Errorf("expected no credential fetch before a backend call, got %d", tokenCalls)
	}
}

func TestMustGetAdminClient_Unauthenticated(t *testing.T) {
	base, err := backend.New("http://backend.invalid")
	if err != nil {
		t.Fatalf("backend.New failed: %v", err)
	}
	ctx := SetAdminClientInContext(context.Background(), base)

	rec := httptest.NewRecorder()
	if MustGetAdminClient(ctx, rec) != nil {
		t.Fatal("an unauthenticated client must not be handed to admin handlers")
	}
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	ctx = SetAdminClientInContext(context.Background(), base.WithTokens(backend.StaticToken("t")))
	if MustGetAdminClient(ctx, rec) == nil {
		t.Error("expected the authenticated client")
	}
}

func TestMustGetAdminClient_Missing(t *testing.T) {
	rec := httptest.NewRecorder()
	if MustGetAdminClient(httptest.NewRequest(http.MethodGet, "/", nil).Context(), rec) != nil {
		t.Fatal("expected nil client")
	}
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rec.Code)
	}
}
