package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAPIOrigins_Allows(t *testing.T) {
	tests := []struct {
		name    string
		origins APIOrigins
		origin  string
		want    bool
	}{
		{"empty origin", APIOrigins{Localhost: true}, "", false},
		{"listed", APIOrigins{Allowed: []string{"https://app.example.com"}}, "https://app.example.com", true},
		{"not listed", APIOrigins{Allowed: []string{"https://app.example.com"}}, "https://evil.example.com", false},
		{"localhost disabled", APIOrigins{}, "http://localhost:3000", false},
		{"localhost with port", APIOrigins{Localhost: true}, "http://localhost:3000", true},
		{"localhost https", APIOrigins{Localhost: true}, "https://localhost", true},
		{"localhost lookalike", APIOrigins{Localhost: true}, "http://localhost.evil.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.origins.allows(tt.origin); got != tt.want {
				t.Errorf("allows(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}

func TestCORS_PassesSimpleRequests(t *testing.T) {
	called := false
	handler := CORS(APIOrigins{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", nil)
	req.Header.Set("Origin", "https://other.example.com")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if !called {
		t.Error("expected request to reach the handler")
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected Access-Control-Allow-Origin %q", got)
	}
	if got := w.Header().Get("Vary"); got != "Origin" {
		t.Errorf("Vary = %q, want Origin", got)
	}
}
