package middleware

import (
	"net/http"
	"strings"
)

// APIOrigins decides which browser origins may call the JSON API.
type APIOrigins struct {
	Allowed   []string
	Localhost bool // accept http(s)://localhost on any port
}

func (o APIOrigins) allows(origin string) bool {
	if origin == "" {
		return false
	}
	if o.Localhost {
		for _, scheme := range []string{"http://", "https://"} {
			host, ok := strings.CutPrefix(origin, scheme)
			if ok && (host == "localhost" || strings.HasPrefix(host, "localhost:")) {
				return true
			}
		}
	}
	for _, a := range o.Allowed {
		if origin == a {
			return true
		}
	}
	return false
}

// CORS answers cross-origin requests for the stateless JSON API.
// Credentials are never allowed.
func CORS(origins APIOrigins) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allowed := origins.allows(origin)
			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type")
				w.Header().Set("Access-Control-Max-Age", "600")
			}
			w.Header().Add("Vary", "Origin")

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				if !allowed {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeaders returns middleware that sets Content-Security-Policy and other security headers.
// Images are served by the backend image host, so remote image sources are allowed.
func SecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Security-Policy",
				"default-src 'self'; img-src 'self' data: blob: https: http:; "+
					"style-src 'self' 'unsafe-inline'; font-src 'self' data:; form-action 'self' https:")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			next.ServeHTTP(w, r)
		})
	}
}
