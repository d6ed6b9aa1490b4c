package middleware

import (
	"context"
	"net/http"

	"github.com/reunite/portal/internal/backend"
	"github.com/reunite/portal/internal/identity"
)

const adminClientContextKey contextKey = "admin_client"

// WithAdminClient is middleware that builds an authenticated backend client for the
// signed-in administrator and adds it to the context. Each backend call made with it
// asks the provider for a fresh credential. Should be used after RequireAdmin.
func WithAdminClient(base *backend.Client, provider *identity.Provider, template string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := GetSessionFromContext(r.Context())
			if session == nil || session.ProviderSessionID == "" || provider == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			client := base.WithTokens(&identity.SessionTokenSource{
				Provider:  provider,
				SessionID: session.ProviderSessionID,
				Template:  template,
			})
			ctx := SetAdminClientInContext(r.Context(), client)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SetAdminClientInContext adds an admin client to the context.
func SetAdminClientInContext(ctx context.Context, client *backend.Client) context.Context {
	return context.WithValue(ctx, adminClientContextKey, client)
}

// GetAdminClientFromContext retrieves the admin client from the request context.
// Returns nil if no client is available.
func GetAdminClientFromContext(ctx context.Context) *backend.Client {
	client, ok := ctx.Value(adminClientContextKey).(*backend.Client)
	if !ok {
		return nil
	}
	return client
}

// MustGetAdminClient retrieves the admin client from context.
// If not available or not carrying credentials, writes an error response and returns nil.
// Handlers should return immediately after receiving nil.
func MustGetAdminClient(ctx context.Context, w http.ResponseWriter) *backend.Client {
	client := GetAdminClientFromContext(ctx)
	if client == nil {
		http.Error(w, "backend client not available", http.StatusInternalServerError)
		return nil
	}
	if !client.Authenticated() {
		http.Error(w, "backend client has no credentials", http.StatusInternalServerError)
		return nil
	}
	return client
}
