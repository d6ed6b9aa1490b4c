package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/reunite/portal/internal/identity"
	"github.com/reunite/portal/internal/metrics"
)

type contextKey string

const (
	sessionContextKey contextKey = "session"
	userContextKey    contextKey = "user"
)

// loadingRefreshSeconds is how soon a browser retries while the provider is unresolved.
const loadingRefreshSeconds = "2"

// Sessions attaches the visitor's session to the request, creating an
// anonymous one when the request carries none.
func Sessions(sm *SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := sm.GetSessionFromRequest(r)
			if session == nil {
				var err error
				session, err = sm.CreateSession()
				if err != nil {
					slog.Error("failed to create session", "error", err)
					http.Error(w, "internal error", http.StatusInternalServerError)
					return
				}
				sm.SetSessionCookie(w, session)
			}
			next.ServeHTTP(w, r.WithContext(SetSessionInContext(r.Context(), session)))
		})
	}
}

// GetSessionFromContext retrieves the session from the request context
func GetSessionFromContext(ctx context.Context) *Session {
	session, ok := ctx.Value(sessionContextKey).(*Session)
	if !ok {
		return nil
	}
	return session
}

// SetSessionInContext adds a session to the context.
// This is primarily for testing - use the Sessions middleware in production.
func SetSessionInContext(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}

// UserLookup resolves provider users.
type UserLookup interface {
	User(ctx context.Context, userID string) (*identity.User, error)
}

// Gate decides whether a request may reach an admin view.
type Gate struct {
	users      UserLookup
	adminEmail string
}

// NewGate creates a gate admitting only adminEmail.
func NewGate(users UserLookup, adminEmail string) *Gate {
	return &Gate{users: users, adminEmail: adminEmail}
}

// errNoProvider is returned for signed-in sessions when no provider is configured.
var errNoProvider = errors.New("identity provider not configured")

// State resolves the provider's view of a session. An unreachable provider
// leaves the state unloaded; any other provider failure is returned.
func (g *Gate) State(ctx context.Context, session *Session) (identity.SessionState, error) {
	if session == nil || !session.SignedIn() {
		return identity.SessionState{Loaded: true}, nil
	}
	if g.users == nil {
		return identity.SessionState{}, errNoProvider
	}
	user, err := g.users.User(ctx, session.UserID)
	switch {
	case err == nil:
		return identity.SessionState{Loaded: true, User: user}, nil
	case errors.Is(err, identity.ErrUserNotFound):
		return identity.SessionState{Loaded: true}, nil
	case errors.Is(err, identity.ErrUnavailable):
		slog.Warn("identity provider unavailable", "error", err)
		return identity.SessionState{}, nil
	default:
		return identity.SessionState{}, fmt.Errorf("lookup user: %w", err)
	}
}

// Classify returns the access level of a session.
func (g *Gate) Classify(ctx context.Context, session *Session) (identity.Access, *identity.User, error) {
	state, err := g.State(ctx, session)
	if err != nil {
		return identity.AccessLoading, nil, err
	}
	return identity.Classify(state, g.adminEmail), state.User, nil
}

// RequireAdmin lets only the administrator through. Anonymous visitors go to
// the sign-in page, other users to the home page. While the provider is
// unresolved the response is empty and nothing is redirected.
func RequireAdmin(g *Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			access, user, err := g.Classify(r.Context(), GetSessionFromContext(r.Context()))
			if err != nil {
				slog.Error("identity provider lookup failed", "error", err)
				metrics.GateDecisions.WithLabelValues("error").Inc()
				http.Error(w, "The sign-in service is not working right now.", http.StatusBadGateway)
				return
			}
			metrics.GateDecisions.WithLabelValues(access.String()).Inc()

			switch access {
			case identity.AccessLoading:
				w.Header().Set("Refresh", loadingRefreshSeconds)
				w.Header().Set("Cache-Control", "no-store")
				w.WriteHeader(http.StatusOK)
			case identity.AccessAnonymous:
				http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
			case identity.AccessNonAdmin:
				http.Redirect(w, r, "/", http.StatusSeeOther)
			case identity.AccessAdmin:
				next.ServeHTTP(w, r.WithContext(SetUserInContext(r.Context(), user)))
			}
		})
	}
}

// SetUserInContext adds an admitted user to the context.
// This is primarily for testing - use RequireAdmin in production.
func SetUserInContext(ctx context.Context, user *identity.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// GetUserFromContext returns the administrator admitted by RequireAdmin.
func GetUserFromContext(ctx context.Context) *identity.User {
	user, ok := ctx.Value(userContextKey).(*identity.User)
	if !ok {
		return nil
	}
	return user
}
