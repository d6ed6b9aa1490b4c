package identity

import (
	"context"
	"errors"
)

// SessionTokenSource asks the provider for a new template token on every call.
// It satisfies backend.TokenSource.
type SessionTokenSource struct {
	Provider  *Provider
	SessionID string
	Template  string
}

// Token fetches a fresh credential for the backend.
func (s *SessionTokenSource) Token(ctx context.Context) (string, error) {
	if s.SessionID == "" {
		return "", errors.New("no provider session")
	}
	return s.Provider.SessionToken(ctx, s.SessionID, s.Template)
}
