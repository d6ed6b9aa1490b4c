package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

var (
	// ErrUnavailable means the provider could not be reached or answered with a server error.
	ErrUnavailable = errors.New("identity provider unavailable")
	// ErrUserNotFound means the provider does not know the user.
	ErrUserNotFound = errors.New("user not found")
	// ErrSessionEnded means the provider session was revoked or expired.
	ErrSessionEnded = errors.New("provider session ended")
)

// Provider is a client for the identity provider's backend API.
type Provider struct {
	apiURL     *url.URL
	secretKey  string
	httpClient *http.Client
}

// NewProvider creates a provider client authenticated with the backend API secret.
func NewProvider(apiURL, secretKey string, httpClient *http.Client) (*Provider, error) {
	parsed, err := url.Parse(strings.TrimRight(apiURL, "/"))
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("invalid identity API URL %q", apiURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Provider{apiURL: parsed, secretKey: secretKey, httpClient: httpClient}, nil
}

// User looks up a user by id.
func (p *Provider) User(ctx context.Context, userID string) (*User, error) {
	var user User
	if err := p.call(ctx, http.MethodGet, []string{"v1", "users", userID}, &user); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// SessionToken issues a fresh token for the session using a named template.
func (p *Provider) SessionToken(ctx context.Context, sessionID, template string) (string, error) {
	var resp struct {
		JWT string `json:"jwt"`
	}
	elems := []string{"v1", "sessions", sessionID, "tokens"}
	if template != "" {
		elems = append(elems, template)
	}
	if err := p.call(ctx, http.MethodPost, elems, &resp); err != nil {
		if errors.Is(err, errNotFound) || errors.Is(err, errUnauthorized) {
			return "", ErrSessionEnded
		}
		return "", err
	}
	if resp.JWT == "" {
		return "", errors.New("provider returned an empty token")
	}
	return resp.JWT, nil
}

// RevokeSession ends a provider session.
func (p *Provider) RevokeSession(ctx context.Context, sessionID string) error {
	return p.call(ctx, http.MethodPost, []string{"v1", "sessions", sessionID, "revoke"}, nil)
}

var (
	errNotFound     = errors.New("not found")
	errUnauthorized = errors.New("unauthorized")
)

func (p *Provider) call(ctx context.Context, method string, elems []string, out any) error {
	u := p.apiURL.JoinPath(elems...)
	var body io.Reader
	if method == http.MethodPost {
		body = bytes.NewReader([]byte("{}"))
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.httpClient.Do(req) //nolint:gosec // URL built from the configured provider API URL
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errNotFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errUnauthorized
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s %s failed with status %d: %s", method, u.Path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("could not decode provider response: %w", err)
	}
	return nil
}
