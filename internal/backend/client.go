// Package backend is the HTTP client of the missing-person matching backend.
//
// A Client without a TokenSource talks to the public endpoints (registration and
// search). A Client built WithTokenSource fetches a fresh credential before every
// call and sends it as a bearer token; credentials are never cached here.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/reunite/portal/internal/metrics"
)

// TokenSource supplies the bearer credential for one request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(ctx context.Context) (string, error)

// Token calls f.
func (f TokenSourceFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// StaticToken returns the same credential on every call. Used by operator tooling.
func StaticToken(token string) TokenSource {
	return TokenSourceFunc(func(context.Context) (string, error) {
		if token == "" {
			return "", errors.New("no token configured")
		}
		return token, nil
	})
}

// Client represents a client for the matching backend API
type Client struct {
	URL        string
	parsedURL  *url.URL
	httpClient *http.Client
	tokens     TokenSource
	captureDir string
}

// Option configures a Client.
type Option func(*Client)

// WithTokenSource makes every request carry a freshly fetched bearer token.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithCaptureDir saves every successful response body to dir. Empty disables capturing.
func WithCaptureDir(dir string) Option {
	return func(c *Client) { c.captureDir = dir }
}

// New creates a backend client for the given base URL.
func New(rawURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(rawURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend URL %q: scheme must be http or https", rawURL)
	}
	c := &Client{URL: parsed.String(), parsedURL: parsed, httpClient: http.DefaultClient}
	for _, opt := range opts {
		opt(c)
	}
	if c.captureDir != "" {
		if err := os.MkdirAll(c.captureDir, 0750); err != nil {
			return nil, fmt.Errorf("could not create capture directory: %w", err)
		}
	}
	return c, nil
}

// Authenticated reports whether the client attaches bearer credentials.
func (c *Client) Authenticated() bool {
	return c.tokens != nil
}

// WithTokens returns a copy of the client that authenticates with ts.
func (c *Client) WithTokens(ts TokenSource) *Client {
	clone := *c
	clone.tokens = ts
	return &clone
}

// resolveURL builds a full URL from the base URL and a resource path.
// A query string in the path (e.g. "admin/verify/1?approve=true") is kept.
func (c *Client) resolveURL(resource string) string {
	pathPart, query, _ := strings.Cut(resource, "?")
	u := c.parsedURL.JoinPath(pathPart)
	u.RawQuery = query
	return u.String()
}

// Get performs a GET request and returns the raw response body.
func (c *Client) Get(ctx context.Context, resource string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, resource, nil)
}

// Post performs a POST request. A *Form body is sent as multipart/form-data,
// any other non-nil body as JSON.
func (c *Client) Post(ctx context.Context, resource string, body any) ([]byte, error) {
	return c.do(ctx, http.MethodPost, resource, body)
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, resource string, body any) ([]byte, error) {
	return c.do(ctx, http.MethodPut, resource, body)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, resource string) ([]byte, error) {
	return c.do(ctx, http.MethodDelete, resource, nil)
}

// encodeBody returns the request body reader and its content type.
func encodeBody(body any) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case *Form:
		return b.Encode()
	default:
		jsonBody, err := json.Marshal(b)
		if err != nil {
			return nil, "", fmt.Errorf("could not marshal request body: %w", err)
		}
		return bytes.NewReader(jsonBody), "application/json", nil
	}
}

func (c *Client) do(ctx context.Context, method, resource string, body any) ([]byte, error) {
	endpoint := endpointLabel(resource)
	start := time.Now()
	respBody, err := c.send(ctx, method, resource, body)
	metrics.BackendDuration.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())
	metrics.BackendRequests.WithLabelValues(method, endpoint, metrics.Outcome(err)).Inc()
	return respBody, err
}

func (c *Client) send(ctx context.Context, method, resource string, body any) ([]byte, error) {
	bodyReader, contentType, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolveURL(resource), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		metrics.CredentialFetches.WithLabelValues(metrics.Outcome(err)).Inc()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCredential, err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req) //nolint:gosec // URL constructed from the configured base URL via resolveURL
	if err != nil {
		return nil, fmt.Errorf("could not send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Method: method, Resource: resource, Code: resp.StatusCode, Body: readErrorBody(resp.Body)}
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read response body: %w", err)
	}

	c.captureResponse(resource, respBody)
	return respBody, nil
}

// endpointLabel collapses identifiers so metric labels stay bounded.
func endpointLabel(resource string) string {
	p, _, _ := strings.Cut(resource, "?")
	p = "/" + strings.TrimPrefix(p, "/")
	if strings.HasPrefix(p, "/admin/verify/") {
		return "/admin/verify/{id}"
	}
	return p
}

// readErrorBody reads the response body for error messages.
// Returns empty string if reading fails (we're already in an error path).
func readErrorBody(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return "(could not read error body)"
	}
	return strings.TrimSpace(string(body))
}

// captureResponse saves the API response body to a file if capturing is enabled.
func (c *Client) captureResponse(resource string, body []byte) {
	if c.captureDir == "" {
		return
	}

	resource, _, _ = strings.Cut(resource, "?")
	filename := strings.ReplaceAll(resource, "/", "_")
	filename = strings.TrimPrefix(filename, "_")
	timestamp := time.Now().Format("20060102_150405.000000")
	filename = fmt.Sprintf("%s_%s.json", filename, timestamp)

	fullPath := filepath.Join(c.captureDir, filename)

	var prettyJSON bytes.Buffer
	if err := json.Indent(&prettyJSON, body, "", "  "); err == nil {
		body = prettyJSON.Bytes()
	}

	if err := os.WriteFile(fullPath, body, 0600); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to capture response to %s: %v\n", fullPath, err)
	}
}
