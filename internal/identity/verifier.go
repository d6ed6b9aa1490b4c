package identity

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

// ErrInvalidToken is returned for session tokens that fail verification.
var ErrInvalidToken = errors.New("invalid session token")

const (
	jwksCacheTTL = time.Hour
	// jwksMinRefresh bounds how often unknown key ids can trigger a refetch.
	jwksMinRefresh = time.Minute
)

// SessionClaims are the claims of a provider session token.
type SessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// UserID returns the subject of the token.
func (c *SessionClaims) UserID() string {
	return c.Subject
}

// Verifier checks provider session tokens against the issuer's JWKS.
type Verifier struct {
	issuer     string
	jwksURL    string
	httpClient *http.Client

	minRefresh time.Duration
	refresh    singleflight.Group

	mu          sync.Mutex
	keys        map[string]*rsa.PublicKey
	fetchedAt   time.Time
	lastAttempt time.Time
}

// NewVerifier creates a verifier for tokens issued by issuer.
func NewVerifier(issuer string, httpClient *http.Client) *Verifier {
	issuer = strings.TrimRight(issuer, "/")
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Verifier{
		issuer:     issuer,
		jwksURL:    issuer + "/.well-known/jwks.json",
		httpClient: httpClient,
		minRefresh: jwksMinRefresh,
	}
}

// Verify parses an RS256 session token and validates signature, issuer and expiry.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*SessionClaims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(5 * time.Second),
	}
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		return v.key(ctx, kid)
	}, options...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || claims.SessionID == "" {
		return nil, fmt.Errorf("%w: missing sub or sid", ErrInvalidToken)
	}
	return claims, nil
}

// key returns the signing key for kid, refreshing the key set when it is stale
// or does not contain kid. Refreshes are shared between concurrent callers and
// attempted at most once per minRefresh.
func (v *Verifier) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.Lock()
	k := v.lookup(kid)
	fresh := time.Since(v.fetchedAt) < jwksCacheTTL
	throttled := time.Since(v.lastAttempt) < v.minRefresh
	v.mu.Unlock()

	if k != nil && (fresh || throttled) {
		return k, nil
	}
	if throttled {
		return nil, fmt.Errorf("unknown signing key %q", kid)
	}

	_, err, _ := v.refresh.Do("jwks", func() (any, error) {
		v.mu.Lock()
		v.lastAttempt = time.Now()
		v.mu.Unlock()

		keys, err := v.fetchKeys(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		v.mu.Lock()
		v.keys = keys
		v.fetchedAt = time.Now()
		v.mu.Unlock()
		return nil, nil
	})
	if err != nil {
		if k != nil {
			return k, nil
		}
		return nil, err
	}

	v.mu.Lock()
	k = v.lookup(kid)
	v.mu.Unlock()
	if k != nil {
		return k, nil
	}
	return nil, fmt.Errorf("unknown signing key %q", kid)
}

func (v *Verifier) lookup(kid string) *rsa.PublicKey {
	if kid == "" && len(v.keys) == 1 {
		for _, k := range v.keys {
			return k
		}
	}
	return v.keys[kid]
}

type jsonWebKey struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func (v *Verifier) fetchKeys(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksURL, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create JWKS request: %w", err)
	}
	resp, err := v.httpClient.Do(req) //nolint:gosec // URL derived from the configured issuer
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: JWKS status %d", ErrUnavailable, resp.StatusCode)
	}

	var set struct {
		Keys []jsonWebKey `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("could not decode JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, jwk := range set.Keys {
		if jwk.Kty != "RSA" || (jwk.Use != "" && jwk.Use != "sig") {
			continue
		}
		pub, err := parseRSAKey(jwk)
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", jwk.Kid, err)
		}
		keys[jwk.Kid] = pub
	}
	return keys, nil
}

func parseRSAKey(jwk jsonWebKey) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(jwk.N)
	if err != nil {
		return nil, fmt.Errorf("invalid modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(jwk.E)
	if err != nil {
		return nil, fmt.Errorf("invalid exponent: %w", err)
	}
	e := new(big.Int).SetBytes(eBytes)
	if !e.IsInt64() || e.Int64() < 3 {
		return nil, errors.New("invalid exponent")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: int(e.Int64())}, nil
}
