package config

import (
	_ "embed"
	"net/url"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed demos.yaml
var demosYAML []byte

const (
	defaultAPIURL        = "http://localhost:8060"
	defaultIdentityAPI   = "https://api.clerk.com"
	defaultTokenTemplate = "backend"
	defaultPendingPath   = "/admin/registrations"
)

type Config struct {
	Backend  BackendConfig
	Identity IdentityConfig
	Web      WebConfig
	Database DatabaseConfig
	Demo     DemoConfig
	LogLevel string
}

type BackendConfig struct {
	URL         string // base URL of the matching backend (e.g., http://localhost:8060)
	PendingPath string // /admin/registrations or /admin/pending
	CaptureDir  string // optional directory where backend responses are saved
}

type IdentityConfig struct {
	APIURL        string // identity provider backend API
	SecretKey     string // identity provider backend API secret
	Issuer        string // session token issuer, JWKS is served under it
	SignInURL     string // hosted sign-in page
	TokenTemplate string // template name of the credential sent to the backend
	AdminEmail    string // the single email address allowed into the admin console
}

// AdminConfigured reports whether admin views can be reached at all.
func (c *IdentityConfig) AdminConfigured() bool {
	return c.AdminEmail != "" && c.Issuer != ""
}

type WebConfig struct {
	Host          string
	Port          int
	SessionSecret string
	PublicURL     string // external URL of the portal, used for sign-in redirects

	MaxVisitorSessions int      // cap on anonymous sessions held in memory
	APIOrigins         []string // origins allowed to call /api/v1 from a browser
	APILocalhost       bool     // also allow http(s)://localhost origins, for development
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL, optional (sessions are in-memory without it)
	MaxOpenConns int
	MaxIdleConns int
}

type DemoConfig struct {
	BaseURL string      `yaml:"-"`
	Images  []DemoImage `yaml:"images"`
}

type DemoImage struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label"`
	Path  string `yaml:"path"`
}

// Find returns the demo image with the given ID.
func (d *DemoConfig) Find(id string) (DemoImage, bool) {
	for _, img := range d.Images {
		if img.ID == id {
			return img, true
		}
	}
	return DemoImage{}, false
}

// URL resolves a demo image path against the demo base URL.
func (d *DemoConfig) URL(img DemoImage) string {
	if strings.HasPrefix(img.Path, "http://") || strings.HasPrefix(img.Path, "https://") {
		return img.Path
	}
	base, err := url.Parse(d.BaseURL)
	if err != nil {
		return img.Path
	}
	return base.JoinPath(img.Path).String()
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envBool reads an environment variable as a boolean, false when unset or invalid.
func envBool(key string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	return err == nil && b
}

// envList reads a comma-separated environment variable, dropping empty items.
func envList(key string) []string {
	var list []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}

// envString reads an environment variable, falling back to defaultVal when unset or empty.
func envString(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

func Load() *Config {
	var demo DemoConfig
	if err := yaml.Unmarshal(demosYAML, &demo); err != nil {
		// embedded file, a failure here is a build defect
		panic("failed to unmarshal embedded demos.yaml: " + err.Error())
	}

	apiURL := strings.TrimRight(envString("REUNITE_API_URL", defaultAPIURL), "/")
	demo.BaseURL = envString("DEMO_BASE_URL", apiURL)

	return &Config{
		Backend: BackendConfig{
			URL:         apiURL,
			PendingPath: envString("ADMIN_PENDING_PATH", defaultPendingPath),
			CaptureDir:  os.Getenv("API_CAPTURE_DIR"),
		},
		Identity: IdentityConfig{
			APIURL:        strings.TrimRight(envString("IDENTITY_API_URL", defaultIdentityAPI), "/"),
			SecretKey:     os.Getenv("IDENTITY_SECRET_KEY"),
			Issuer:        strings.TrimRight(os.Getenv("IDENTITY_ISSUER"), "/"),
			SignInURL:     os.Getenv("IDENTITY_SIGN_IN_URL"),
			TokenTemplate: envString("IDENTITY_TOKEN_TEMPLATE", defaultTokenTemplate),
			AdminEmail:    strings.TrimSpace(os.Getenv("ADMIN_EMAIL")),
		},
		Web: WebConfig{
			Host:          envString("WEB_HOST", "0.0.0.0"),
			Port:          envInt("WEB_PORT", 8080),
			SessionSecret: os.Getenv("WEB_SESSION_SECRET"),
			PublicURL:     strings.TrimRight(os.Getenv("WEB_PUBLIC_URL"), "/"),

			MaxVisitorSessions: envInt("WEB_MAX_VISITOR_SESSIONS", 5000),
			APIOrigins:         envList("WEB_API_ORIGINS"),
			APILocalhost:       envBool("WEB_API_ALLOW_LOCALHOST"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 2),
		},
		Demo:     demo,
		LogLevel: envString("LOG_LEVEL", "info"),
	}
}
