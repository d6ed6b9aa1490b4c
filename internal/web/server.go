package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/reunite/portal/internal/backend"
	"github.com/reunite/portal/internal/config"
	"github.com/reunite/portal/internal/identity"
	"github.com/reunite/portal/internal/web/handlers"
	"github.com/reunite/portal/internal/web/middleware"
)

// Server represents the web server
type Server struct {
	config         *config.Config
	router         *chi.Mux
	httpServer     *http.Server
	sessionManager *middleware.SessionManager
	renderer       *handlers.Renderer

	backend  *backend.Client
	provider *identity.Provider
	verifier *identity.Verifier
}

// NewServer creates a new web server. sessionRepo may be nil to keep sessions
// in memory only. Without identity provider settings the admin console stays
// closed and only the public pages are served.
func NewServer(cfg *config.Config, sessionRepo middleware.SessionRepository) (*Server, error) {
	httpClient := &http.Client{Timeout: 60 * time.Second}

	client, err := backend.New(cfg.Backend.URL,
		backend.WithHTTPClient(httpClient),
		backend.WithCaptureDir(cfg.Backend.CaptureDir),
	)
	if err != nil {
		return nil, fmt.Errorf("backend client: %w", err)
	}

	renderer, err := handlers.NewRenderer()
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:   cfg,
		router:   chi.NewRouter(),
		renderer: renderer,
		backend:  client,
	}

	if cfg.Identity.SecretKey != "" {
		s.provider, err = identity.NewProvider(cfg.Identity.APIURL, cfg.Identity.SecretKey, &http.Client{Timeout: 10 * time.Second})
		if err != nil {
			return nil, fmt.Errorf("identity provider: %w", err)
		}
	}
	if cfg.Identity.AdminConfigured() && s.provider != nil {
		s.verifier = identity.NewVerifier(cfg.Identity.Issuer, &http.Client{Timeout: 10 * time.Second})
	} else {
		slog.Warn("admin console disabled: identity provider not configured")
	}

	// Create session manager with optional persistence
	s.sessionManager = middleware.NewSessionManager(cfg.Web.SessionSecret, sessionRepo)
	s.sessionManager.SetSecureCookies(strings.HasPrefix(cfg.Web.PublicURL, "https://"))
	s.sessionManager.SetMaxVisitorSessions(cfg.Web.MaxVisitorSessions)

	// Set up middleware stack
	r := s.router
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(2 * time.Minute))
	r.Use(middleware.SecurityHeaders())

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute, // searches wait on the matching backend
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// userLookup returns the provider as a gate lookup, or a nil interface when
// no provider is configured.
func (s *Server) userLookup() middleware.UserLookup {
	if s.provider == nil {
		return nil
	}
	return s.provider
}

func (s *Server) tokenVerifier() handlers.TokenVerifier {
	if s.verifier == nil {
		return nil
	}
	return s.verifier
}

func (s *Server) sessionRevoker() handlers.SessionRevoker {
	if s.provider == nil {
		return nil
	}
	return s.provider
}

// Start starts the HTTP server
func (s *Server) Start() error {
	slog.Info("starting web server", "addr", s.httpServer.Addr, "backend", s.config.Backend.URL)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down web server")

	// Stop the session cleanup goroutine
	if s.sessionManager != nil {
		s.sessionManager.Stop()
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
