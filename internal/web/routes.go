package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reunite/portal/internal/web/handlers"
	"github.com/reunite/portal/internal/web/middleware"
	"github.com/reunite/portal/internal/web/static"
)

func (s *Server) setupRoutes() {
	cfg := s.config
	gate := middleware.NewGate(s.userLookup(), cfg.Identity.AdminEmail)

	// Create handlers
	pagesHandler := handlers.NewPagesHandler(s.renderer)
	searchHandler := handlers.NewSearchHandler(cfg, s.backend, s.renderer)
	registerHandler := handlers.NewRegisterHandler(cfg, s.backend, s.renderer)
	apiHandler := handlers.NewAPIHandler(s.backend, s.backend)
	authHandler := handlers.NewAuthHandler(cfg, s.sessionManager, s.tokenVerifier(), s.sessionRevoker(), gate, s.renderer)
	adminHandler := handlers.NewAdminHandler(cfg, s.renderer)

	// No session required
	s.router.Get("/healthz", handlers.HealthCheck)
	s.router.Handle("/metrics", promhttp.Handler())
	s.router.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(static.GetFileSystem())))

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.CORS(middleware.APIOrigins{
			Allowed:   cfg.Web.APIOrigins,
			Localhost: cfg.Web.APILocalhost,
		}))
		r.Get("/health", handlers.HealthCheck)
		r.Post("/search", apiHandler.Search)
		r.Post("/register", apiHandler.Register)
	})

	// Pages keep per-visitor state in the session
	s.router.Group(func(r chi.Router) {
		r.Use(middleware.Sessions(s.sessionManager))

		r.Get("/", pagesHandler.Home)
		r.Get("/search", searchHandler.Page)
		r.Post("/search", searchHandler.Submit)
		r.Get("/register", registerHandler.Page)
		r.Post("/register", registerHandler.Submit)

		r.Route("/admin", func(r chi.Router) {
			r.Get("/login", authHandler.Login)
			r.Get("/login/callback", authHandler.Callback)
			r.Post("/login/callback", authHandler.Callback)
			r.Post("/logout", authHandler.Logout)

			// Admin console: gated, with a backend client that fetches a fresh
			// credential for every call
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin(gate))
				r.Use(middleware.WithAdminClient(s.backend, s.provider, cfg.Identity.TokenTemplate))

				r.Get("/", func(w http.ResponseWriter, r *http.Request) {
					http.Redirect(w, r, "/admin/dashboard", http.StatusSeeOther)
				})
				r.Get("/dashboard", adminHandler.Dashboard)
				r.Get("/pending", adminHandler.Pending)
				r.Get("/pending/{id}", adminHandler.PendingDetail)
				r.Post("/pending/{id}/verify", adminHandler.Verify)
				r.Get("/approved", adminHandler.Approved)
				r.Get("/rejected", adminHandler.Rejected)
			})
		})
	})
}
