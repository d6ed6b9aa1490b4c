package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/reunite/portal/internal/database/postgres"
	"github.com/reunite/portal/internal/web"
	"github.com/reunite/portal/internal/web/middleware"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the ReUnite portal.
Serves the public search and registration pages, the JSON API and the
admin console. Sessions are kept in PostgreSQL when DATABASE_URL is set.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
	serveCmd.Flags().String("session-secret", "", "Secret for signing session cookies (overrides WEB_SESSION_SECRET)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	if port := mustGetInt(cmd, "port"); port > 0 {
		cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
	}
	if secret := mustGetString(cmd, "session-secret"); secret != "" {
		cfg.Web.SessionSecret = secret
	}
	if cfg.Web.SessionSecret == "" {
		slog.Warn("WEB_SESSION_SECRET is not set, using the development secret")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sessionRepo middleware.SessionRepository
	if cfg.Database.URL != "" {
		pool, err := postgres.Open(ctx, &cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		defer pool.Close()
		sessionRepo = postgres.NewSessionRepository(pool)
		slog.Info("session persistence enabled (PostgreSQL)")
	}

	server, err := web.NewServer(cfg, sessionRepo)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("error during shutdown", "error", err)
		}
	}()

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
