package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/reunite/portal/internal/config"
	"github.com/reunite/portal/internal/logger"
)

var captureDir string

var rootCmd = &cobra.Command{
	Use:   "reunite",
	Short: "Missing-person portal backed by a face-matching service",
	Long: `ReUnite serves the public portal for registering missing persons and
searching for them by photo, and the admin console used to review
registrations. Matching and storage are done by the ReUnite backend.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&captureDir, "capture", "", "Directory to save backend responses for testing")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// loadConfig reads the configuration and installs the structured logger.
func loadConfig() *config.Config {
	cfg := config.Load()
	if captureDir != "" {
		cfg.Backend.CaptureDir = captureDir
	}
	slog.SetDefault(logger.New(cfg.LogLevel))
	return cfg
}
