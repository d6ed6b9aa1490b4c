package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reunite/portal/internal/backend"
	"github.com/reunite/portal/internal/review"
)

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List registrations awaiting review",
	Long: `List pending registrations using a backend credential supplied by the
operator, for example one issued from the identity provider dashboard.

Example:
  reunite pending --token "$ADMIN_TOKEN"
  reunite pending --token "$ADMIN_TOKEN" --query asha`,
	RunE: runPending,
}

func init() {
	rootCmd.AddCommand(pendingCmd)
	pendingCmd.Flags().String("token", "", "Backend credential (defaults to REUNITE_ADMIN_TOKEN)")
	pendingCmd.Flags().String("query", "", "Only list registrations whose name matches")
}

func runPending(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	token := flagOrEnv(cmd, "token", "REUNITE_ADMIN_TOKEN")
	if token == "" {
		return errors.New("--token or REUNITE_ADMIN_TOKEN is required")
	}

	client, err := backend.New(cfg.Backend.URL,
		backend.WithTokenSource(backend.StaticToken(token)),
		backend.WithCaptureDir(cfg.Backend.CaptureDir),
	)
	if err != nil {
		return err
	}

	list, err := review.New(client, cfg.Backend.PendingPath).Pending(cmd.Context())
	if err != nil {
		return fmt.Errorf("list pending registrations: %w", err)
	}
	list = review.FilterRegistrations(list, mustGetString(cmd, "query"))

	if len(list) == 0 {
		fmt.Println("No pending registrations.")
		return nil
	}
	for _, reg := range list {
		name := reg.PersonData.Name
		if name == "" {
			name = "Unknown"
		}
		fmt.Printf("%s  %-30s %-20s %s\n", reg.ID, name, reg.PersonData.LastSeenLocation, reg.SubmittedAt)
	}
	fmt.Printf("\n%d pending\n", len(list))
	return nil
}
