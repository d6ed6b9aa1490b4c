package cmd

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/reunite/portal/internal/attachment"
	"github.com/reunite/portal/internal/backend"
	"github.com/reunite/portal/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search <image> [image...]",
	Short: "Search the backend for persons matching photos",
	Long: `Send each photo to the backend face search and print the matches with
their similarity and confidence band.

Example:
  reunite search photo.jpg
  reunite search --min 60 a.jpg b.png c.webp`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().Int("min", 0, "Only print matches with at least this similarity percentage")
}

type searchOutcome struct {
	path    string
	matches []search.Match
	err     error
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	minPercent := float64(mustGetInt(cmd, "min"))

	client, err := backend.New(cfg.Backend.URL, backend.WithCaptureDir(cfg.Backend.CaptureDir))
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	if len(args) > 1 {
		bar = progressbar.NewOptions(len(args),
			progressbar.OptionSetDescription("Searching"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	outcomes := make([]searchOutcome, 0, len(args))
	for _, path := range args {
		outcomes = append(outcomes, searchFile(cmd, client, path))
		if bar != nil {
			bar.Add(1)
		}
	}
	if bar != nil {
		bar.Finish()
	}

	failed := 0
	for _, o := range outcomes {
		fmt.Printf("%s\n", o.path)
		switch {
		case o.err != nil:
			failed++
			fmt.Printf("  error: %v\n", o.err)
		case len(o.matches) == 0:
			fmt.Println("  No matches found.")
		default:
			for _, m := range o.matches {
				if m.Percent() < minPercent {
					continue
				}
				fmt.Printf("  %-6s %-7s %s", m.Badge(), m.Band(), m.DisplayName())
				if m.CaseID != "" {
					fmt.Printf(" (case %s)", m.CaseID)
				}
				fmt.Println()
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d searches failed", failed, len(outcomes))
	}
	return nil
}

func searchFile(cmd *cobra.Command, client *backend.Client, path string) searchOutcome {
	data, err := os.ReadFile(path)
	if err != nil {
		return searchOutcome{path: path, err: err}
	}
	img, err := attachment.New(path, data)
	if err != nil {
		return searchOutcome{path: path, err: err}
	}

	flow := search.NewFlow(client)
	if err := flow.Select(img); err != nil {
		return searchOutcome{path: path, err: err}
	}
	matches, err := flow.Search(cmd.Context())
	return searchOutcome{path: path, matches: matches, err: err}
}
