package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Build metadata, set with -ldflags "-X github.com/reunite/portal/cmd.Version=...".
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build metadata of the portal binary",
	Run: func(cmd *cobra.Command, args []string) {
		if mustGetBool(cmd, "short") {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
			return
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "reunite portal %s\n", Version)
		fmt.Fprintf(out, "  Commit:   %s\n", CommitSHA)
		fmt.Fprintf(out, "  Built:    %s\n", BuildDate)
		fmt.Fprintf(out, "  Go:       %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().Bool("short", false, "Print only the version number")
}
