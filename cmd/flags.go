package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// mustGet reads a flag declared in init(). A lookup error is a programming bug.
func mustGet[T any](cmd *cobra.Command, name string, get func(*pflag.FlagSet, string) (T, error)) T {
	val, err := get(cmd.Flags(), name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

func mustGetInt(cmd *cobra.Command, name string) int {
	return mustGet(cmd, name, (*pflag.FlagSet).GetInt)
}

func mustGetString(cmd *cobra.Command, name string) string {
	return mustGet(cmd, name, (*pflag.FlagSet).GetString)
}

func mustGetBool(cmd *cobra.Command, name string) bool {
	return mustGet(cmd, name, (*pflag.FlagSet).GetBool)
}

// flagOrEnv returns the trimmed flag value, or the environment variable when
// the flag is empty.
func flagOrEnv(cmd *cobra.Command, name, envKey string) string {
	if v := strings.TrimSpace(mustGetString(cmd, name)); v != "" {
		return v
	}
	return strings.TrimSpace(os.Getenv(envKey))
}
