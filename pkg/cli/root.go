package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
// Tests build their own trees with NewRootCommand so flag state never leaks
// between runs.
var rootCmd = NewRootCommand()

// NewRootCommand builds the reqcap command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "reqcap",
		Short: "reqcap captures HTTP requests for inspection",
		Long: `reqcap is a test-double HTTP server that records every request it receives.

Each request is buffered into a snapshot, echoed back as JSON and kept in a
request log that can be queried through the admin API under /__reqcap.

Configuration can be provided via flags, REQCAP_* environment variables, or a
YAML configuration file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().Bool("json", false, "Output command results in JSON format")

	root.AddCommand(newServeCommand(), newRenderCommand(), newVersionCommand())
	return root
}

// Execute runs the root command and exits non-zero on error.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}
