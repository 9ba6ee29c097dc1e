// Package main implements the sessionlearn CLI, which reflects on session
// transcripts and appends new learnings to a markdown memory store.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/sessionlearn/internal/reflection"
)

// version information
var version = "dev"

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath      string
	storePath       string
	format          string
	metricsTextfile string
	logLevel        string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "sessionlearn",
		Short: "Extract durable learnings from session transcripts",
		Long: `sessionlearn scans a session transcript for user corrections, approved
patterns and observations, drops anything already recorded, and appends the
rest to an append-only markdown memory store.

Configuration is read from ~/.config/sessionlearn/config.yaml and
SESSIONLEARN_* environment variables; flags override both.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default ~/.config/sessionlearn/config.yaml)")
	flags.StringVar(&opts.storePath, "store", "", "memory store file (overrides store.path)")
	flags.StringVar(&opts.format, "format", reflection.FormatText, "output format: text, markdown, or json")
	flags.StringVar(&opts.metricsTextfile, "metrics-textfile", "", "write Prometheus metrics to this file after each run")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")

	rootCmd.AddCommand(newRunCmd(opts))
	rootCmd.AddCommand(newWatchCmd(opts))
	rootCmd.AddCommand(newListCmd(opts))
	return rootCmd
}
