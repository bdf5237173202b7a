// Package cli wires the prreview command tree. Diagnostics go to stderr,
// structured results to stdout, so calling processes can separate the two.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/myk-org/prreview/internal/config"
)

// Exit codes.
const (
	ExitSuccess    = 0
	ExitFailure    = 1
	ExitUsageError = 2
)

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitSuccess

// cfg is loaded once in Run and shared by all command handlers.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "prreview",
	Short: "PR review-comment workflow and history tools",
	Long: "prreview fetches unresolved review threads from GitHub, auto-skips repeats of\n" +
		"previously dismissed comments, posts decided replies back, and keeps a local\n" +
		"history database for dedup and stats.",
	SilenceUsage: true,
}

// Run executes the root command and returns an exit code.
func Run() int {
	loaded, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "error", err)
		return ExitUsageError
	}
	cfg = loaded

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	})))

	rootCmd.AddCommand(reviewsCmd)
	rootCmd.AddCommand(dbCmd)

	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error.
		return ExitUsageError
	}

	return exitCode
}
