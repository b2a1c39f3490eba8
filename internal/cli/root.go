// Package cli implements the command-line interface for testup.
package cli

import (
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/launchcg/testup/internal/runner"
)

var (
	// Global flags
	verbose     int
	projectPath string

	// logger is built once per run from the verbosity flag.
	logger = slog.Default()

	// newRunner creates the command runner used for node and the package
	// managers. Tests swap it for a fake.
	newRunner = func(l *slog.Logger) runner.Runner {
		return runner.NewExec(l)
	}
)

// rootCmd is the base command for testup
var rootCmd = &cobra.Command{
	Use:   "testup",
	Short: "Scaffold a Vitest setup onto an existing frontend project",
	Long: `Testup detects a frontend project's stack (React, Vue 2 or Vue 3), its workspace
layout and package manager, then generates a Vitest configuration, reconciles it with
the files already present and installs the matching test dependencies.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = newLogger(cmd.ErrOrStderr(), verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "Increase verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().StringVarP(&projectPath, "path", "p", ".", "Project directory")
}

// newLogger returns a text logger on w. No -v logs warnings only.
func newLogger(w io.Writer, verbosity int) *slog.Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel(verbosity)})
	return slog.New(handler).With(slog.String("run_id", uuid.NewString()))
}

func logLevel(verbosity int) slog.Level {
	switch {
	case verbosity <= 0:
		return slog.LevelWarn
	case verbosity == 1:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing
func GetRootCmd() *cobra.Command {
	return rootCmd
}
