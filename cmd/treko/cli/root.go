// Package cli provides the treko command line: the web and worker
// entrypoints plus the management commands run before or beside them.
package cli

import (
	"context"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"treko/cmd/treko/app"
	"treko/cmd/treko/server"
	"treko/internal/bootstrap"
)

// CLI output formatters
var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
)

// Global flags
var (
	configPath string
	noColor    bool
)

// NewRootCmd creates the treko command with all subcommands.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "treko",
		Short: "Time tracking and project management backend",
		Long: `treko serves the time tracking API and runs its background jobs.

The web and worker commands are the container entrypoints. They wait for the
database, prepare it, and only then start serving.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor || os.Getenv("NO_COLOR") != "" {
				color.NoColor = true
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", app.ConfigPath(), "Directory containing app.env")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(newWebCmd())
	rootCmd.AddCommand(newWorkerCmd())
	rootCmd.AddCommand(newRunserverCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newMakemigrationsCmd())
	rootCmd.AddCommand(newCollectstaticCmd())
	rootCmd.AddCommand(newCreateadminCmd())
	rootCmd.AddCommand(newInitCmd())

	return rootCmd
}

// Execute runs the command line until it finishes or SIGINT/SIGTERM arrives,
// and returns the process exit code.
func Execute() int {
	ctx, stop := server.WithSignal(context.Background())
	defer stop()

	cmd := NewRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		errorColor.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return bootstrap.ExitCode(err)
	}
	return 0
}

// loadApp reads configuration and builds the logger for one command.
func loadApp(component string) (*app.App, error) {
	return app.New(configPath, component)
}

func newReporter(cmd *cobra.Command) bootstrap.Reporter {
	return bootstrap.NewConsoleReporter(cmd.OutOrStdout(), noColor)
}
