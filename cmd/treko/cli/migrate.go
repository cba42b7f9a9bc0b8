package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"treko/cmd/treko/app"
	"treko/internal/migration"
)

func newMigrateCmd() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema migrations",
		Long: `Apply, roll back and inspect the embedded SQL migrations.

A failed migration leaves the schema version dirty. Fix the schema by hand,
then record the version that is actually in place with "migrate force".`,
	}

	migrateCmd.AddCommand(newMigrateUpCmd())
	migrateCmd.AddCommand(newMigrateDownCmd())
	migrateCmd.AddCommand(newMigrateVersionCmd())
	migrateCmd.AddCommand(newMigrateForceCmd())

	return migrateCmd
}

// withRunner opens the migration runner for one subcommand and closes it afterwards.
func withRunner(fn func(a *app.App, runner *migration.Runner) error) error {
	a, err := loadApp("migrate")
	if err != nil {
		return err
	}
	defer a.Close()

	runner, err := openMigrations(a)
	if err != nil {
		return err
	}
	defer runner.Close()

	return fn(a, runner)
}

func newMigrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(func(a *app.App, runner *migration.Runner) error {
				res, err := runner.Up(cmd.Context())
				if err != nil {
					return err
				}
				successColor.Fprintln(cmd.OutOrStdout(), res.String())
				return nil
			})
		},
	}
}

func newMigrateDownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "down [n]",
		Short: "Roll back the last n migrations (default 1)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n <= 0 {
					return fmt.Errorf("steps must be a positive number, got %q", args[0])
				}
				steps = n
			}

			return withRunner(func(a *app.App, runner *migration.Runner) error {
				res, err := runner.Down(cmd.Context(), steps)
				if err != nil {
					return err
				}
				successColor.Fprintf(cmd.OutOrStdout(), "rolled back from version %d to %d\n", res.From, res.To)
				return nil
			})
		},
	}
}

func newMigrateVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(func(a *app.App, runner *migration.Runner) error {
				version, dirty, err := runner.Version()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if dirty {
					warningColor.Fprintf(out, "version %d (dirty)\n", version)
					return nil
				}
				infoColor.Fprintf(out, "version %d\n", version)
				return nil
			})
		},
	}
}

func newMigrateForceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "force <version>",
		Short: "Set the schema version without running migrations and clear the dirty flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil || version < -1 {
				return fmt.Errorf("version must be a number, got %q", args[0])
			}

			return withRunner(func(a *app.App, runner *migration.Runner) error {
				if err := runner.Force(version); err != nil {
					return err
				}
				warningColor.Fprintf(cmd.OutOrStdout(), "schema version forced to %d\n", version)
				return nil
			})
		},
	}
}
