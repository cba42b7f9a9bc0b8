package cli

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"treko/internal/migration"
)

func newMakemigrationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "makemigrations <name>",
		Short: "Create an empty timestamped migration pair in MIGRATIONS_DIR",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp("makemigrations")
			if err != nil {
				return err
			}
			defer a.Close()

			files, err := migration.Create(a.Config.App.MigrationsDir, strings.Join(args, " "), time.Now())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			successColor.Fprintln(out, "Created migration:")
			infoColor.Fprintf(out, "  %s\n  %s\n", files.Up, files.Down)
			return nil
		},
	}
}
