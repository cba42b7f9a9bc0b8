package cli

import (
	"github.com/spf13/cobra"

	"treko/internal/bootstrap"
)

func newInitCmd() *cobra.Command {
	var flags adminFlags

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Apply migrations and create the superuser",
		Long: `Prepare a fresh database: apply every pending migration, then create the
superuser. Running it again is safe; an existing superuser is reported
and left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp("init")
			if err != nil {
				return err
			}
			defer a.Close()

			r := newReporter(cmd)
			err = bootstrap.NewSequencer([]bootstrap.Stage{
				bootstrap.NewStage(bootstrap.StageMigrate, bootstrap.KindMigrationFailed, migrateStep(a, r)),
			}, r, a.Logger).Run(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			in := flags.request(a)
			user, err := createAdmin(cmd.Context(), a, in)
			switch {
			case isAlreadyExists(err):
				warningColor.Fprintf(out, "Superuser %s already exists, skipping\n", in.Email)
				return nil
			case err != nil:
				return err
			}
			successColor.Fprintf(out, "Superuser %s created\n", user.Email)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}
