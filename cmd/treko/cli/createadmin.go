package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"treko/cmd/treko/app"
	"treko/cmd/treko/di"
	"treko/cmd/treko/infrastructure"
	"treko/internal/usecase/account"
	apperrors "treko/pkg/errors"
)

// adminFlags override the ADMIN_* settings when set.
type adminFlags struct {
	email    string
	name     string
	password string
}

func (f adminFlags) request(a *app.App) account.CreateSuperuserRequest {
	in := account.CreateSuperuserRequest{
		Email:    a.Config.Admin.Email,
		Name:     a.Config.Admin.Name,
		Password: a.Config.Admin.Password,
	}
	if f.email != "" {
		in.Email = f.email
	}
	if f.name != "" {
		in.Name = f.name
	}
	if f.password != "" {
		in.Password = f.password
	}
	return in
}

func (f *adminFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.email, "email", "", "Superuser email (default ADMIN_EMAIL)")
	cmd.Flags().StringVar(&f.name, "name", "", "Superuser name (default ADMIN_NAME)")
	cmd.Flags().StringVar(&f.password, "password", "", "Superuser password (default ADMIN_PASSWORD)")
}

func newCreateadminCmd() *cobra.Command {
	var flags adminFlags

	cmd := &cobra.Command{
		Use:   "createadmin",
		Short: "Create the superuser account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp("createadmin")
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := createAdmin(cmd.Context(), a, flags.request(a))
			if err != nil {
				return err
			}
			successColor.Fprintf(cmd.OutOrStdout(), "Superuser %s created\n", user.Email)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func createAdmin(ctx context.Context, a *app.App, in account.CreateSuperuserRequest) (*account.UserDTO, error) {
	if in.Email == "" || in.Password == "" {
		return nil, errors.New("superuser email and password are required (ADMIN_EMAIL/ADMIN_PASSWORD or --email/--password)")
	}

	db, err := infrastructure.NewDatabase(ctx, a.Config, a.Logger)
	if err != nil {
		return nil, err
	}
	defer infrastructure.CloseDatabase(db)

	user, err := di.NewAccountUsecase(a.Config, db, nil, a.Logger).CreateSuperuser(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("create superuser: %w", err)
	}
	return user, nil
}

func isAlreadyExists(err error) bool {
	var exists *apperrors.AlreadyExistsError
	return errors.As(err, &exists)
}
