package cli

import (
	"context"

	"github.com/spf13/cobra"

	"treko/internal/bootstrap"
)

func newRunserverCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "runserver",
		Short: "Run the development server",
		Long: `Serve the API for local development.

Unlike web there is no readiness gate and no static collection; the
database must already be up and migrated.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp("runserver")
			if err != nil {
				return err
			}
			defer a.Close()

			r := newReporter(cmd)
			return bootstrap.NewSequencer([]bootstrap.Stage{
				bootstrap.NewStage(bootstrap.StageLaunch, bootstrap.KindLaunchFailed, func(ctx context.Context) error {
					return serve(ctx, a, addr, r)
				}),
			}, r, a.Logger).Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8000", "Address to listen on")
	return cmd
}
