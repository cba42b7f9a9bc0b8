package cli

import (
	"github.com/spf13/cobra"

	"treko/internal/bootstrap"
)

func newCollectstaticCmd() *cobra.Command {
	var clearRoot bool

	cmd := &cobra.Command{
		Use:   "collectstatic",
		Short: "Copy static assets into STATIC_ROOT",
		Long: `Copy the bundled assets and every STATICFILES_DIRS entry into STATIC_ROOT.

Directories listed in STATICFILES_DIRS take precedence over bundled files
with the same path. Unchanged files are left alone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp("collectstatic")
			if err != nil {
				return err
			}
			defer a.Close()

			r := newReporter(cmd)
			return bootstrap.NewSequencer([]bootstrap.Stage{
				bootstrap.NewStage(bootstrap.StageCollectStatic, bootstrap.KindStaticCollectionFailed,
					collectStaticStep(a, r, clearRoot)),
			}, r, a.Logger).Run(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&clearRoot, "clear", false, "Remove existing files in STATIC_ROOT first")
	return cmd
}
