package cli

import (
	"context"
	"fmt"

	"treko/cmd/treko/app"
	"treko/internal/bootstrap"
	"treko/internal/migration"
	"treko/internal/staticfiles"
	"treko/migrations"
	"treko/web"
)

func waitConfig(a *app.App) bootstrap.WaitConfig {
	return bootstrap.WaitConfig{
		Target:         a.Config.DB.Address(),
		Timeout:        a.Config.DB.WaitTimeout(),
		Interval:       a.Config.DB.WaitInterval(),
		AttemptTimeout: a.Config.DB.ConnectTimeout(),
	}
}

func pinger(a *app.App) bootstrap.Pinger {
	return bootstrap.PgxPinger{ConnString: a.Config.DB.URL()}
}

func openMigrations(a *app.App) (*migration.Runner, error) {
	runner, err := migration.New(a.Config.DB.URL(), migrations.FS, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open migrations: %w", err)
	}
	return runner, nil
}

// migrateStep applies pending migrations and reports the version change.
func migrateStep(a *app.App, r bootstrap.Reporter) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		runner, err := openMigrations(a)
		if err != nil {
			return err
		}
		defer runner.Close()

		res, err := runner.Up(ctx)
		if err != nil {
			return err
		}
		r.Progress(bootstrap.StageMigrate, res.String())
		return nil
	}
}

// staticSources lists STATICFILES_DIRS ahead of the embedded assets, so a
// project directory can override a bundled file.
func staticSources(a *app.App) ([]staticfiles.Source, error) {
	sources, err := staticfiles.DirSources(a.Config.App.StaticDirs)
	if err != nil {
		return nil, err
	}
	return append(sources, staticfiles.Source{Name: "embedded", FS: web.Static()}), nil
}

// collectStaticStep copies every static source into STATIC_ROOT.
func collectStaticStep(a *app.App, r bootstrap.Reporter, clear bool) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		sources, err := staticSources(a)
		if err != nil {
			return err
		}

		collector := staticfiles.NewCollector(a.Config.App.StaticRoot, sources, a.Logger)
		if clear {
			if err := collector.Clear(); err != nil {
				return err
			}
			r.Progress(bootstrap.StageCollectStatic, "cleared "+a.Config.App.StaticRoot)
		}

		res, err := collector.Collect(ctx)
		if err != nil {
			return err
		}
		r.Progress(bootstrap.StageCollectStatic, res.String())
		return nil
	}
}
