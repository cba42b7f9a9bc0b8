package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"treko/cmd/treko/app"
	"treko/cmd/treko/di"
	"treko/cmd/treko/server"
	"treko/internal/bootstrap"
	"treko/internal/config"
)

func newWebCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "web",
		Short: "Wait for the database, migrate, collect static files and serve the API",
		Long: fmt.Sprintf(`Container entrypoint for the API.

Stages run strictly in order: wait for the database, apply migrations,
collect static files, then serve on %s. A failing stage stops the
sequence and the process exits non-zero.`, config.ListenAddr),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp("web")
			if err != nil {
				return err
			}
			defer a.Close()

			r := newReporter(cmd)
			stages := bootstrap.WebPlan(bootstrap.Steps{
				Pinger:        pinger(a),
				Wait:          waitConfig(a),
				Migrate:       migrateStep(a, r),
				CollectStatic: collectStaticStep(a, r, false),
				Launch:        webLaunch(a, r),
				Reporter:      r,
			})
			return bootstrap.NewSequencer(stages, r, a.Logger).Run(cmd.Context())
		},
	}
}

// serveHTTP is swapped in tests.
var serveHTTP = serve

// webLaunch serves on config.ListenAddr. No flag or setting moves it.
func webLaunch(a *app.App, r bootstrap.Reporter) func(context.Context) error {
	return func(ctx context.Context) error {
		return serveHTTP(ctx, a, config.ListenAddr, r)
	}
}

// serve builds every dependency and serves HTTP on addr until ctx is cancelled.
func serve(ctx context.Context, a *app.App, addr string, r bootstrap.Reporter) error {
	cfg := a.Config

	a.Logger.Info("starting application",
		zap.String("service", cfg.Logger.ServiceName),
		zap.String("version", cfg.Logger.ServiceVersion),
		zap.String("environment", cfg.App.Env),
	)

	container, err := di.NewContainer(ctx, cfg, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create container: %w", err)
	}
	defer func() {
		if err := container.Close(); err != nil {
			a.Logger.Error("failed to close container", zap.Error(err))
		}
	}()

	srv := server.New(
		addr,
		container.Router(),
		cfg.Server.RequestTimeout(),
		time.Duration(cfg.App.ShutdownTimeoutSeconds)*time.Second,
		a.Logger,
	)

	r.Progress(bootstrap.StageLaunch, fmt.Sprintf("serving on %s (%d workers x %d threads, timeout %s)",
		addr, cfg.Server.Workers, cfg.Server.Threads, cfg.Server.RequestTimeout()))

	if err := srv.Run(ctx); err != nil {
		return err
	}
	a.Logger.Info("application shutdown complete")
	return nil
}
