package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"treko/cmd/treko/app"
	"treko/cmd/treko/di"
	"treko/internal/bootstrap"
	"treko/internal/worker"
)

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Wait for the database and consume background jobs",
		Long: `Container entrypoint for the job consumer.

The worker waits for the database and then consumes the Redis job queue.
It never migrates or collects static files; that belongs to web. A gRPC
health service listens on WORKER_HEALTH_ADDR.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp("worker")
			if err != nil {
				return err
			}
			defer a.Close()

			r := newReporter(cmd)
			stages := bootstrap.WorkerPlan(bootstrap.Steps{
				Pinger: pinger(a),
				Wait:   waitConfig(a),
				Launch: func(ctx context.Context) error {
					return consume(ctx, a, r)
				},
				Reporter: r,
			})
			return bootstrap.NewSequencer(stages, r, a.Logger).Run(cmd.Context())
		},
	}
}

// consume runs the job worker and its health server until ctx is cancelled
// or either of them fails.
func consume(ctx context.Context, a *app.App, r bootstrap.Reporter) error {
	cfg := a.Config

	container, err := di.NewContainer(ctx, cfg, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create container: %w", err)
	}
	defer func() {
		if err := container.Close(); err != nil {
			a.Logger.Error("failed to close container", zap.Error(err))
		}
	}()

	w := container.Worker()
	health := worker.NewHealthServer(a.Logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return health.Serve(gctx, cfg.Worker.HealthAddr) })
	g.Go(func() error { return worker.Supervise(gctx, w, health) })

	r.Progress(bootstrap.StageLaunch, fmt.Sprintf("starting %s consumer with %d workers, health on %s",
		cfg.Worker.Queue, cfg.Worker.Concurrency, cfg.Worker.HealthAddr))

	return g.Wait()
}
