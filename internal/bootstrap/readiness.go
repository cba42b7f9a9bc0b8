package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Pinger checks that a dependency accepts connections.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger.
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// PgxPinger opens a single connection, pings and closes it.
// It deliberately bypasses the application pool, which may not exist yet.
type PgxPinger struct {
	ConnString string
}

func (p PgxPinger) Ping(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, p.ConnString)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())
	return conn.Ping(ctx)
}

// WaitConfig bounds the readiness poll.
type WaitConfig struct {
	Target         string        // shown in progress output, never contains credentials
	Timeout        time.Duration // total time to wait
	Interval       time.Duration // delay between attempts
	AttemptTimeout time.Duration // bound on a single attempt
}

// WaitForDatabase polls p every Interval until it succeeds or Timeout elapses.
// On timeout the error wraps ErrDependencyUnavailable and the last ping error.
func WaitForDatabase(ctx context.Context, p Pinger, cfg WaitConfig, r Reporter) error {
	if r == nil {
		r = nopReporter{}
	}
	if cfg.Timeout <= 0 || cfg.Interval <= 0 {
		return fmt.Errorf("wait for database: timeout %s and interval %s must be positive", cfg.Timeout, cfg.Interval)
	}

	waitCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	var lastErr error
	for attempt := 1; ; attempt++ {
		lastErr = ping(waitCtx, p, cfg.AttemptTimeout)
		if lastErr == nil {
			r.Progress(StageWaitForDB, fmt.Sprintf("database at %s is ready (attempt %d)", cfg.Target, attempt))
			return nil
		}

		r.Progress(StageWaitForDB, fmt.Sprintf("database at %s unavailable (attempt %d), retrying in %s",
			cfg.Target, attempt, cfg.Interval))

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: database at %s not reachable after %s (%d attempts): %v",
				ErrDependencyUnavailable, cfg.Target, cfg.Timeout, attempt, lastErr)
		case <-time.After(cfg.Interval):
		}
	}
}

func ping(ctx context.Context, p Pinger, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return p.Ping(ctx)
}

// NewWaitStage returns the readiness gate as a Stage.
func NewWaitStage(p Pinger, cfg WaitConfig, r Reporter) Stage {
	return NewStage(StageWaitForDB, KindDependencyUnavailable, func(ctx context.Context) error {
		return WaitForDatabase(ctx, p, cfg, r)
	})
}
