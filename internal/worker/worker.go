// Package worker consumes background jobs from the queue and runs their handlers
// with bounded retries.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"treko/internal/adapter/queue"
	"treko/pkg/logger"
	"treko/pkg/metrics"
)

// Handler runs one job. Returning an error schedules a retry unless the error is Permanent.
type Handler func(ctx context.Context, payload json.RawMessage) error

// Queue is the job source the worker consumes.
type Queue interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error)
	Schedule(ctx context.Context, job queue.Job, at time.Time) error
	Promote(ctx context.Context) (int, error)
	DeadLetter(ctx context.Context, job queue.Job, reason error) error
}

// Config controls concurrency and retry behaviour.
type Config struct {
	Concurrency     int
	MaxRetries      int
	RetryDelay      time.Duration
	PollTimeout     time.Duration
	PromoteInterval time.Duration
	// DrainTimeout is how long a job already running may continue after shutdown starts.
	DrainTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = 2
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 5 * time.Second
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = 5 * time.Second
	}
	if c.PromoteInterval <= 0 {
		c.PromoteInterval = time.Second
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = 30 * time.Second
	}
	return c
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying; the job is dead-lettered at once.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// ErrUnknownJobType is the dead-letter reason for jobs without a registered handler.
var ErrUnknownJobType = errors.New("unknown job type")

// Worker pulls jobs off a Queue and dispatches them by type.
type Worker struct {
	queue    Queue
	handlers map[string]Handler
	cfg      Config
	log      *zap.Logger
	now      func() time.Time

	ready     chan struct{}
	readyOnce sync.Once
}

// New creates a Worker. Register handlers before calling Run.
func New(q Queue, cfg Config, log *zap.Logger) *Worker {
	return &Worker{
		queue:    q,
		handlers: make(map[string]Handler),
		cfg:      cfg.withDefaults(),
		log:      log,
		now:      time.Now,
		ready:    make(chan struct{}),
	}
}

// Ready is closed once the worker has reached its queue for the first time.
func (w *Worker) Ready() <-chan struct{} {
	return w.ready
}

func (w *Worker) markReady() {
	w.readyOnce.Do(func() { close(w.ready) })
}

// Register binds a handler to a job type.
func (w *Worker) Register(jobType string, h Handler) {
	w.handlers[jobType] = h
}

// Run starts the consumers and the delayed-job promoter and blocks until ctx is cancelled
// or one of them fails. Jobs in flight at cancellation are finished and settled
// before Run returns.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("worker started",
		zap.Int("concurrency", w.cfg.Concurrency),
		zap.Int("max_retries", w.cfg.MaxRetries),
		zap.Duration("retry_delay", w.cfg.RetryDelay),
	)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < w.cfg.Concurrency; i++ {
		id := i
		g.Go(func() error { return w.consume(ctx, id) })
	}
	g.Go(func() error { return w.promote(ctx) })

	err := g.Wait()
	w.log.Info("worker stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *Worker) consume(ctx context.Context, id int) error {
	log := w.log.With(zap.Int("consumer", id))
	for {
		if ctx.Err() != nil {
			return nil
		}

		job, err := w.queue.Dequeue(ctx, w.cfg.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn("dequeue failed", zap.Error(err))
			if !sleep(ctx, time.Second) {
				return nil
			}
			continue
		}
		if job == nil {
			continue
		}

		w.Process(ctx, *job)
	}
}

func (w *Worker) promote(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.PromoteInterval)
	defer ticker.Stop()

	for {
		if _, err := w.queue.Promote(ctx); err != nil {
			if ctx.Err() == nil {
				w.log.Warn("promote failed", zap.Error(err))
			}
		} else {
			w.markReady()
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// jobContext keeps a running job alive through shutdown for at most DrainTimeout.
func (w *Worker) jobContext(ctx context.Context) (context.Context, context.CancelFunc) {
	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(ctx, func() {
		t := time.NewTimer(w.cfg.DrainTimeout)
		defer t.Stop()
		select {
		case <-t.C:
			cancel()
		case <-jobCtx.Done():
		}
	})
	return jobCtx, func() {
		stop()
		cancel()
	}
}

// Process runs one job and settles it: success, retry later, or dead letter.
// Cancelling ctx does not abandon the job; see Config.DrainTimeout.
func (w *Worker) Process(ctx context.Context, job queue.Job) {
	ctx, cancel := w.jobContext(context.WithValue(ctx, logger.JobIDKey, job.ID))
	defer cancel()
	log := logger.WithContext(ctx, w.log).With(zap.String("type", job.Type), zap.Int("attempt", job.Attempts+1))

	// Settling must outlive the drain deadline.
	settle := context.WithoutCancel(ctx)

	h, ok := w.handlers[job.Type]
	if !ok {
		metrics.JobsProcessed.WithLabelValues(job.Type, metrics.OutcomeDeadLetter).Inc()
		w.deadLetter(settle, log, job, fmt.Errorf("%w: %s", ErrUnknownJobType, job.Type))
		return
	}

	start := w.now()
	err := run(ctx, h, job.Payload)
	metrics.JobDuration.WithLabelValues(job.Type).Observe(w.now().Sub(start).Seconds())

	if err == nil {
		metrics.JobsProcessed.WithLabelValues(job.Type, metrics.OutcomeSuccess).Inc()
		log.Debug("job done")
		return
	}

	var perm *permanentError
	if errors.As(err, &perm) || job.Attempts >= w.cfg.MaxRetries {
		metrics.JobsProcessed.WithLabelValues(job.Type, metrics.OutcomeDeadLetter).Inc()
		job.Attempts++
		w.deadLetter(settle, log, job, err)
		return
	}

	delay := w.cfg.RetryDelay << job.Attempts
	job.Attempts++
	if sErr := w.queue.Schedule(settle, job, w.now().Add(delay)); sErr != nil {
		metrics.JobsProcessed.WithLabelValues(job.Type, metrics.OutcomeFailure).Inc()
		log.Error("failed to schedule retry, job lost", zap.Error(err), zap.NamedError("schedule_error", sErr))
		return
	}

	metrics.JobsProcessed.WithLabelValues(job.Type, metrics.OutcomeRetry).Inc()
	log.Warn("job failed, retrying", zap.Error(err), zap.Duration("delay", delay))
}

func (w *Worker) deadLetter(ctx context.Context, log *zap.Logger, job queue.Job, reason error) {
	if err := w.queue.DeadLetter(ctx, job, reason); err != nil {
		log.Error("failed to dead-letter job", zap.Error(err), zap.NamedError("reason", reason))
	}
}

// run calls h and turns a panic into an error.
func run(ctx context.Context, h Handler, payload json.RawMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return h(ctx, payload)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
