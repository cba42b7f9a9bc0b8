package bootstrap

import (
	"context"
	"time"

	"go.uber.org/zap"

	"treko/pkg/metrics"
)

// Sequencer runs stages in order and stops at the first failure.
type Sequencer struct {
	stages   []Stage
	reporter Reporter
	log      *zap.Logger
}

// NewSequencer creates a Sequencer. A nil reporter discards progress output.
func NewSequencer(stages []Stage, reporter Reporter, log *zap.Logger) *Sequencer {
	if reporter == nil {
		reporter = nopReporter{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Sequencer{stages: stages, reporter: reporter, log: log}
}

// Stages returns the stage names in execution order.
func (s *Sequencer) Stages() []string {
	names := make([]string, len(s.stages))
	for i, st := range s.stages {
		names[i] = st.Name()
	}
	return names
}

// Run executes every stage. The returned error, if any, is a *StageError.
func (s *Sequencer) Run(ctx context.Context) error {
	for _, st := range s.stages {
		name := st.Name()
		s.reporter.StageStarted(name)
		s.log.Info("stage started", zap.String("stage", name))

		start := time.Now()
		err := st.Run(ctx)
		elapsed := time.Since(start)

		if err != nil {
			metrics.BootstrapStageDuration.WithLabelValues(name, "failure").Observe(elapsed.Seconds())
			s.reporter.StageFailed(name, err)
			s.log.Error("stage failed",
				zap.String("stage", name),
				zap.String("kind", string(st.Kind())),
				zap.Duration("elapsed", elapsed),
				zap.Error(err),
			)
			return &StageError{Stage: name, Kind: st.Kind(), Err: err}
		}

		metrics.BootstrapStageDuration.WithLabelValues(name, "success").Observe(elapsed.Seconds())
		s.reporter.StageFinished(name, elapsed)
		s.log.Info("stage finished", zap.String("stage", name), zap.Duration("elapsed", elapsed))
	}
	return nil
}
