package bootstrap

import (
	"context"
	"errors"
	"fmt"
)

// Stage names as they appear in progress output and metrics
const (
	StageWaitForDB     = "wait-for-db"
	StageMigrate       = "migrate"
	StageCollectStatic = "collectstatic"
	StageLaunch        = "launch"
)

// Kind classifies why startup failed
type Kind string

const (
	KindDependencyUnavailable  Kind = "dependency_unavailable"
	KindMigrationFailed        Kind = "migration_failed"
	KindStaticCollectionFailed Kind = "static_collection_failed"
	KindLaunchFailed           Kind = "launch_failed"
)

// ErrDependencyUnavailable is wrapped by the readiness gate when it gives up.
var ErrDependencyUnavailable = errors.New("dependency unavailable")

// Stage is one step of the startup sequence.
type Stage interface {
	Name() string
	Kind() Kind
	Run(ctx context.Context) error
}

// StageError reports which stage aborted startup.
type StageError struct {
	Stage string
	Kind  Kind
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed (%s): %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// ExitCode maps the result of a sequence onto a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}

type funcStage struct {
	name string
	kind Kind
	fn   func(ctx context.Context) error
}

// NewStage wraps fn as a Stage.
func NewStage(name string, kind Kind, fn func(ctx context.Context) error) Stage {
	return &funcStage{name: name, kind: kind, fn: fn}
}

func (s *funcStage) Name() string { return s.name }

func (s *funcStage) Kind() Kind { return s.kind }

func (s *funcStage) Run(ctx context.Context) error { return s.fn(ctx) }
