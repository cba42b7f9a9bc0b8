package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"go.uber.org/zap"
)

// Result describes the schema version before and after a run.
type Result struct {
	From  uint
	To    uint
	Dirty bool
}

// Applied reports whether the run changed the schema version.
func (r Result) Applied() bool {
	return r.From != r.To
}

func (r Result) String() string {
	if !r.Applied() {
		return fmt.Sprintf("no migrations to apply (version %d)", r.To)
	}
	return fmt.Sprintf("migrated from version %d to %d", r.From, r.To)
}

// Runner applies SQL migrations from an fs.FS to a PostgreSQL database.
type Runner struct {
	m   *migrate.Migrate
	db  *sql.DB
	log *zap.Logger
}

// New opens databaseURL and prepares source for migration.
// source must hold NNN_name.up.sql / NNN_name.down.sql files at its root.
func New(databaseURL string, source fs.FS, log *zap.Logger) (*Runner, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	src, err := iofs.New(source, ".")
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to read migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create migration instance: %w", err)
	}
	m.Log = &zapMigrateLogger{log: log.Named("migrate")}

	return &Runner{m: m, db: db, log: log}, nil
}

// Up applies every pending migration. An up-to-date schema is not an error.
// A failed migration leaves the version dirty; there is no automatic rollback.
func (r *Runner) Up(ctx context.Context) (Result, error) {
	from, _, err := r.Version()
	if err != nil {
		return Result{}, err
	}

	stop := r.stopOnCancel(ctx)
	err = r.m.Up()
	stop()

	if errors.Is(err, migrate.ErrNoChange) {
		r.log.Info("no migrations to apply (database up-to-date)", zap.Uint("version", from))
		return Result{From: from, To: from}, nil
	}
	if err != nil {
		to, dirty, _ := r.Version()
		return Result{From: from, To: to, Dirty: dirty}, fmt.Errorf("failed to run migrations: %w", err)
	}

	to, dirty, err := r.Version()
	if err != nil {
		return Result{From: from}, err
	}
	r.log.Info("applied migrations successfully", zap.Uint("from", from), zap.Uint("to", to))
	return Result{From: from, To: to, Dirty: dirty}, nil
}

// Down rolls back steps migrations, or all of them when steps <= 0.
func (r *Runner) Down(ctx context.Context, steps int) (Result, error) {
	from, _, err := r.Version()
	if err != nil {
		return Result{}, err
	}

	stop := r.stopOnCancel(ctx)
	if steps <= 0 {
		err = r.m.Down()
	} else {
		err = r.m.Steps(-steps)
	}
	stop()

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return Result{From: from}, fmt.Errorf("failed to roll back migrations: %w", err)
	}

	to, dirty, err := r.Version()
	if err != nil {
		return Result{From: from}, err
	}
	return Result{From: from, To: to, Dirty: dirty}, nil
}

// Version returns the current schema version; 0 means nothing was applied yet.
func (r *Runner) Version() (uint, bool, error) {
	v, dirty, err := r.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, dirty, nil
}

// Force marks version as applied and clears the dirty flag without running SQL.
func (r *Runner) Force(version int) error {
	if err := r.m.Force(version); err != nil {
		return fmt.Errorf("failed to force version %d: %w", version, err)
	}
	r.log.Warn("schema version forced", zap.Int("version", version))
	return nil
}

// Close releases the source and the database handle.
func (r *Runner) Close() error {
	srcErr, dbErr := r.m.Close()
	if srcErr != nil {
		r.log.Warn("failed to close migration source", zap.Error(srcErr))
	}
	if dbErr != nil {
		r.log.Warn("failed to close migration database", zap.Error(dbErr))
	}
	return r.db.Close()
}

// stopOnCancel asks golang-migrate to stop after the current migration once ctx is done.
func (r *Runner) stopOnCancel(ctx context.Context) func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			select {
			case r.m.GracefulStop <- true:
			default:
			}
		case <-done:
		}
	}()
	return func() { close(done) }
}

type zapMigrateLogger struct {
	log *zap.Logger
}

func (l *zapMigrateLogger) Printf(format string, v ...interface{}) {
	l.log.Sugar().Infof(format, v...)
}

func (l *zapMigrateLogger) Verbose() bool {
	return l.log.Core().Enabled(zap.DebugLevel)
}
