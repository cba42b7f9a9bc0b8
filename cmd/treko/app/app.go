package app

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"go.uber.org/zap"

	"treko/internal/config"
	"treko/pkg/logger"
)

// App carries what every command needs before it touches any dependency.
type App struct {
	Config *config.Config
	Logger *zap.Logger
}

// New loads and validates configuration from configPath and builds a logger
// tagged with component. An invalid configuration fails here, before any
// command touches the database.
func New(configPath, component string) (*App, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l, err := initLogger(cfg, component)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return &App{Config: cfg, Logger: l}, nil
}

// Close flushes the logger.
func (a *App) Close() error {
	if err := a.Logger.Sync(); err != nil && !isConsoleSyncError(err) {
		return fmt.Errorf("logger sync: %w", err)
	}
	return nil
}

func initLogger(cfg *config.Config, component string) (*zap.Logger, error) {
	return logger.NewWithConfig(logger.Config{
		Level:            cfg.Logger.Level,
		Format:           cfg.Logger.Format,
		OutputPath:       cfg.Logger.OutputPath,
		SlowQuerySeconds: cfg.Logger.SlowQuerySeconds,
		EnableSampling:   cfg.Logger.EnableSampling,
		ServiceName:      cfg.Logger.ServiceName,
		ServiceVersion:   cfg.Logger.ServiceVersion,
		Environment:      cfg.App.Env,
		Component:        component,
	})
}

// Sync on stdout or stderr fails on most terminals and pipes; that is harmless.
func isConsoleSyncError(err error) bool {
	return errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY)
}

// ConfigPath returns CONFIG_PATH or the working directory.
func ConfigPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return "."
}
