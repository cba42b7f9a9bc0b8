package di

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"treko/cmd/treko/infrastructure"
	"treko/internal/adapter/cache"
	"treko/internal/adapter/db/postgres"
	"treko/internal/adapter/gin/handler"
	"treko/internal/adapter/gin/middleware"
	"treko/internal/adapter/gin/router"
	"treko/internal/adapter/queue"
	"treko/internal/adapter/repository/cached"
	"treko/internal/adapter/storage"
	"treko/internal/config"
	"treko/internal/usecase/account"
	"treko/internal/usecase/project"
	"treko/internal/usecase/tracking"
	"treko/internal/worker"
	"treko/pkg/auth"
	redisclient "treko/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	DB          *gorm.DB
	RedisClient *redisclient.Client
	Tokens      *auth.TokenManager
	Queue       *queue.RedisQueue

	AccountUC  *account.Service
	ProjectUC  *project.Service
	TrackingUC *tracking.Service

	RateLimiter *middleware.RateLimiter
}

// NewContainer creates and initializes all application dependencies
func NewContainer(ctx context.Context, cfg *config.Config, l *zap.Logger) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	db, err := infrastructure.NewDatabase(ctx, cfg, l)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	rdb, err := infrastructure.NewRedisClient(ctx, cfg, l)
	if err != nil {
		_ = infrastructure.CloseDatabase(db)
		return nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}

	c := &Container{Config: cfg, Logger: l, DB: db, RedisClient: rdb}
	if err := c.wire(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Container) wire() error {
	cfg, l := c.Config, c.Logger

	tokens, err := newTokenManager(cfg, l)
	if err != nil {
		return err
	}
	c.Tokens = tokens

	fetcher, err := storage.NewS3Fetcher(storage.Config{
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		Region:          cfg.Storage.Region,
		Endpoint:        cfg.Storage.Endpoint,
	}, l)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	c.Queue = queue.NewRedisQueue(c.RedisClient.Client, cfg.Worker.Queue, l)

	taskCache := cache.NewRedisTaskCache(
		c.RedisClient.Client,
		time.Duration(cfg.Redis.CacheTTL)*time.Second,
		l,
	)
	projectRepo := cached.NewTaskRepository(postgres.NewProjectRepoPG(c.DB, l), taskCache, l)

	c.AccountUC = NewAccountUsecase(cfg, c.DB, tokens, l)
	c.ProjectUC = project.New(projectRepo, l)
	c.TrackingUC = tracking.New(
		postgres.NewTrackingRepoPG(c.DB, l),
		c.Queue,
		fetcher,
		tracking.NewImageVerifier(),
		l,
	)

	c.RateLimiter = middleware.NewRateLimiter(
		c.RedisClient.Client,
		middleware.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstCapacity:     cfg.RateLimit.BurstCapacity,
			Enabled:           cfg.RateLimit.Enabled,
		},
		l,
	)
	return nil
}

// NewAccountUsecase builds the account service alone. Admin commands use it
// without Redis or storage being reachable, and pass nil tokens.
func NewAccountUsecase(cfg *config.Config, db *gorm.DB, tokens account.TokenIssuer, l *zap.Logger) *account.Service {
	return account.New(
		postgres.NewAccountRepoPG(db, l),
		tokens,
		auth.NewPasswordHasher(cfg.Auth.BcryptCost),
		l,
	)
}

// Router builds the HTTP handler tree.
func (c *Container) Router() *gin.Engine {
	l := c.Logger
	h := router.Handlers{
		Account:  handler.NewAccountHandler(c.AccountUC, l),
		Project:  handler.NewProjectHandler(c.ProjectUC, l),
		Tracking: handler.NewTrackingHandler(c.TrackingUC, l),
		Health: handler.NewHealthHandler(c.Config.Logger.ServiceName, map[string]handler.Check{
			"database": c.pingDatabase,
			"redis":    c.RedisClient.Ping,
		}, l),
	}

	return router.SetupRouter(h, router.Options{
		Tokens:      c.Tokens,
		RateLimiter: c.RateLimiter,
		MaxInFlight: c.Config.Server.MaxInFlight(),
		StaticRoot:  c.Config.App.StaticRoot,
		ReleaseMode: c.Config.App.Env == "production",
	}, l)
}

// Worker builds the job consumer with every handler registered.
func (c *Container) Worker() *worker.Worker {
	w := worker.New(c.Queue, worker.Config{
		Concurrency:  c.Config.Worker.Concurrency,
		MaxRetries:   c.Config.Worker.MaxRetries,
		RetryDelay:   time.Duration(c.Config.Worker.RetryDelaySeconds) * time.Second,
		DrainTimeout: time.Duration(c.Config.Worker.DrainSeconds) * time.Second,
	}, c.Logger)
	worker.RegisterTracking(w, c.TrackingUC)
	return w
}

func (c *Container) pingDatabase(ctx context.Context) error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes all resources held by the container
func (c *Container) Close() error {
	var errs []error

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}

	if c.DB != nil {
		if err := infrastructure.CloseDatabase(c.DB); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("container close errors: %v", errs)
	}

	return nil
}

// newTokenManager signs with JWT_SECRET. Outside production an unset secret is
// replaced by a random one, so tokens do not survive a restart.
func newTokenManager(cfg *config.Config, l *zap.Logger) (*auth.TokenManager, error) {
	secret := cfg.Auth.JWTSecret
	if secret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("failed to generate jwt secret: %w", err)
		}
		secret = hex.EncodeToString(buf)
		l.Warn("JWT_SECRET is not set; using an ephemeral secret",
			zap.String("environment", cfg.App.Env),
		)
	}

	tokens, err := auth.NewTokenManager(
		secret,
		time.Duration(cfg.Auth.AccessTTLMinutes)*time.Minute,
		time.Duration(cfg.Auth.RefreshTTLMinutes)*time.Minute,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token manager: %w", err)
	}
	return tokens, nil
}
