package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ListenAddr is the address the web entrypoint binds to. It is not configurable.
const ListenAddr = "0.0.0.0:8000"

// Server pool defaults used when WORKERS, THREADS or TIMEOUT are unset or invalid.
const (
	DefaultWorkers = 3
	DefaultThreads = 3
	DefaultTimeout = 60
)

// Config holds all configuration for the application
type Config struct {
	App       AppConfig
	Server    ServerConfig
	DB        DatabaseConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Auth      AuthConfig
	Storage   StorageConfig
	Worker    WorkerConfig
	Admin     AdminConfig
	Logger    LoggerConfig
}

// AppConfig holds process-wide settings
type AppConfig struct {
	Env                    string   `mapstructure:"APP_ENV"`
	ShutdownTimeoutSeconds int      `mapstructure:"SHUTDOWN_TIMEOUT_SECONDS"`
	StaticRoot             string   `mapstructure:"STATIC_ROOT"`
	StaticDirs             []string `mapstructure:"STATICFILES_DIRS"`
	MigrationsDir          string   `mapstructure:"MIGRATIONS_DIR"`
}

// ServerConfig describes the serving pool. Workers*Threads bounds in-flight requests.
type ServerConfig struct {
	Workers        int `mapstructure:"WORKERS"`
	Threads        int `mapstructure:"THREADS"`
	TimeoutSeconds int `mapstructure:"TIMEOUT"`
}

// DatabaseConfig holds configuration for the database
type DatabaseConfig struct {
	Host     string `mapstructure:"DB_HOST"`
	Port     string `mapstructure:"DB_PORT"`
	User     string `mapstructure:"DB_USER"`
	Password string `mapstructure:"DB_PASSWORD"`
	Name     string `mapstructure:"DB_NAME"`
	SSLMode  string `mapstructure:"DB_SSLMODE"`

	MaxOpenConns    int `mapstructure:"DB_MAX_OPEN_CONNS"`
	MaxIdleConns    int `mapstructure:"DB_MAX_IDLE_CONNS"`
	ConnMaxLifetime int `mapstructure:"DB_CONN_MAX_LIFETIME"`
	ConnMaxIdleTime int `mapstructure:"DB_CONN_MAX_IDLE_TIME"`

	WaitTimeoutSeconds    int     `mapstructure:"DB_WAIT_TIMEOUT"`
	WaitIntervalSeconds   float64 `mapstructure:"DB_WAIT_INTERVAL"`
	ConnectTimeoutSeconds int     `mapstructure:"DB_CONNECT_TIMEOUT"`
}

// RedisConfig holds configuration for Redis (cache, rate limiting, job queue)
type RedisConfig struct {
	Host        string `mapstructure:"REDIS_HOST"`
	Port        string `mapstructure:"REDIS_PORT"`
	Password    string `mapstructure:"REDIS_PASSWORD"`
	DB          int    `mapstructure:"REDIS_DB"`
	MaxRetries  int    `mapstructure:"REDIS_MAX_RETRIES"`
	PoolSize    int    `mapstructure:"REDIS_POOL_SIZE"`
	MinIdleConn int    `mapstructure:"REDIS_MIN_IDLE_CONN"`
	CacheTTL    int    `mapstructure:"REDIS_CACHE_TTL"`
}

// RateLimitConfig holds configuration for the HTTP rate limiter
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"RATE_LIMIT_ENABLED"`
	RequestsPerSecond float64 `mapstructure:"RATE_LIMIT_RPS"`
	BurstCapacity     int     `mapstructure:"RATE_LIMIT_BURST"`
}

// AuthConfig holds JWT and password hashing settings
type AuthConfig struct {
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	AccessTTLMinutes  int    `mapstructure:"JWT_ACCESS_TTL_MINUTES"`
	RefreshTTLMinutes int    `mapstructure:"JWT_REFRESH_TTL_MINUTES"`
	BcryptCost        int    `mapstructure:"BCRYPT_COST"`
}

// StorageConfig holds S3 settings used to fetch uploaded media
type StorageConfig struct {
	AccessKeyID     string `mapstructure:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `mapstructure:"AWS_SECRET_ACCESS_KEY"`
	Region          string `mapstructure:"AWS_S3_REGION_NAME"`
	Endpoint        string `mapstructure:"AWS_S3_ENDPOINT"`
}

// WorkerConfig holds background worker settings
type WorkerConfig struct {
	Concurrency       int    `mapstructure:"WORKER_CONCURRENCY"`
	MaxRetries        int    `mapstructure:"WORKER_MAX_RETRIES"`
	RetryDelaySeconds int    `mapstructure:"WORKER_RETRY_DELAY"`
	DrainSeconds      int    `mapstructure:"WORKER_DRAIN_TIMEOUT"`
	HealthAddr        string `mapstructure:"WORKER_HEALTH_ADDR"`
	Queue             string `mapstructure:"WORKER_QUEUE"`
}

// AdminConfig holds defaults for the createadmin command
type AdminConfig struct {
	Email    string `mapstructure:"ADMIN_EMAIL"`
	Name     string `mapstructure:"ADMIN_NAME"`
	Password string `mapstructure:"ADMIN_PASSWORD"`
}

// LoggerConfig holds configuration for the logger
type LoggerConfig struct {
	Level            string  `mapstructure:"LOG_LEVEL"`
	Format           string  `mapstructure:"LOG_FORMAT"`
	OutputPath       string  `mapstructure:"LOG_OUTPUT_PATH"`
	SlowQuerySeconds float64 `mapstructure:"LOG_SLOW_QUERY_SECONDS"`
	EnableSampling   bool    `mapstructure:"LOG_ENABLE_SAMPLING"`
	ServiceName      string  `mapstructure:"SERVICE_NAME"`
	ServiceVersion   string  `mapstructure:"SERVICE_VERSION"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	v.AddConfigPath(path)
	v.SetConfigName("app") // Look for app.env
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is okay if we have env vars
	}

	var config Config

	config.App.Env = v.GetString("APP_ENV")
	config.App.ShutdownTimeoutSeconds = v.GetInt("SHUTDOWN_TIMEOUT_SECONDS")
	config.App.StaticRoot = v.GetString("STATIC_ROOT")
	config.App.StaticDirs = splitList(v.GetString("STATICFILES_DIRS"))
	config.App.MigrationsDir = v.GetString("MIGRATIONS_DIR")

	config.Server.Workers = positiveOr(v.GetString("WORKERS"), DefaultWorkers)
	config.Server.Threads = positiveOr(v.GetString("THREADS"), DefaultThreads)
	config.Server.TimeoutSeconds = positiveOr(v.GetString("TIMEOUT"), DefaultTimeout)

	config.DB.Host = v.GetString("DB_HOST")
	config.DB.Port = v.GetString("DB_PORT")
	config.DB.User = v.GetString("DB_USER")
	config.DB.Password = v.GetString("DB_PASSWORD")
	config.DB.Name = v.GetString("DB_NAME")
	config.DB.SSLMode = v.GetString("DB_SSLMODE")
	config.DB.MaxOpenConns = v.GetInt("DB_MAX_OPEN_CONNS")
	config.DB.MaxIdleConns = v.GetInt("DB_MAX_IDLE_CONNS")
	config.DB.ConnMaxLifetime = v.GetInt("DB_CONN_MAX_LIFETIME")
	config.DB.ConnMaxIdleTime = v.GetInt("DB_CONN_MAX_IDLE_TIME")
	config.DB.WaitTimeoutSeconds = v.GetInt("DB_WAIT_TIMEOUT")
	config.DB.WaitIntervalSeconds = v.GetFloat64("DB_WAIT_INTERVAL")
	config.DB.ConnectTimeoutSeconds = v.GetInt("DB_CONNECT_TIMEOUT")

	config.Redis.Host = v.GetString("REDIS_HOST")
	config.Redis.Port = v.GetString("REDIS_PORT")
	config.Redis.Password = v.GetString("REDIS_PASSWORD")
	config.Redis.DB = v.GetInt("REDIS_DB")
	config.Redis.MaxRetries = v.GetInt("REDIS_MAX_RETRIES")
	config.Redis.PoolSize = v.GetInt("REDIS_POOL_SIZE")
	config.Redis.MinIdleConn = v.GetInt("REDIS_MIN_IDLE_CONN")
	config.Redis.CacheTTL = v.GetInt("REDIS_CACHE_TTL")

	config.RateLimit.Enabled = v.GetBool("RATE_LIMIT_ENABLED")
	config.RateLimit.RequestsPerSecond = v.GetFloat64("RATE_LIMIT_RPS")
	config.RateLimit.BurstCapacity = v.GetInt("RATE_LIMIT_BURST")

	config.Auth.JWTSecret = v.GetString("JWT_SECRET")
	config.Auth.AccessTTLMinutes = v.GetInt("JWT_ACCESS_TTL_MINUTES")
	config.Auth.RefreshTTLMinutes = v.GetInt("JWT_REFRESH_TTL_MINUTES")
	config.Auth.BcryptCost = v.GetInt("BCRYPT_COST")

	config.Storage.AccessKeyID = v.GetString("AWS_ACCESS_KEY_ID")
	config.Storage.SecretAccessKey = v.GetString("AWS_SECRET_ACCESS_KEY")
	config.Storage.Region = v.GetString("AWS_S3_REGION_NAME")
	config.Storage.Endpoint = v.GetString("AWS_S3_ENDPOINT")

	config.Worker.Concurrency = v.GetInt("WORKER_CONCURRENCY")
	config.Worker.MaxRetries = v.GetInt("WORKER_MAX_RETRIES")
	config.Worker.RetryDelaySeconds = v.GetInt("WORKER_RETRY_DELAY")
	config.Worker.DrainSeconds = v.GetInt("WORKER_DRAIN_TIMEOUT")
	config.Worker.HealthAddr = v.GetString("WORKER_HEALTH_ADDR")
	config.Worker.Queue = v.GetString("WORKER_QUEUE")

	config.Admin.Email = v.GetString("ADMIN_EMAIL")
	config.Admin.Name = v.GetString("ADMIN_NAME")
	config.Admin.Password = v.GetString("ADMIN_PASSWORD")

	config.Logger.Level = v.GetString("LOG_LEVEL")
	config.Logger.Format = v.GetString("LOG_FORMAT")
	config.Logger.OutputPath = v.GetString("LOG_OUTPUT_PATH")
	config.Logger.SlowQuerySeconds = v.GetFloat64("LOG_SLOW_QUERY_SECONDS")
	config.Logger.EnableSampling = v.GetBool("LOG_ENABLE_SAMPLING")
	config.Logger.ServiceName = v.GetString("SERVICE_NAME")
	config.Logger.ServiceVersion = v.GetString("SERVICE_VERSION")

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("SHUTDOWN_TIMEOUT_SECONDS", 10)
	v.SetDefault("STATIC_ROOT", "staticfiles")
	v.SetDefault("STATICFILES_DIRS", "")
	v.SetDefault("MIGRATIONS_DIR", "migrations")

	v.SetDefault("WORKERS", DefaultWorkers)
	v.SetDefault("THREADS", DefaultThreads)
	v.SetDefault("TIMEOUT", DefaultTimeout)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "treko")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", 3600)
	v.SetDefault("DB_CONN_MAX_IDLE_TIME", 600)
	v.SetDefault("DB_WAIT_TIMEOUT", 60)
	v.SetDefault("DB_WAIT_INTERVAL", 1)
	v.SetDefault("DB_CONNECT_TIMEOUT", 2)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_MAX_RETRIES", 3)
	v.SetDefault("REDIS_POOL_SIZE", 10)
	v.SetDefault("REDIS_MIN_IDLE_CONN", 2)
	v.SetDefault("REDIS_CACHE_TTL", 300)

	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_RPS", 10.0)
	v.SetDefault("RATE_LIMIT_BURST", 20)

	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ACCESS_TTL_MINUTES", 60)
	v.SetDefault("JWT_REFRESH_TTL_MINUTES", 7*24*60)
	v.SetDefault("BCRYPT_COST", 10)

	v.SetDefault("AWS_S3_REGION_NAME", "us-east-1")

	v.SetDefault("WORKER_CONCURRENCY", 2)
	v.SetDefault("WORKER_MAX_RETRIES", 3)
	v.SetDefault("WORKER_RETRY_DELAY", 5)
	v.SetDefault("WORKER_DRAIN_TIMEOUT", 30)
	v.SetDefault("WORKER_HEALTH_ADDR", ":8001")
	v.SetDefault("WORKER_QUEUE", "treko:jobs")

	v.SetDefault("ADMIN_NAME", "Superuser")

	// Logger defaults
	if v.GetString("APP_ENV") == "production" {
		v.SetDefault("LOG_LEVEL", "info")
		v.SetDefault("LOG_FORMAT", "json")
		v.SetDefault("LOG_ENABLE_SAMPLING", true)
	} else {
		v.SetDefault("LOG_LEVEL", "debug")
		v.SetDefault("LOG_FORMAT", "console")
		v.SetDefault("LOG_ENABLE_SAMPLING", false)
	}
	v.SetDefault("LOG_OUTPUT_PATH", "stdout")
	v.SetDefault("LOG_SLOW_QUERY_SECONDS", 0.2)
	v.SetDefault("SERVICE_NAME", "treko")
	v.SetDefault("SERVICE_VERSION", "1.0.0")
}

// Validate checks settings that cannot be defaulted safely.
func (c *Config) Validate() error {
	var problems []string

	if c.DB.Host == "" {
		problems = append(problems, "DB_HOST is required")
	}
	if c.DB.Name == "" {
		problems = append(problems, "DB_NAME is required")
	}
	if c.DB.WaitTimeoutSeconds <= 0 {
		problems = append(problems, "DB_WAIT_TIMEOUT must be positive")
	}
	if c.DB.WaitIntervalSeconds <= 0 {
		problems = append(problems, "DB_WAIT_INTERVAL must be positive")
	}
	if c.App.Env == "production" && c.Auth.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET is required in production")
	}
	if c.Worker.Concurrency <= 0 {
		problems = append(problems, "WORKER_CONCURRENCY must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// DSN returns the PostgreSQL Data Source Name
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode)
}

// URL returns the database address in URL form, as golang-migrate and pgx expect it.
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

// Address returns host:port for progress output. Credentials are never included.
func (c *DatabaseConfig) Address() string {
	return c.Host + ":" + c.Port
}

// WaitTimeout is the maximum time the readiness gate blocks.
func (c *DatabaseConfig) WaitTimeout() time.Duration {
	return time.Duration(c.WaitTimeoutSeconds) * time.Second
}

// WaitInterval is the fixed delay between readiness probes.
func (c *DatabaseConfig) WaitInterval() time.Duration {
	return time.Duration(c.WaitIntervalSeconds * float64(time.Second))
}

// ConnectTimeout bounds a single readiness probe.
func (c *DatabaseConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSeconds) * time.Second
}

// MaxInFlight is the number of requests the serving pool handles concurrently.
func (s ServerConfig) MaxInFlight() int {
	return s.Workers * s.Threads
}

// RequestTimeout bounds a single request.
func (s ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// positiveOr parses raw as a base-10 integer. Anything else, or a value below 1,
// yields fallback.
func positiveOr(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
