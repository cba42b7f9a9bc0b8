package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	domain "treko/internal/domain/project"
	"treko/pkg/metrics"
)

const taskCacheName = "task"

// TaskCache defines the interface for task caching operations.
type TaskCache interface {
	// Get retrieves a task from cache by ID.
	// Returns nil if the task is not cached.
	Get(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// Set stores a task in cache with the configured TTL.
	Set(ctx context.Context, task *domain.Task) error

	// Delete removes tasks from cache.
	Delete(ctx context.Context, ids ...uuid.UUID) error
}

// RedisTaskCache implements TaskCache using Redis as the backing store.
type RedisTaskCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedisTaskCache creates a new Redis-backed task cache.
func NewRedisTaskCache(client *redis.Client, ttl time.Duration, log *zap.Logger) *RedisTaskCache {
	return &RedisTaskCache{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

func cacheKey(id uuid.UUID) string {
	return "task:" + id.String()
}

// Get retrieves a task from Redis.
func (c *RedisTaskCache) Get(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	data, err := c.client.Get(ctx, cacheKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheLookups.WithLabelValues(taskCacheName, "miss").Inc()
		c.log.Debug("cache miss", zap.String("task_id", id.String()))
		return nil, nil
	}
	if err != nil {
		metrics.CacheLookups.WithLabelValues(taskCacheName, "error").Inc()
		c.log.Error("failed to get from cache", zap.String("task_id", id.String()), zap.Error(err))
		return nil, err
	}

	var task domain.Task
	if err := json.Unmarshal(data, &task); err != nil {
		metrics.CacheLookups.WithLabelValues(taskCacheName, "error").Inc()
		c.log.Error("failed to unmarshal cached task", zap.String("task_id", id.String()), zap.Error(err))
		return nil, err
	}

	metrics.CacheLookups.WithLabelValues(taskCacheName, "hit").Inc()
	return &task, nil
}

// Set stores a task in Redis with TTL.
func (c *RedisTaskCache) Set(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return fmt.Errorf("cannot cache nil task")
	}

	data, err := json.Marshal(task)
	if err != nil {
		return err
	}

	if err := c.client.Set(ctx, cacheKey(task.ID), data, c.ttl).Err(); err != nil {
		c.log.Error("failed to set cache", zap.String("task_id", task.ID.String()), zap.Error(err))
		return err
	}

	c.log.Debug("cached task", zap.String("task_id", task.ID.String()), zap.Duration("ttl", c.ttl))
	return nil
}

// Delete removes tasks from Redis.
func (c *RedisTaskCache) Delete(ctx context.Context, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = cacheKey(id)
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.log.Error("failed to delete from cache", zap.Int("count", len(ids)), zap.Error(err))
		return err
	}
	return nil
}
