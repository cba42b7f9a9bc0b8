package cached

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"treko/internal/adapter/cache"
	domain "treko/internal/domain/project"
	"treko/internal/usecase/project"
)

// TaskRepository implements project.Repository with cache-aside task reads.
// Everything except task reads and writes passes straight through to the database repository.
// Tasks of a deleted project stay cached until their TTL runs out; the usecase
// resolves the project on every task read and reports them as not found.
type TaskRepository struct {
	project.Repository
	cache cache.TaskCache
	log   *zap.Logger
	group singleflight.Group
}

// NewTaskRepository creates a new instance of TaskRepository.
func NewTaskRepository(dbRepo project.Repository, cache cache.TaskCache, log *zap.Logger) *TaskRepository {
	return &TaskRepository{
		Repository: dbRepo,
		cache:      cache,
		log:        log,
	}
}

// GetTask retrieves a task by ID using the cache-aside pattern.
func (r *TaskRepository) GetTask(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	if r.cache != nil {
		cached, err := r.cache.Get(ctx, id)
		if err != nil {
			r.log.Warn("cache get error, falling back to database", zap.String("id", id.String()), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	// Cache miss: one request per key hits the database
	result, err, _ := r.group.Do(id.String(), func() (any, error) {
		if r.cache != nil {
			cached, err := r.cache.Get(ctx, id)
			if err == nil && cached != nil {
				return cached, nil
			}
		}

		t, err := r.Repository.GetTask(ctx, id)
		if err != nil {
			return nil, err
		}

		if r.cache != nil {
			if err := r.cache.Set(ctx, t); err != nil {
				r.log.Warn("failed to cache task", zap.String("id", id.String()), zap.Error(err))
			}
		}
		return t, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(*domain.Task), nil
}

// UpdateTask updates the task in the database and invalidates the cache.
func (r *TaskRepository) UpdateTask(ctx context.Context, t *domain.Task) error {
	if err := r.Repository.UpdateTask(ctx, t); err != nil {
		return err
	}
	r.invalidate(ctx, t.ID)
	return nil
}

// DeleteTask deletes the task from the database and invalidates the cache.
func (r *TaskRepository) DeleteTask(ctx context.Context, id uuid.UUID) error {
	if err := r.Repository.DeleteTask(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *TaskRepository) invalidate(ctx context.Context, id uuid.UUID) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Delete(ctx, id); err != nil {
		r.log.Warn("failed to invalidate cached task", zap.String("id", id.String()), zap.Error(err))
	}
}
