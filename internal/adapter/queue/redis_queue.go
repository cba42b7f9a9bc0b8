package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"treko/pkg/metrics"
)

// Job is one unit of background work as stored in Redis.
type Job struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	Attempts   int             `json:"attempts"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// DeadJob is a job that will not be retried, with the reason it failed.
type DeadJob struct {
	Job
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}

// Stats reports queue lengths.
type Stats struct {
	Ready   int64
	Delayed int64
	Dead    int64
}

// promoteBatch bounds how many due jobs one Promote call moves.
const promoteBatch = 100

// Moves due members of the delayed set onto the ready list atomically.
var promoteScript = redis.NewScript(`
	local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
	for _, job in ipairs(due) do
		redis.call('ZREM', KEYS[1], job)
		redis.call('LPUSH', KEYS[2], job)
	end
	return #due
`)

// RedisQueue is a FIFO job queue on a Redis list, with a sorted set for
// delayed retries and a list for dead letters.
type RedisQueue struct {
	client *redis.Client
	name   string
	log    *zap.Logger
	now    func() time.Time
}

// NewRedisQueue creates a queue whose keys are prefixed with name.
func NewRedisQueue(client *redis.Client, name string, log *zap.Logger) *RedisQueue {
	return &RedisQueue{
		client: client,
		name:   name,
		log:    log,
		now:    time.Now,
	}
}

func (q *RedisQueue) readyKey() string   { return q.name }
func (q *RedisQueue) delayedKey() string { return q.name + ":delayed" }
func (q *RedisQueue) deadKey() string    { return q.name + ":dead" }

// Enqueue wraps payload in a new job and pushes it onto the ready list.
func (q *RedisQueue) Enqueue(ctx context.Context, jobType string, payload any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal job payload: %w", err)
	}

	job := Job{
		ID:         uuid.NewString(),
		Type:       jobType,
		Payload:    raw,
		EnqueuedAt: q.now().UTC(),
	}
	if err := q.Push(ctx, job); err != nil {
		return "", err
	}

	metrics.JobsEnqueued.WithLabelValues(jobType).Inc()
	q.log.Debug("job enqueued", zap.String("job_id", job.ID), zap.String("type", jobType))
	return job.ID, nil
}

// Push appends an already built job to the ready list.
func (q *RedisQueue) Push(ctx context.Context, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, q.readyKey(), data).Err(); err != nil {
		return fmt.Errorf("failed to push job: %w", err)
	}
	return nil
}

// Dequeue blocks up to timeout for the oldest ready job.
// It returns nil, nil when the timeout passes without a job.
func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	res, err := q.client.BRPop(ctx, timeout, q.readyKey()).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pop job: %w", err)
	}

	// res is [key, value]
	var job Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		q.log.Error("dropping malformed job", zap.String("raw", res[1]), zap.Error(err))
		raw, _ := json.Marshal(res[1])
		dead := DeadJob{Job: Job{Payload: raw}, Error: err.Error(), FailedAt: q.now().UTC()}
		if data, mErr := json.Marshal(dead); mErr == nil {
			_ = q.client.LPush(ctx, q.deadKey(), data).Err()
		}
		return nil, fmt.Errorf("failed to decode job: %w", err)
	}
	return &job, nil
}

// Schedule stores job in the delayed set until at.
func (q *RedisQueue) Schedule(ctx context.Context, job Job, at time.Time) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	err = q.client.ZAdd(ctx, q.delayedKey(), redis.Z{Score: float64(at.UnixMilli()), Member: data}).Err()
	if err != nil {
		return fmt.Errorf("failed to schedule job: %w", err)
	}
	return nil
}

// Promote moves delayed jobs that are due onto the ready list and reports how many moved.
func (q *RedisQueue) Promote(ctx context.Context) (int, error) {
	now := strconv.FormatInt(q.now().UnixMilli(), 10)
	n, err := promoteScript.Run(ctx, q.client, []string{q.delayedKey(), q.readyKey()}, now, promoteBatch).Int()
	if err != nil {
		return 0, fmt.Errorf("failed to promote delayed jobs: %w", err)
	}
	if n > 0 {
		q.log.Debug("promoted delayed jobs", zap.Int("count", n))
	}
	return n, nil
}

// DeadLetter parks job on the dead-letter list with the reason it failed.
func (q *RedisQueue) DeadLetter(ctx context.Context, job Job, reason error) error {
	dead := DeadJob{Job: job, FailedAt: q.now().UTC()}
	if reason != nil {
		dead.Error = reason.Error()
	}

	data, err := json.Marshal(dead)
	if err != nil {
		return fmt.Errorf("failed to marshal dead job: %w", err)
	}
	if err := q.client.LPush(ctx, q.deadKey(), data).Err(); err != nil {
		return fmt.Errorf("failed to dead-letter job: %w", err)
	}

	q.log.Warn("job dead-lettered",
		zap.String("job_id", job.ID),
		zap.String("type", job.Type),
		zap.Int("attempts", job.Attempts),
		zap.String("error", dead.Error),
	)
	return nil
}

// DeadLetters returns up to limit dead jobs, most recent first.
func (q *RedisQueue) DeadLetters(ctx context.Context, limit int64) ([]DeadJob, error) {
	raw, err := q.client.LRange(ctx, q.deadKey(), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read dead letters: %w", err)
	}

	jobs := make([]DeadJob, 0, len(raw))
	for _, r := range raw {
		var d DeadJob
		if err := json.Unmarshal([]byte(r), &d); err != nil {
			continue
		}
		jobs = append(jobs, d)
	}
	return jobs, nil
}

// Stats returns the current queue lengths.
func (q *RedisQueue) Stats(ctx context.Context) (Stats, error) {
	pipe := q.client.Pipeline()
	ready := pipe.LLen(ctx, q.readyKey())
	delayed := pipe.ZCard(ctx, q.delayedKey())
	dead := pipe.LLen(ctx, q.deadKey())
	if _, err := pipe.Exec(ctx); err != nil {
		return Stats{}, fmt.Errorf("failed to read queue stats: %w", err)
	}
	return Stats{Ready: ready.Val(), Delayed: delayed.Val(), Dead: dead.Val()}, nil
}
