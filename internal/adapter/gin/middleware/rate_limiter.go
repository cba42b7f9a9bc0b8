package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"treko/pkg/metrics"
)

// tokenBucket is a token bucket kept in a Redis hash: {last_refill, tokens}.
// now is passed in milliseconds so every instance shares one clock source per call.
var tokenBucket = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local bucket = redis.call('HMGET', key, 'last_refill', 'tokens')
local last_refill = tonumber(bucket[1]) or now
local tokens = tonumber(bucket[2]) or capacity

local elapsed = math.max(0, now - last_refill) / 1000
tokens = math.min(capacity, tokens + elapsed * rate)

local allowed = 0
if tokens >= 1 then
	tokens = tokens - 1
	allowed = 1
end

redis.call('HSET', key, 'last_refill', now, 'tokens', tokens)
redis.call('EXPIRE', key, ttl)
return allowed
`)

// RateLimiterConfig holds configuration for the rate limiter.
type RateLimiterConfig struct {
	RequestsPerSecond float64
	BurstCapacity     int
	Enabled           bool
}

// RateLimiter limits requests per client IP and route. Buckets live in Redis so
// every web process shares them; when Redis is absent or failing, each process
// falls back to its own in-memory limiters.
type RateLimiter struct {
	client *redis.Client
	config RateLimiterConfig
	log    *zap.Logger
	now    func() time.Time

	mu    sync.Mutex
	local map[string]*rate.Limiter
}

// NewRateLimiter creates a rate limiter. client may be nil.
func NewRateLimiter(client *redis.Client, config RateLimiterConfig, log *zap.Logger) *RateLimiter {
	if config.BurstCapacity <= 0 {
		config.BurstCapacity = 1
	}
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = 1
	}
	return &RateLimiter{
		client: client,
		config: config,
		log:    log,
		now:    time.Now,
		local:  make(map[string]*rate.Limiter),
	}
}

// Handler returns the gin middleware.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl == nil || !rl.config.Enabled {
			c.Next()
			return
		}

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		key := fmt.Sprintf("ratelimit:tb:%s:%s:%s", c.Request.Method, route, c.ClientIP())

		if !rl.allow(c, key) {
			metrics.HTTPRejected.WithLabelValues("rate_limited").Inc()
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate_limit_exceeded",
				"message": fmt.Sprintf("Rate limit exceeded: %.2f requests/second (burst capacity: %d)",
					rl.config.RequestsPerSecond, rl.config.BurstCapacity),
			})
			return
		}

		c.Next()
	}
}

func (rl *RateLimiter) allow(c *gin.Context, key string) bool {
	if rl.client == nil {
		return rl.allowLocal(key)
	}

	ttl := int(float64(rl.config.BurstCapacity)/rl.config.RequestsPerSecond) + 1
	allowed, err := tokenBucket.Run(c.Request.Context(), rl.client, []string{key},
		rl.config.RequestsPerSecond,
		rl.config.BurstCapacity,
		strconv.FormatInt(rl.now().UnixMilli(), 10),
		ttl,
	).Int64()
	if err != nil {
		rl.log.Warn("rate limiter redis error, using local limiter",
			zap.String("key", key),
			zap.Error(err),
		)
		return rl.allowLocal(key)
	}
	return allowed == 1
}

func (rl *RateLimiter) allowLocal(key string) bool {
	rl.mu.Lock()
	limiter, ok := rl.local[key]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.BurstCapacity)
		rl.local[key] = limiter
	}
	rl.mu.Unlock()

	return limiter.AllowN(rl.now(), 1)
}
