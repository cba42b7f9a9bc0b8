package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	"treko/pkg/metrics"
)

// Concurrency bounds the number of requests running handlers at once.
// A request waits for a slot until its context is done and is then rejected with 503.
func Concurrency(maxInFlight int) gin.HandlerFunc {
	if maxInFlight <= 0 {
		maxInFlight = 1
	}
	sem := semaphore.NewWeighted(int64(maxInFlight))

	return func(c *gin.Context) {
		if err := sem.Acquire(c.Request.Context(), 1); err != nil {
			metrics.HTTPRejected.WithLabelValues("pool_exhausted").Inc()
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error":   "service_unavailable",
				"message": "server is busy, try again later",
			})
			return
		}
		metrics.HTTPInFlight.Inc()
		defer func() {
			metrics.HTTPInFlight.Dec()
			sem.Release(1)
		}()

		c.Next()
	}
}

const timeoutBody = `{"error":"timeout","message":"request timed out"}`

// Timeout wraps h so every request runs under a deadline of d. When the deadline
// passes the client gets a 503 and the request context is cancelled.
func Timeout(h http.Handler, d time.Duration) http.Handler {
	if d <= 0 {
		return h
	}
	return http.TimeoutHandler(h, d, timeoutBody)
}
