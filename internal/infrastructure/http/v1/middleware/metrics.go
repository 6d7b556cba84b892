package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"protocolo/internal/infrastructure/metrics"
)

// Metrics middleware records request counts and latency.
// Uses the route template (not the raw path) to keep label cardinality low.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		metrics.HTTPRequests.WithLabelValues(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
		metrics.HTTPDuration.WithLabelValues(c.Request.Method, path).
			Observe(time.Since(start).Seconds())
	}
}
