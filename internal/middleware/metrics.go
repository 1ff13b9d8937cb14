package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/builders-garden/zk-wormhole-monorepo/internal/metrics"
)

// RequestMetrics records request counts and latency by route template
func RequestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
