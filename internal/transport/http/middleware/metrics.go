package middleware

import (
	"strconv"
	"time"

	"github.com/ErlanBelekov/warranty-register/internal/domain"
	"github.com/ErlanBelekov/warranty-register/internal/metrics"
	"github.com/gin-gonic/gin"
)

// Metrics records latency per route and a request count that also carries
// the principal kind a gate resolved, or "anonymous".
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		principal := "anonymous"
		if p, ok := domain.PrincipalFromContext(c.Request.Context()); ok {
			principal = string(p.Kind)
		}

		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status, principal).Inc()
	}
}
