// Package middleware provides HTTP middleware for cross-cutting concerns.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aavail/revenue-forecast/internal/logging"
)

// RequestLogging creates a Gin middleware that logs one structured line per
// request. Liveness probes are skipped to keep the logs readable.
func RequestLogging(log logging.Logger) gin.HandlerFunc {
	reqLog := log.WithComponent("http")
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/health" || path == "/ping" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		fields := map[string]interface{}{
			"method":     c.Request.Method,
			"path":       path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"size":       c.Writer.Size(),
			"client_ip":  c.ClientIP(),
		}
		if route := c.FullPath(); route != "" {
			fields["route"] = route
		}

		entry := reqLog.WithFields(fields)
		if c.Writer.Status() >= 500 {
			entry.Error("Request failed")
		} else {
			entry.Info("Request handled")
		}
	}
}
