package middleware

import (
	"referral_system/internal/metrics" // Prometheus collectors
	"time"                             // Request timing

	"github.com/gin-gonic/gin" // Gin web framework
)

// MetricsMiddleware records count and latency of every request by route template
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now() // Request start
		c.Next()            // Run the handler chain
		metrics.RecordRequest(c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
