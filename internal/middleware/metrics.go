package middleware

import (
	"strconv"
	"time"

	"qist/internal/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics records request latency by route template.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status()/100) + "xx"
		metrics.ObserveRequest(c.Request.Method, route, status, start)
	}
}
