package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/linkpulse/linkpulse-backend/internal/pkg/logger"
)

type RequestLogMiddleware struct {
	log *logger.Logger
}

func NewRequestLogMiddleware(log *logger.Logger) *RequestLogMiddleware {
	return &RequestLogMiddleware{log: log.With("middleware", "RequestLog")}
}

// Handler logs each request with latency and status. Redirect traffic
// is high volume, so successes log at debug.
func (m *RequestLogMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		fields := []interface{}{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
		}
		if status >= 500 {
			m.log.Error("request failed", fields...)
		} else if status >= 400 {
			m.log.Warn("request rejected", fields...)
		} else {
			m.log.Debug("request served", fields...)
		}
	}
}
