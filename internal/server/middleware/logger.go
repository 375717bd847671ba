package middleware

import (
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pluribus-ai/pluribus/internal/pkg/logger"
)

// requestCounter assigns process-unique request ids.
var requestCounter atomic.Uint64

// RequestLogger injects a request-scoped logger carrying a monotonically
// increasing request id, and records one access line per request with the
// response status and elapsed milliseconds.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := requestCounter.Add(1)
		method := c.Request.Method
		path := c.Request.URL.Path

		reqLogger := logger.With(
			zap.Uint64("request_id", requestID),
			zap.String("method", method),
			zap.String("path", path),
		)
		c.Request = c.Request.WithContext(logger.IntoContext(c.Request.Context(), reqLogger))

		c.Next()

		reqLogger.Info("done",
			zap.Int("status", c.Writer.Status()),
			zap.Int64("latency_ms", time.Since(start).Milliseconds()),
		)
	}
}
