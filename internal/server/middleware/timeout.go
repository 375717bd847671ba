package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestTimeout is the upper bound on an entire request, streaming included.
const RequestTimeout = 300 * time.Second

// Timeout puts a deadline on the request context so every downstream call,
// upstream HTTP included, is cancelled together. Handlers that hit the
// deadline before writing anything get a 408 here.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if ctx.Err() == context.DeadlineExceeded && !c.Writer.Written() {
			c.AbortWithStatusJSON(http.StatusRequestTimeout, gin.H{
				"type":    "error",
				"message": "request timed out",
			})
		}
	}
}
