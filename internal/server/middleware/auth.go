// Package middleware holds the gin middleware stack: authentication,
// request logging, and the global request timeout.
package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Auth guards protected routes with the shared bearer secret. The secret is
// read from Authorization: Bearer or x-api-key, in that order, and compared
// in constant time.
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := ""
		if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
			provided = strings.TrimPrefix(h, "Bearer ")
		} else if k := c.GetHeader("x-api-key"); k != "" {
			provided = k
		}

		if provided == "" || !secureCompare(provided, secret) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"type":    "authentication_error",
				"message": "Invalid or missing secret",
			})
			return
		}
		c.Next()
	}
}

// secureCompare hashes both values before comparing so neither content nor
// length leaks through timing.
func secureCompare(a, b string) bool {
	ha := sha256.Sum256([]byte(a))
	hb := sha256.Sum256([]byte(b))
	return subtle.ConstantTimeCompare(ha[:], hb[:]) == 1
}
