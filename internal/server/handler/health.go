// Package handler implements the gateway's HTTP handlers.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pluribus-ai/pluribus/internal/provider"
	"github.com/pluribus-ai/pluribus/internal/provider/claudecode"
)

type providerStatus struct {
	Name      string                  `json:"name"`
	Type      provider.Type           `json:"type"`
	RateLimit *provider.RateLimitInfo `json:"rate_limit,omitempty"`
}

// Health reports gateway liveness, the pinned upstream version, and the
// per-provider rate-limit view. Unprotected.
func Health(registry *provider.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		providers := make([]providerStatus, 0, len(registry.Providers()))
		for _, p := range registry.Providers() {
			status := providerStatus{Name: p.Name(), Type: p.Type()}
			if info, ok := p.RateLimit(); ok {
				status.RateLimit = &info
			}
			providers = append(providers, status)
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"version":   claudecode.Version(),
			"providers": providers,
		})
	}
}
