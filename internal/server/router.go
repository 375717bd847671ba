// Package server wires the gin router and runs the HTTP server.
package server

import (
	"github.com/gin-gonic/gin"

	"github.com/pluribus-ai/pluribus/internal/config"
	"github.com/pluribus-ai/pluribus/internal/provider"
	"github.com/pluribus-ai/pluribus/internal/server/handler"
	"github.com/pluribus-ai/pluribus/internal/server/middleware"
)

// NewRouter builds the gateway's routes and middleware stack. /health is
// open; the messages route sits behind the shared secret.
func NewRouter(cfg *config.Config, registry *provider.Registry) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.Timeout(middleware.RequestTimeout))

	r.GET("/health", handler.Health(registry))

	protected := r.Group("/anthropic")
	protected.Use(middleware.Auth(cfg.Secret))
	protected.POST("/v1/messages", handler.Messages(registry))

	return r
}
