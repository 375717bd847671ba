package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/pluribus-ai/pluribus/internal/pkg/logger"
	"github.com/pluribus-ai/pluribus/internal/provider"
	"github.com/pluribus-ai/pluribus/internal/transform"
)

// Messages relays one chat-completion request to a selected provider, either
// as a unit JSON response or as an SSE stream.
func Messages(registry *provider.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		log := logger.FromContext(ctx)

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			errorResponse(c, err)
			return
		}
		if !gjson.ValidBytes(body) {
			c.JSON(http.StatusBadRequest, gin.H{
				"type":    "invalid_request_error",
				"message": "request body is not valid JSON",
			})
			return
		}

		// The dispatch decision comes from the client's stream value; the
		// transformer pins the field later to the path actually taken.
		streaming := transform.IsStreaming(body)

		body = transform.AttachPassthrough(body, c.Request.Header)
		body = transform.InjectClaudeCodePrompt(body)

		selected := registry.Select(func(p provider.Provider) bool {
			return p.Type().IsAnthropic()
		})
		if selected == nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"type":    "error",
				"message": "No provider available. Run 'pluribus login' first.",
			})
			return
		}

		model := transform.Model(body)
		log.Info("request",
			zap.String("provider", selected.Name()),
			zap.String("model", model),
			zap.Bool("streaming", streaming),
		)

		if streaming {
			relayStreaming(c, selected, body)
			return
		}
		relayUnit(c, selected, body, model)
	}
}

func relayUnit(c *gin.Context, selected provider.Provider, body []byte, model string) {
	ctx := c.Request.Context()

	respBody, err := selected.SendMessage(ctx, body)
	if err != nil {
		errorResponse(c, err)
		return
	}

	usage := provider.ParseUsage(gjson.ParseBytes(respBody))
	logger.FromContext(ctx).Sugar().Infof(
		"response provider=%s model=%s input_tokens=%d output_tokens=%d cache_read=%d cache_write=%d",
		selected.Name(), model,
		usage.InputTokens, usage.OutputTokens,
		usage.CacheReadTokens, usage.CacheCreationTokens,
	)

	c.Data(http.StatusOK, "application/json", respBody)
}

func relayStreaming(c *gin.Context, selected provider.Provider, body []byte) {
	ctx := c.Request.Context()

	stream, err := selected.SendStreaming(ctx, body)
	if err != nil {
		errorResponse(c, err)
		return
	}

	c.Status(stream.StatusCode)
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	w := c.Writer
	for event := range stream.Events {
		if _, err := w.Write(event); err != nil {
			// Client went away; the relay notices the context cancellation.
			return
		}
		w.Flush()
	}
}

func errorResponse(c *gin.Context, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		c.JSON(http.StatusRequestTimeout, gin.H{
			"type":    "error",
			"message": "request timed out",
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"type":    "error",
		"message": err.Error(),
	})
}
