package claudecode

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"

	"github.com/pluribus-ai/pluribus/internal/pkg/logger"
	"github.com/pluribus-ai/pluribus/internal/provider"
)

const (
	streamChannelBuffer = 100
	readChunkSize       = 4096
)

// eventSeparator is the only SSE boundary accepted or emitted.
var eventSeparator = []byte("\n\n")

// relayStream copies the upstream SSE byte stream into events, re-framed one
// complete event per send, while tallying usage from message_start and
// message_delta payloads. It owns closing both upstream and events.
func (p *Provider) relayStream(ctx context.Context, upstream io.ReadCloser, events chan<- []byte, model string) {
	defer upstream.Close()
	defer close(events)

	var (
		buffer bytes.Buffer
		usage  provider.Usage
		chunk  = make([]byte, readChunkSize)
	)

	send := func(event []byte) bool {
		select {
		case events <- event:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		n, err := upstream.Read(chunk)
		if n > 0 {
			buffer.Write(chunk[:n])
			for {
				pos := bytes.Index(buffer.Bytes(), eventSeparator)
				if pos < 0 {
					break
				}
				event := make([]byte, pos+len(eventSeparator))
				copy(event, buffer.Next(pos+len(eventSeparator)))

				mergeEventUsage(&usage, event[:pos])
				if p.aliasTools {
					event = RestoreToolNamesInText(event)
				}
				if !send(event) {
					logger.L().Debug("client disconnected, dropping stream",
						zap.String("provider", p.name))
					return
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.L().Error("stream read error", zap.String("provider", p.name), zap.Error(err))
			payload, _ := sjson.SetBytes([]byte(`{"error":""}`), "error", err.Error())
			event := append([]byte("data: "), payload...)
			send(append(event, eventSeparator...))
			break
		}
	}

	// Anything left after upstream close goes out verbatim.
	if buffer.Len() > 0 {
		send(buffer.Bytes())
	}

	logger.L().Sugar().Infof(
		"stream completed provider=%s model=%s input_tokens=%d output_tokens=%d cache_read=%d cache_write=%d",
		p.name, model,
		usage.InputTokens, usage.OutputTokens,
		usage.CacheReadTokens, usage.CacheCreationTokens,
	)
}

// mergeEventUsage walks one SSE event's data lines and folds any usage
// counters into the running tally.
func mergeEventUsage(usage *provider.Usage, event []byte) {
	for _, line := range strings.Split(string(event), "\n") {
		payload, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		data := gjson.Parse(payload)
		if !data.IsObject() {
			continue
		}
		switch data.Get("type").String() {
		case "message_start":
			usage.Merge(provider.ParseUsage(data.Get("message")))
		case "message_delta":
			usage.Merge(provider.ParseUsage(data))
		}
	}
}
