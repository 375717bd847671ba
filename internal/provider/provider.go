package provider

import (
	"context"

	"github.com/tidwall/gjson"
)

// Usage counts tokens across one request or stream.
type Usage struct {
	InputTokens         int64 `json:"input_tokens"`
	OutputTokens        int64 `json:"output_tokens"`
	CacheReadTokens     int64 `json:"cache_read_tokens"`
	CacheCreationTokens int64 `json:"cache_creation_tokens"`
}

// Merge folds other into u, field by field. A nonzero incoming value wins;
// zero means "no update". message_start carries the input and cache counters,
// message_delta the running output count.
func (u *Usage) Merge(other Usage) {
	if other.InputTokens > 0 {
		u.InputTokens = other.InputTokens
	}
	if other.OutputTokens > 0 {
		u.OutputTokens = other.OutputTokens
	}
	if other.CacheReadTokens > 0 {
		u.CacheReadTokens = other.CacheReadTokens
	}
	if other.CacheCreationTokens > 0 {
		u.CacheCreationTokens = other.CacheCreationTokens
	}
}

// ParseUsage extracts the usage block of an Anthropic message object. Absent
// or zero counters come back as zero; intermediate stream events routinely
// carry partial usage, so zeros are data, not errors.
func ParseUsage(message gjson.Result) Usage {
	usage := message.Get("usage")
	return Usage{
		InputTokens:         usage.Get("input_tokens").Int(),
		OutputTokens:        usage.Get("output_tokens").Int(),
		CacheReadTokens:     usage.Get("cache_read_input_tokens").Int(),
		CacheCreationTokens: usage.Get("cache_creation_input_tokens").Int(),
	}
}

// StreamingResponse is an SSE relay in flight. Events delivers one complete
// event per receive, each terminated by a blank line; the channel closes when
// the upstream stream ends.
type StreamingResponse struct {
	StatusCode int
	Events     <-chan []byte
}

// Provider is a named, typed credential holder plus the operations that use
// it to relay requests upstream.
type Provider interface {
	Name() string
	Type() Type
	// SendMessage relays a unit (non-streaming) request and returns the
	// upstream response body.
	SendMessage(ctx context.Context, body []byte) ([]byte, error)
	// SendStreaming relays a streaming request.
	SendStreaming(ctx context.Context, body []byte) (*StreamingResponse, error)
	// RateLimit returns the last observed rate-limit snapshot, if any.
	RateLimit() (RateLimitInfo, bool)
	// Healthy reports whether the provider may be scheduled at all.
	Healthy() bool
}
