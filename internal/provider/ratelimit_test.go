package provider

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func nowPlus(sec int64) int64 {
	return time.Now().Unix() + sec
}

func TestRateLimitFromHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("anthropic-ratelimit-unified-5h-status", "allowed_warning")
	h.Set("anthropic-ratelimit-unified-5h-reset", "1700000000")
	h.Set("anthropic-ratelimit-unified-5h-utilization", "0.82")
	h.Set("anthropic-ratelimit-unified-7d-status", "allowed")
	h.Set("anthropic-ratelimit-unified-7d-reset", "1700600000")
	h.Set("anthropic-ratelimit-unified-7d-utilization", "0.17")

	info := RateLimitFromHeaders(h)
	assert.Equal(t, RateLimitWindow{Status: "allowed_warning", Reset: 1700000000, Utilization: 0.82}, info.FiveHour)
	assert.Equal(t, RateLimitWindow{Status: "allowed", Reset: 1700600000, Utilization: 0.17}, info.SevenDay)
	assert.NotZero(t, info.UpdatedAt)
}

func TestRateLimitFromHeadersMissing(t *testing.T) {
	info := RateLimitFromHeaders(http.Header{})
	assert.Equal(t, RateLimitWindow{}, info.FiveHour)
	assert.Equal(t, RateLimitWindow{}, info.SevenDay)
}

func TestRateLimitFromHeadersUnparseable(t *testing.T) {
	h := http.Header{}
	h.Set("anthropic-ratelimit-unified-5h-reset", "soon")
	h.Set("anthropic-ratelimit-unified-5h-utilization", "lots")

	info := RateLimitFromHeaders(h)
	assert.Zero(t, info.FiveHour.Reset)
	assert.Zero(t, info.FiveHour.Utilization)
}

func TestWindowAvailableAt(t *testing.T) {
	now := time.Now().Unix()

	cases := []struct {
		name string
		w    RateLimitWindow
		want bool
	}{
		{"zero value", RateLimitWindow{}, true},
		{"below threshold", RateLimitWindow{Utilization: 0.995, Reset: now + 600}, true},
		{"exhausted, reset ahead", RateLimitWindow{Utilization: 0.996, Reset: now + 600}, false},
		{"exhausted, reset passed", RateLimitWindow{Utilization: 1.0, Reset: now - 1}, true},
		{"full but no reset", RateLimitWindow{Utilization: 1.0}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.w.AvailableAt(now))
		})
	}
}

func TestInfoAvailableAtBothWindows(t *testing.T) {
	now := time.Now().Unix()
	blocked := RateLimitWindow{Utilization: 1.0, Reset: now + 600}

	assert.False(t, RateLimitInfo{FiveHour: blocked}.AvailableAt(now))
	assert.False(t, RateLimitInfo{SevenDay: blocked}.AvailableAt(now))
	assert.True(t, RateLimitInfo{}.AvailableAt(now))
}
