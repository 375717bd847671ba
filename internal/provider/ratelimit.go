package provider

import (
	"net/http"
	"strconv"
	"time"
)

// RateLimitWindow is one (status, reset, utilization) triple echoed from
// upstream response headers.
type RateLimitWindow struct {
	// Status values observed upstream: allowed, allowed_warning, rejected.
	Status string `json:"status"`
	// Reset is absolute, Unix seconds.
	Reset int64 `json:"reset"`
	// Utilization is a fraction in [0, 1].
	Utilization float64 `json:"utilization"`
}

// RateLimitInfo carries both unified windows. The zero value means "no data"
// and counts as available.
type RateLimitInfo struct {
	FiveHour RateLimitWindow `json:"five_hour"`
	SevenDay RateLimitWindow `json:"seven_day"`
	// UpdatedAt is the Unix-seconds time the snapshot was last populated.
	UpdatedAt int64 `json:"updated_at"`
}

const utilizationThreshold = 0.995

// AvailableAt reports whether the window permits scheduling at the given
// Unix-seconds time. A window past its reset is available regardless of
// stale utilization.
func (w RateLimitWindow) AvailableAt(nowSec int64) bool {
	if w.Utilization <= utilizationThreshold {
		return true
	}
	return nowSec >= w.Reset
}

// AvailableAt reports whether both windows permit scheduling.
func (i RateLimitInfo) AvailableAt(nowSec int64) bool {
	return i.FiveHour.AvailableAt(nowSec) && i.SevenDay.AvailableAt(nowSec)
}

// RateLimitFromHeaders parses the unified rate-limit headers of an upstream
// response. Missing or unparseable values default to zero.
func RateLimitFromHeaders(h http.Header) RateLimitInfo {
	return RateLimitInfo{
		FiveHour:  windowFromHeaders(h, "anthropic-ratelimit-unified-5h-"),
		SevenDay:  windowFromHeaders(h, "anthropic-ratelimit-unified-7d-"),
		UpdatedAt: time.Now().Unix(),
	}
}

func windowFromHeaders(h http.Header, prefix string) RateLimitWindow {
	reset, _ := strconv.ParseInt(h.Get(prefix+"reset"), 10, 64)
	utilization, _ := strconv.ParseFloat(h.Get(prefix+"utilization"), 64)
	return RateLimitWindow{
		Status:      h.Get(prefix + "status"),
		Reset:       reset,
		Utilization: utilization,
	}
}
