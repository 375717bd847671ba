package provider

import "time"

// Registry is the immutable, ordered provider list built once at startup.
// Order follows directory enumeration order of the config files.
type Registry struct {
	providers []Provider
}

// NewRegistry wraps an ordered provider list.
func NewRegistry(providers []Provider) *Registry {
	return &Registry{providers: providers}
}

// Providers returns the registry contents in priority order.
func (r *Registry) Providers() []Provider {
	return r.providers
}

// Select returns the first provider, in registry order, that is healthy, has
// no exhausted rate-limit window, and matches the predicate. A window is
// exhausted when utilization exceeds 0.995 and its reset time is still in
// the future. Returns nil when nothing matches.
func (r *Registry) Select(match func(Provider) bool) Provider {
	now := time.Now().Unix()
	for _, p := range r.providers {
		if !p.Healthy() {
			continue
		}
		if info, ok := p.RateLimit(); ok && !info.AvailableAt(now) {
			continue
		}
		if match == nil || match(p) {
			return p
		}
	}
	return nil
}
