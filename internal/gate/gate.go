// Package gate rate-limits alerts per path to prevent notification
// storms from rapid repeated changes.
package gate

import "time"

// Gate allows at most one alert per path per window. The throttle key
// is path-only: rapid modifications collapse, while distinct paths
// never contend. Entries grow with distinct paths touched during a
// run and are not persisted.
type Gate struct {
	window time.Duration
	last   map[string]time.Time
}

// New creates a Gate with the given throttle window.
func New(window time.Duration) *Gate {
	return &Gate{
		window: window,
		last:   make(map[string]time.Time),
	}
}

// ShouldEmit reports whether an alert for rel may fire at now, and
// records the emission time only when it may. Expected to be called
// from the single event loop consumer.
func (g *Gate) ShouldEmit(rel string, now time.Time) bool {
	if prev, ok := g.last[rel]; ok && now.Sub(prev) < g.window {
		return false
	}
	g.last[rel] = now
	return true
}

// Len returns the number of throttle entries.
func (g *Gate) Len() int {
	return len(g.last)
}
