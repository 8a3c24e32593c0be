// Package metrics provides in-process counters for the monitor run.
package metrics

import "sync/atomic"

// Registry holds all vigil counters for a single monitor run.
type Registry struct {
	eventsSeen      atomic.Int64
	eventsAccepted  atomic.Int64
	eventsRejected  atomic.Int64
	hashSuppressed  atomic.Int64
	alertsThrottled atomic.Int64
	alertsEmitted   atomic.Int64
	auditHits       atomic.Int64
	fallbacks       atomic.Int64
}

// NewRegistry creates a new metrics registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// RecordEventSeen counts a raw event received from the watch source.
func (r *Registry) RecordEventSeen() { r.eventsSeen.Add(1) }

// RecordEventAccepted counts an event that passed classification.
func (r *Registry) RecordEventAccepted() { r.eventsAccepted.Add(1) }

// RecordEventRejected counts an event rejected by the path filters.
func (r *Registry) RecordEventRejected() { r.eventsRejected.Add(1) }

// RecordHashSuppressed counts a Modify whose content hash was unchanged.
func (r *Registry) RecordHashSuppressed() { r.hashSuppressed.Add(1) }

// RecordAlertThrottled counts an alert suppressed by the rate limiter.
func (r *Registry) RecordAlertThrottled() { r.alertsThrottled.Add(1) }

// RecordAlertEmitted counts a dispatched notification.
func (r *Registry) RecordAlertEmitted() { r.alertsEmitted.Add(1) }

// RecordAttribution counts an attribution by its source.
func (r *Registry) RecordAttribution(fromAudit bool) {
	if fromAudit {
		r.auditHits.Add(1)
	} else {
		r.fallbacks.Add(1)
	}
}

// Snapshot returns the current counter values.
func (r *Registry) Snapshot() map[string]int64 {
	return map[string]int64{
		"events_seen":      r.eventsSeen.Load(),
		"events_accepted":  r.eventsAccepted.Load(),
		"events_rejected":  r.eventsRejected.Load(),
		"hash_suppressed":  r.hashSuppressed.Load(),
		"alerts_throttled": r.alertsThrottled.Load(),
		"alerts_emitted":   r.alertsEmitted.Load(),
		"audit_hits":       r.auditHits.Load(),
		"fallbacks":        r.fallbacks.Load(),
	}
}
