package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics records remote synchronization outcomes for the engine.
type SyncMetrics struct {
	remoteCalls  *prometheus.CounterVec
	breakerTrips *prometheus.CounterVec
	queueDepth   prometheus.Gauge
	queueDrops   prometheus.Counter
	eventsMerged *prometheus.CounterVec
}

// NewSyncMetrics registers the sync metrics on the provided registerer.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	remoteCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "remote_calls_total",
		Help: "Remote store calls grouped by component and outcome.",
	}, []string{"component", "outcome"})
	breakerTrips := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "circuit_breaker_trips_total",
		Help: "One-way circuit breaker trips per component.",
	}, []string{"component"})
	queueDepth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "writebehind_queue_depth",
		Help: "Pending mutations in the cart write-behind queue.",
	})
	queueDrops := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "writebehind_queue_drops_total",
		Help: "Cart mutations dropped because the write-behind queue was full.",
	})
	eventsMerged := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_events_merged_total",
		Help: "Server-push order events applied to cached queries.",
	}, []string{"type"})
	reg.MustRegister(remoteCalls, breakerTrips, queueDepth, queueDrops, eventsMerged)
	return &SyncMetrics{
		remoteCalls:  remoteCalls,
		breakerTrips: breakerTrips,
		queueDepth:   queueDepth,
		queueDrops:   queueDrops,
		eventsMerged: eventsMerged,
	}
}

// IncRemoteCall counts one remote call outcome for the named component.
func (m *SyncMetrics) IncRemoteCall(component, outcome string) {
	if m == nil || m.remoteCalls == nil {
		return
	}
	m.remoteCalls.WithLabelValues(normalizeLabel(component), normalizeLabel(outcome)).Inc()
}

// IncBreakerTrip counts a circuit breaker trip for the named component.
func (m *SyncMetrics) IncBreakerTrip(component string) {
	if m == nil || m.breakerTrips == nil {
		return
	}
	m.breakerTrips.WithLabelValues(normalizeLabel(component)).Inc()
}

// SetQueueDepth publishes the current write-behind queue depth.
func (m *SyncMetrics) SetQueueDepth(depth int) {
	if m == nil || m.queueDepth == nil {
		return
	}
	m.queueDepth.Set(float64(depth))
}

// IncQueueDrop counts a dropped write-behind mutation.
func (m *SyncMetrics) IncQueueDrop() {
	if m == nil || m.queueDrops == nil {
		return
	}
	m.queueDrops.Inc()
}

// IncEventMerged counts an applied server-push event by type.
func (m *SyncMetrics) IncEventMerged(eventType string) {
	if m == nil || m.eventsMerged == nil {
		return
	}
	m.eventsMerged.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
