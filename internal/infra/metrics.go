package infra

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics provides lightweight observability for the grid.
// Uses atomic operations for thread-safety; all methods are safe on a nil receiver.
type Metrics struct {
	// Counters
	eventsApplied   atomic.Uint64
	eventsIgnored   atomic.Uint64
	feedEvents      atomic.Uint64
	windowComputes  atomic.Uint64
	rowsMaterialize atomic.Uint64
	persistWrites   atomic.Uint64
	errorsTotal     atomic.Uint64

	// Latency tracking
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64

	// Gauges
	activeConnections atomic.Int32
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordApply records a reconciled odds change with its latency.
func (m *Metrics) RecordApply(latencyNs int64) {
	if m == nil {
		return
	}
	m.eventsApplied.Add(1)
	m.latencySumNs.Add(latencyNs)
	m.latencyCount.Add(1)
}

// RecordIgnored records an event for an unknown or invalid match.
func (m *Metrics) RecordIgnored() {
	if m == nil {
		return
	}
	m.eventsIgnored.Add(1)
}

// RecordFeedEvent records an event produced or received by a feed source.
func (m *Metrics) RecordFeedEvent() {
	if m == nil {
		return
	}
	m.feedEvents.Add(1)
}

// RecordWindow records a window recomputation and how many rows it materialized.
func (m *Metrics) RecordWindow(materialized int) {
	if m == nil {
		return
	}
	m.windowComputes.Add(1)
	m.rowsMaterialize.Add(uint64(materialized))
}

// RecordPersist records a completed storage write.
func (m *Metrics) RecordPersist() {
	if m == nil {
		return
	}
	m.persistWrites.Add(1)
}

// RecordError records an error occurrence.
func (m *Metrics) RecordError() {
	if m == nil {
		return
	}
	m.errorsTotal.Add(1)
}

// IncrementConnections increments active connections by 1.
func (m *Metrics) IncrementConnections() {
	if m == nil {
		return
	}
	m.activeConnections.Add(1)
}

// DecrementConnections decrements active connections by 1.
func (m *Metrics) DecrementConnections() {
	if m == nil {
		return
	}
	m.activeConnections.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	EventsApplied     uint64
	EventsIgnored     uint64
	FeedEvents        uint64
	WindowComputes    uint64
	RowsMaterialized  uint64
	PersistWrites     uint64
	ErrorsTotal       uint64
	AvgLatencyNs      int64
	ActiveConnections int32
	Timestamp         time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{Timestamp: time.Now()}
	}

	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		EventsApplied:     m.eventsApplied.Load(),
		EventsIgnored:     m.eventsIgnored.Load(),
		FeedEvents:        m.feedEvents.Load(),
		WindowComputes:    m.windowComputes.Load(),
		RowsMaterialized:  m.rowsMaterialize.Load(),
		PersistWrites:     m.persistWrites.Load(),
		ErrorsTotal:       m.errorsTotal.Load(),
		AvgLatencyNs:      avgLatency,
		ActiveConnections: m.activeConnections.Load(),
		Timestamp:         time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.eventsApplied.Store(0)
	m.eventsIgnored.Store(0)
	m.feedEvents.Store(0)
	m.windowComputes.Store(0)
	m.rowsMaterialize.Store(0)
	m.persistWrites.Store(0)
	m.errorsTotal.Store(0)
	m.latencySumNs.Store(0)
	m.latencyCount.Store(0)
	m.activeConnections.Store(0)
}

// Register exposes the counters to Prometheus under the given namespace.
func (m *Metrics) Register(reg prometheus.Registerer, namespace string) error {
	counter := func(name, help string, v *atomic.Uint64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(v.Load()) })
	}

	collectors := []prometheus.Collector{
		counter("odds_events_applied_total", "Odds changes applied to the dataset", &m.eventsApplied),
		counter("odds_events_ignored_total", "Odds changes for unknown or invalid matches", &m.eventsIgnored),
		counter("feed_events_total", "Events produced or received by the feed", &m.feedEvents),
		counter("window_computes_total", "Visible window recomputations", &m.windowComputes),
		counter("rows_materialized_total", "Rows materialized into renderable state", &m.rowsMaterialize),
		counter("persist_writes_total", "Completed storage writes", &m.persistWrites),
		counter("errors_total", "Errors recorded by any component", &m.errorsTotal),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_connections",
			Help:      "Connected feed transports",
		}, func() float64 { return float64(m.activeConnections.Load()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "apply_latency_avg_seconds",
			Help:      "Average reconcile latency",
		}, func() float64 { return time.Duration(m.Snapshot().AvgLatencyNs).Seconds() }),
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
