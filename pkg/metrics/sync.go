package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics records drain-pass and per-action outcomes.
type SyncMetrics struct {
	drainDuration prometheus.Histogram
	actions       *prometheus.CounterVec
	pending       prometheus.Gauge
}

// Action outcome label values.
const (
	OutcomeDelivered = "delivered"
	OutcomeRequeued  = "requeued"
	OutcomeEvicted   = "evicted"
)

// NewSyncMetrics registers the sync engine metrics on the provided registerer.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	drainDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sync_drain_duration_seconds",
		Help:    "Duration of queue drain passes in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	actions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_actions_total",
		Help: "Queued actions by kind and drain outcome.",
	}, []string{"kind", "outcome"})
	pending := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sync_pending_actions",
		Help: "Actions currently waiting in the offline queue.",
	})
	reg.MustRegister(drainDuration, actions, pending)
	return &SyncMetrics{
		drainDuration: drainDuration,
		actions:       actions,
		pending:       pending,
	}
}

// ObserveDrainDuration records how long a drain pass took.
func (m *SyncMetrics) ObserveDrainDuration(duration time.Duration) {
	if m == nil || m.drainDuration == nil {
		return
	}
	m.drainDuration.Observe(duration.Seconds())
}

// IncAction counts one action outcome for the given kind.
func (m *SyncMetrics) IncAction(kind, outcome string) {
	if m == nil || m.actions == nil {
		return
	}
	m.actions.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Inc()
}

// SetPending publishes the current queue depth.
func (m *SyncMetrics) SetPending(count int) {
	if m == nil || m.pending == nil {
		return
	}
	m.pending.Set(float64(count))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
