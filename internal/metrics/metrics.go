package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "skywire"

// Metrics records what the consumer and dispatcher do. A nil *Metrics, or one
// built without a registerer, is a valid no-op.
type Metrics struct {
	entries         *prometheus.CounterVec
	deliveries      *prometheus.CounterVec
	latency         prometheus.Histogram
	latencyClass    *prometheus.CounterVec
	pending         prometheus.Gauge
	backlogWarnings prometheus.Counter
}

// NewMetrics registers the consumer metrics on the provided registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	entries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "entries_total",
		Help:      "Stream entries processed, by outcome.",
	}, []string{"outcome"})
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "deliveries_total",
		Help:      "Delivery attempts, by channel kind and result.",
	}, []string{"kind", "result"})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "event_latency_seconds",
		Help:      "Time between a post being indexed and its match being persisted.",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	})
	latencyClass := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "latency_class_total",
		Help:      "Persisted matches by latency class (ok, slow, high).",
	}, []string{"class"})
	pending := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pending_entries",
		Help:      "Consumer group pending count at the last backlog check.",
	})
	backlogWarnings := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backlog_warnings_total",
		Help:      "Backlog checks that found the pending count above threshold.",
	})
	reg.MustRegister(entries, deliveries, latency, latencyClass, pending, backlogWarnings)
	return &Metrics{
		entries:         entries,
		deliveries:      deliveries,
		latency:         latency,
		latencyClass:    latencyClass,
		pending:         pending,
		backlogWarnings: backlogWarnings,
	}
}

func (m *Metrics) IncEntry(outcome string) {
	if m == nil || m.entries == nil {
		return
	}
	m.entries.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *Metrics) IncDelivery(kind, result string) {
	if m == nil || m.deliveries == nil {
		return
	}
	m.deliveries.WithLabelValues(normalizeLabel(kind), normalizeLabel(result)).Inc()
}

// ObserveLatency records the end-to-end latency and its class.
func (m *Metrics) ObserveLatency(d time.Duration, class string) {
	if m == nil || m.latency == nil {
		return
	}
	m.latency.Observe(d.Seconds())
	m.latencyClass.WithLabelValues(normalizeLabel(class)).Inc()
}

func (m *Metrics) SetPending(n int64) {
	if m == nil || m.pending == nil {
		return
	}
	m.pending.Set(float64(n))
}

func (m *Metrics) IncBacklogWarning() {
	if m == nil || m.backlogWarnings == nil {
		return
	}
	m.backlogWarnings.Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
