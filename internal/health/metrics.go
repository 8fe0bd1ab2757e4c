package health

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports the health table's probe outcomes as Prometheus
// instruments, grounded on the teacher's metrics.Collector shape: a small
// struct of pre-registered instruments, one constructor that wires them
// into a registry.
type Metrics struct {
	probesTotal    *prometheus.CounterVec
	probeLatency   *prometheus.HistogramVec
	providerStatus *prometheus.GaugeVec
}

// NewMetrics creates and registers the health manager's instruments against
// registry. If registry is nil, the default Prometheus registry is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		probesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ccr",
			Subsystem: "health",
			Name:      "probes_total",
			Help:      "Total provider health probes, by provider and resulting status.",
		}, []string{"provider", "status"}),
		probeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ccr",
			Subsystem: "health",
			Name:      "probe_latency_seconds",
			Help:      "Provider health probe latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"provider"}),
		providerStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ccr",
			Subsystem: "health",
			Name:      "provider_status",
			Help:      "Current provider status: 1 if the label's status is the active one, else 0.",
		}, []string{"provider", "status"}),
	}

	registry.MustRegister(m.probesTotal, m.probeLatency, m.providerStatus)
	return m
}

// RecordProbe records the outcome of a single health probe.
func (m *Metrics) RecordProbe(provider string, status Status, latency time.Duration) {
	m.probesTotal.WithLabelValues(provider, string(status)).Inc()
	m.probeLatency.WithLabelValues(provider).Observe(latency.Seconds())

	for _, s := range []Status{StatusHealthy, StatusDegraded, StatusFailed} {
		value := 0.0
		if s == status {
			value = 1.0
		}
		m.providerStatus.WithLabelValues(provider, string(s)).Set(value)
	}
}
