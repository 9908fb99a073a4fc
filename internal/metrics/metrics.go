// Package metrics holds keyproxy's Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/systmms/keyproxy/pkg/provider"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "keyproxy"

// Dispatch outcome label values.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// DispatchMetrics records dispatcher outcomes. A nil *DispatchMetrics is valid
// and records nothing.
type DispatchMetrics struct {
	dispatchTotal      *prometheus.CounterVec
	dispatchDuration   *prometheus.HistogramVec
	auditWriteFailures prometheus.Counter
}

// New registers the dispatch collectors with reg.
func New(reg prometheus.Registerer, namespace string) *DispatchMetrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	factory := promauto.With(reg)

	return &DispatchMetrics{
		dispatchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dispatch_total",
				Help:      "Total number of secret dispatches that reached a backend driver, by outcome",
			},
			[]string{"provider", "status"},
		),
		dispatchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "dispatch_duration_seconds",
				Help:      "Duration of backend driver calls in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"provider"},
		),
		auditWriteFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "audit_write_failures_total",
				Help:      "Total number of audit events the journal failed to record",
			},
		),
	}
}

// ObserveDispatch records one driver call.
func (m *DispatchMetrics) ObserveDispatch(kind provider.Kind, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	status := StatusSuccess
	if err != nil {
		status = StatusFailure
	}
	m.dispatchTotal.WithLabelValues(kind.String(), status).Inc()
	m.dispatchDuration.WithLabelValues(kind.String()).Observe(elapsed.Seconds())
}

// AuditWriteFailed records a journal write failure.
func (m *DispatchMetrics) AuditWriteFailed() {
	if m == nil {
		return
	}
	m.auditWriteFailures.Inc()
}

// WriteTextfile writes every metric in g to path in the text exposition
// format, for node_exporter's textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
