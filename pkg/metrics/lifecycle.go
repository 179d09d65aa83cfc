package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// LifecycleMetrics counts requirement and quotation operations by outcome.
type LifecycleMetrics struct {
	operations *prometheus.CounterVec
}

// NewLifecycleMetrics registers the lifecycle counters on the provided registerer.
func NewLifecycleMetrics(reg prometheus.Registerer) *LifecycleMetrics {
	if reg == nil {
		return &LifecycleMetrics{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lifecycle_operations_total",
		Help: "Requirement and quotation operations by outcome.",
	}, []string{"operation", "outcome"})
	reg.MustRegister(operations)
	return &LifecycleMetrics{operations: operations}
}

// Observe records one operation. outcome is "ok" or an error code.
func (m *LifecycleMetrics) Observe(operation, outcome string) {
	if m == nil || m.operations == nil {
		return
	}
	m.operations.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Inc()
}
