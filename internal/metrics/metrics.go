package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "storefront"

// Set holds the Prometheus metrics for the client-side sync layer.
// A nil *Set is valid and records nothing, so instrumentation is optional.
type Set struct {
	operations       *prometheus.CounterVec
	inFlightRejected *prometheus.CounterVec
	broadcasts       prometheus.Counter
	anomalies        *prometheus.CounterVec
}

// New registers the metric set with the given registry.
// Pass prometheus.DefaultRegisterer for the process-wide registry.
func New(reg prometheus.Registerer) *Set {
	factory := promauto.With(reg)

	return &Set{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total number of sync operations by component, operation and outcome",
		}, []string{"component", "operation", "status"}),

		inFlightRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inflight_rejected_total",
			Help:      "Presses ignored because a request for the same entity was already in flight",
		}, []string{"component"}),

		broadcasts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_total",
			Help:      "Total number of cart:updated broadcasts published",
		}),

		anomalies: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "data_anomalies_total",
			Help:      "Responses missing expected fields that were repaired with defaults",
		}, []string{"component", "field"}),
	}
}

// ObserveOperation counts one completed operation.
func (s *Set) ObserveOperation(component, operation string, success bool) {
	if s == nil {
		return
	}
	status := "ok"
	if !success {
		status = "error"
	}
	s.operations.WithLabelValues(component, operation, status).Inc()
}

// ObserveRejected counts a press dropped by the in-flight guard.
func (s *Set) ObserveRejected(component string) {
	if s == nil {
		return
	}
	s.inFlightRejected.WithLabelValues(component).Inc()
}

// ObserveBroadcast counts one published cart:updated broadcast.
func (s *Set) ObserveBroadcast() {
	if s == nil {
		return
	}
	s.broadcasts.Inc()
}

// ObserveAnomaly counts a repaired data-shape anomaly.
func (s *Set) ObserveAnomaly(component, field string) {
	if s == nil {
		return
	}
	s.anomalies.WithLabelValues(component, field).Inc()
}
