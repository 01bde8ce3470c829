package observability

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type dispatchMetrics struct {
	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	events   *prometheus.CounterVec
}

var (
	dispatchMetricsOnce sync.Once
	dispatchRegistry    *dispatchMetrics
)

// Dispatch returns the metrics registry tracking routed operations.
func Dispatch() *dispatchMetrics {
	dispatchMetricsOnce.Do(func() {
		dispatchRegistry = &dispatchMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "p2p",
				Subsystem: "dispatch",
				Name:      "requests_total",
				Help:      "Count of routed operation invocations segmented by module and operation.",
			}, []string{"module", "operation"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "p2p",
				Subsystem: "dispatch",
				Name:      "errors_total",
				Help:      "Count of failed operation invocations segmented by module and operation.",
			}, []string{"module", "operation"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "p2p",
				Subsystem: "dispatch",
				Name:      "latency_seconds",
				Help:      "Latency of routed operation invocations.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "operation"}),
			events: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "p2p",
				Subsystem: "events",
				Name:      "emitted_total",
				Help:      "Count of domain events emitted by committed operations.",
			}, []string{"type"}),
		}
		prometheus.MustRegister(
			dispatchRegistry.requests,
			dispatchRegistry.errors,
			dispatchRegistry.latency,
			dispatchRegistry.events,
		)
	})
	return dispatchRegistry
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return value
}

// ObserveRequest records one invocation of a routed operation together with its
// outcome and duration.
func (m *dispatchMetrics) ObserveRequest(module, operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	module = normalizeLabel(module)
	operation = normalizeLabel(operation)
	m.requests.WithLabelValues(module, operation).Inc()
	m.latency.WithLabelValues(module, operation).Observe(duration.Seconds())
	if err != nil {
		m.errors.WithLabelValues(module, operation).Inc()
	}
}

// RecordEvent counts a committed domain event by type.
func (m *dispatchMetrics) RecordEvent(eventType string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(normalizeLabel(eventType)).Inc()
}
