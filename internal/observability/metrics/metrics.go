// Package metrics exposes the Prometheus instruments for the assistant. All
// methods are nil-receiver safe so callers never need to branch on whether
// metrics are wired.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the assistant's collectors.
type Metrics struct {
	turns           *prometheus.CounterVec
	flowsStarted    *prometheus.CounterVec
	flowsEnded      *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec
	providerErrors  *prometheus.CounterVec
	proactivePushes prometheus.Counter
}

// New registers the collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "assistant",
			Name:      "turns_total",
			Help:      "Inbound turns processed, labeled by routed intent.",
		}, []string{"intent"}),
		flowsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "assistant",
			Name:      "flows_started_total",
			Help:      "Flows pushed onto a session stack.",
		}, []string{"kind"}),
		flowsEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "assistant",
			Name:      "flows_ended_total",
			Help:      "Flows that reached a terminal step.",
		}, []string{"kind", "outcome"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "assistant",
			Name:      "calendar_op_duration_seconds",
			Help:      "Latency of calendar provider calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		providerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "assistant",
			Name:      "calendar_op_errors_total",
			Help:      "Calendar provider calls that returned an error.",
		}, []string{"op"}),
		proactivePushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "assistant",
			Name:      "proactive_pushes_total",
			Help:      "Proactive availability notifications sent.",
		}),
	}
	reg.MustRegister(m.turns, m.flowsStarted, m.flowsEnded, m.providerLatency, m.providerErrors, m.proactivePushes)
	return m
}

// TurnProcessed counts one routed inbound turn.
func (m *Metrics) TurnProcessed(intent string) {
	if m == nil {
		return
	}
	m.turns.WithLabelValues(intent).Inc()
}

// FlowStarted counts a frame pushed onto a stack.
func (m *Metrics) FlowStarted(kind string) {
	if m == nil {
		return
	}
	m.flowsStarted.WithLabelValues(kind).Inc()
}

// FlowEnded counts a frame that reached a terminal step.
func (m *Metrics) FlowEnded(kind, outcome string) {
	if m == nil {
		return
	}
	m.flowsEnded.WithLabelValues(kind, outcome).Inc()
}

// ProviderCall records one calendar provider call.
func (m *Metrics) ProviderCall(op string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.providerLatency.WithLabelValues(op).Observe(seconds)
	if err != nil {
		m.providerErrors.WithLabelValues(op).Inc()
	}
}

// ProactivePush counts one availability notification.
func (m *Metrics) ProactivePush() {
	if m == nil {
		return
	}
	m.proactivePushes.Inc()
}
