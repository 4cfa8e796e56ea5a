package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	TransitionsApplied  *prometheus.CounterVec
	TransitionsRejected *prometheus.CounterVec

	SideEffectsQueued     *prometheus.CounterVec
	SideEffectsDispatched *prometheus.CounterVec
	SideEffectsFailed     *prometheus.CounterVec

	OutboxQueueSize         prometheus.Gauge
	OutboxProcessingLatency prometheus.Histogram

	MessagesPublished prometheus.Counter
	BroadcastFailures prometheus.Counter
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace, subsystem string) *Metrics {
	return &Metrics{
		TransitionsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "transitions_applied_total",
			Help:      "Status transitions successfully applied",
		}, []string{"entity", "target"}),
		TransitionsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "transitions_rejected_total",
			Help:      "Status transitions rejected, by reason",
		}, []string{"entity", "reason"}),
		SideEffectsQueued: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "side_effects_queued_total",
			Help:      "Side effects written to the outbox",
		}, []string{"type"}),
		SideEffectsDispatched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "side_effects_dispatched_total",
			Help:      "Side effects successfully dispatched",
		}, []string{"type"}),
		SideEffectsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "side_effects_failed_total",
			Help:      "Side effect dispatch failures",
		}, []string{"type"}),
		OutboxQueueSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outbox_queue_size",
			Help:      "Current number of pending outbox events",
		}),
		OutboxProcessingLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outbox_processing_duration_seconds",
			Help:      "Time spent dispatching outbox events",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		MessagesPublished: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "chat_messages_published_total",
			Help:      "Chat messages persisted and broadcast",
		}),
		BroadcastFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "chat_broadcast_failures_total",
			Help:      "Broadcasts that failed after a successful persist",
		}),
	}
}
