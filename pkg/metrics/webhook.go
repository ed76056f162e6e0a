package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Webhook delivery outcomes.
const (
	OutcomeProcessed = "processed"
	OutcomeIgnored   = "ignored"
	OutcomeDuplicate = "duplicate"
	OutcomeInFlight  = "in_flight"
	OutcomeFailed    = "failed"
	OutcomeRejected  = "rejected"
)

// WebhookMetrics records provider deliveries by event type and outcome.
type WebhookMetrics struct {
	deliveries *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewWebhookMetrics registers the webhook metrics on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_deliveries_total",
		Help: "Provider webhook deliveries by event type and outcome.",
	}, []string{"event_type", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webhook_processing_seconds",
		Help:    "Time spent reconciling a webhook delivery.",
		Buckets: prometheus.DefBuckets,
	}, []string{"event_type"})
	reg.MustRegister(deliveries, duration)
	return &WebhookMetrics{deliveries: deliveries, duration: duration}
}

// Record counts one delivery outcome and, for handled events, its duration.
func (w *WebhookMetrics) Record(eventType, outcome string, elapsed time.Duration) {
	if w == nil || w.deliveries == nil {
		return
	}
	eventType = normalizeLabel(eventType)
	w.deliveries.WithLabelValues(eventType, outcome).Inc()
	if outcome == OutcomeProcessed || outcome == OutcomeFailed {
		w.duration.WithLabelValues(eventType).Observe(elapsed.Seconds())
	}
}
