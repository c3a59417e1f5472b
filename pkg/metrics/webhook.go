package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics records classification and handling outcomes for inbound
// channel events.
type WebhookMetrics struct {
	duration *prometheus.HistogramVec
	handled  *prometheus.CounterVec
	dropped  *prometheus.CounterVec
}

// NewWebhookMetrics registers the webhook metrics on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webhook_handler_duration_seconds",
		Help:    "Duration of webhook event handlers in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	handled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_handled",
		Help: "Webhook events handled per classified route.",
	}, []string{"route"})
	dropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_dropped",
		Help: "Webhook events dropped per classified route.",
	}, []string{"route"})
	reg.MustRegister(duration, handled, dropped)
	return &WebhookMetrics{
		duration: duration,
		handled:  handled,
		dropped:  dropped,
	}
}

// ObserveDuration records handler duration for the classified route.
func (w *WebhookMetrics) ObserveDuration(route string, duration time.Duration) {
	if w == nil || w.duration == nil {
		return
	}
	w.duration.WithLabelValues(normalizeLabel(route)).Observe(duration.Seconds())
}

// IncHandled increments the handled counter for the classified route.
func (w *WebhookMetrics) IncHandled(route string) {
	if w == nil || w.handled == nil {
		return
	}
	w.handled.WithLabelValues(normalizeLabel(route)).Inc()
}

// IncDropped increments the dropped counter for the classified route.
func (w *WebhookMetrics) IncDropped(route string) {
	if w == nil || w.dropped == nil {
		return
	}
	w.dropped.WithLabelValues(normalizeLabel(route)).Inc()
}

func normalizeLabel(route string) string {
	if route == "" {
		return "unknown"
	}
	return route
}
