package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ProviderErrors  *prometheus.CounterVec
	WebhooksTotal   *prometheus.CounterVec
	StatusUpdates   *prometheus.CounterVec
}

// NewMetrics creates metrics and registers them with reg. A nil reg uses the
// default Prometheus registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sendcloud_bridge_requests_total",
				Help: "Total number of provider operations by operation, provider, and status",
			},
			[]string{"operation", "provider", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sendcloud_bridge_request_duration_seconds",
				Help:    "Provider operation duration in seconds by operation and provider",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "provider"},
		),
		ProviderErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sendcloud_bridge_provider_errors_total",
				Help: "Total provider errors by provider and operation",
			},
			[]string{"provider", "operation"},
		),
		WebhooksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sendcloud_webhooks_total",
				Help: "Total Sendcloud webhook deliveries by action and outcome",
			},
			[]string{"action", "outcome"},
		),
		StatusUpdates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sendcloud_fulfillment_status_updates_total",
				Help: "Total fulfillment status updates by normalized status",
			},
			[]string{"status"},
		),
	}
}

// RecordRequest records a provider operation metric.
func (m *Metrics) RecordRequest(operation, provider, status string, duration float64) {
	m.RequestsTotal.WithLabelValues(operation, provider, status).Inc()
	m.RequestDuration.WithLabelValues(operation, provider).Observe(duration)
}

// RecordError records a provider error metric.
func (m *Metrics) RecordError(provider, operation string) {
	m.ProviderErrors.WithLabelValues(provider, operation).Inc()
}

// RecordWebhook records the outcome of a webhook delivery.
func (m *Metrics) RecordWebhook(action, outcome string) {
	if action == "" {
		action = "unknown"
	}
	m.WebhooksTotal.WithLabelValues(action, outcome).Inc()
}

// RecordStatusUpdate records a fulfillment status update.
func (m *Metrics) RecordStatusUpdate(status string) {
	m.StatusUpdates.WithLabelValues(status).Inc()
}
