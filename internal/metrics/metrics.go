package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/miradorstack/alertmanager-cachet/internal/models"
)

// Webhook request results.
const (
	ResultOK             = "ok"
	ResultMalformed      = "malformed"
	ResultUnauthorized   = "unauthorized"
	ResultSerialization  = "serialization_error"
	ResultMethodRejected = "method_not_allowed"
	ResultInternal       = "internal_error"
)

var (
	webhookRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cachet_bridge",
			Name:      "webhook_requests_total",
			Help:      "Alertmanager webhook deliveries handled, partitioned by result.",
		},
		[]string{"result"},
	)

	directivesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cachet_bridge",
			Name:      "directives_total",
			Help:      "Component status updates attempted, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	directiveDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "cachet_bridge",
			Name:      "directive_seconds",
			Help:      "Latency of a single component status update in seconds.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)
)

// Register attaches the bridge collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		webhookRequestsTotal,
		directivesTotal,
		directiveDurationSeconds,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveWebhook counts one handled webhook delivery.
func ObserveWebhook(result string) {
	webhookRequestsTotal.WithLabelValues(result).Inc()
}

// ObserveDirective records a status update duration and its delivery result.
func ObserveDirective(duration time.Duration, result models.DeliveryResult) {
	label := string(result)
	if result != models.DeliveryTransportFailure {
		label = string(models.DeliveryDelivered)
	}
	directivesTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	directiveDurationSeconds.Observe(duration.Seconds())
}
