// Package metrics holds the Prometheus collectors of the service.  They are
// registered on the default registry and exposed at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "domains"

var (
	// WebhookEvents counts processed payment events by type and final
	// result (processed, ignored, failed).
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_events_total",
		Help:      "Payment events by type and final processing result.",
	}, []string{"type", "result"})

	// WebhookAttempts counts every processing attempt, retries included.
	WebhookAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_attempts_total",
		Help:      "Payment event processing attempts.",
	}, []string{"type"})

	WebhookLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "webhook_processing_seconds",
		Help:      "Time spent processing a payment event, retries included.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"type", "result"})

	// Onboardings counts domain onboarding outcomes.
	Onboardings = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "onboardings_total",
		Help:      "Domain onboarding attempts by result.",
	}, []string{"result"})

	// SagaCompensations counts compensating actions by result (ok, failed).
	SagaCompensations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "saga_compensations_total",
		Help:      "Compensating actions run after a failed multi-step operation.",
	}, []string{"result"})

	// Notifications counts owner notification emails by template and result.
	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Owner notification emails by template and result.",
	}, []string{"template", "result"})
)
