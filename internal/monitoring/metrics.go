package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checkoutsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkouts_created_total",
			Help: "Checkout sessions created, by fee model",
		},
		[]string{"fee_model"},
	)

	webhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Processed webhook deliveries by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	sweepItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweep_items_total",
			Help: "Items handled by periodic sweeps",
		},
		[]string{"sweep", "outcome"},
	)

	processorRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "processor_requests_total",
			Help: "Outbound payment processor requests by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	consumedEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consumed_events_total",
			Help: "Domain events consumed from the broker by subject",
		},
		[]string{"subject"},
	)
)

// TrackCheckout counts a created checkout session
func TrackCheckout(feeModel string) {
	checkoutsCreated.WithLabelValues(feeModel).Inc()
}

// TrackWebhook counts a webhook delivery
func TrackWebhook(eventType, outcome string) {
	webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

// TrackSweep counts an item processed by a sweep
func TrackSweep(sweep, outcome string) {
	sweepItems.WithLabelValues(sweep, outcome).Inc()
}

// TrackProcessorRequest counts an outbound processor call
func TrackProcessorRequest(operation, outcome string) {
	processorRequests.WithLabelValues(operation, outcome).Inc()
}

// TrackConsumedEvent counts a domain event consumed from the broker
func TrackConsumedEvent(subject string) {
	consumedEvents.WithLabelValues(subject).Inc()
}
