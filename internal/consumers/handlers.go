package consumers

import (
	"encoding/json"
	"log/slog"

	"tikiti/internal/models"
	"tikiti/internal/monitoring"

	"github.com/nats-io/stan.go"
)

// Handlers process the lifecycle events the API publishes. They keep the
// audit trail: every event is logged and counted, then acknowledged.
type Handlers struct{}

func NewHandlers() *Handlers {
	return &Handlers{}
}

func (h *Handlers) HandleTicketApproved(m *stan.Msg) {
	var event models.TicketApprovedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal ticket approved event", "error", err)
		return
	}

	slog.Info("Ticket approved",
		"ticket_id", event.TicketID,
		"event_id", event.EventID,
		"amount_paid", event.AmountPaid)
	monitoring.TrackConsumedEvent(models.EventTicketApproved)

	m.Ack()
}

func (h *Handlers) HandleTicketExpired(m *stan.Msg) {
	var event models.TicketExpiredEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal ticket expired event", "error", err)
		return
	}

	slog.Info("Ticket expired",
		"ticket_id", event.TicketID,
		"event_id", event.EventID)
	monitoring.TrackConsumedEvent(models.EventTicketExpired)

	m.Ack()
}

func (h *Handlers) HandlePaymentExpired(m *stan.Msg) {
	var event models.PaymentExpiredEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal payment expired event", "error", err)
		return
	}

	slog.Info("Checkout session expired unpaid",
		"ticket_id", event.TicketID,
		"event_id", event.EventID)
	monitoring.TrackConsumedEvent(models.EventPaymentExpired)

	m.Ack()
}

func (h *Handlers) HandlePayoutRequested(m *stan.Msg) {
	var event models.PayoutRequestedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal payout requested event", "error", err)
		return
	}

	slog.Info("Organizer payout requested",
		"payout_id", event.PayoutID,
		"event_id", event.EventID,
		"net_amount", event.NetAmount)
	monitoring.TrackConsumedEvent(models.EventPayoutRequested)

	m.Ack()
}

func (h *Handlers) HandlePayoutResult(m *stan.Msg) {
	var event models.PayoutResultEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal payout result event", "error", err)
		return
	}

	slog.Info("Organizer payout settled",
		"processor_payout_id", event.ProcessorPayoutID,
		"status", event.Status)
	monitoring.TrackConsumedEvent("payout." + event.Status)

	m.Ack()
}
