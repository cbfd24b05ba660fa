package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// NATS Event Types
const (
	EventTicketApproved  = "ticket.approved"
	EventTicketExpired   = "ticket.expired"
	EventPaymentExpired  = "payment.expired"
	EventPayoutRequested = "payout.requested"
	EventPayoutCompleted = "payout.completed"
	EventPayoutFailed    = "payout.failed"
)

// TicketApprovedEvent is published once when a paid ticket is approved
type TicketApprovedEvent struct {
	TicketID   int64           `json:"ticket_id"`
	EventID    int64           `json:"event_id"`
	UserID     *int64          `json:"user_id"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
	Timestamp  time.Time       `json:"timestamp"`
}

// TicketExpiredEvent is published when the expiry sweep retires a ticket
type TicketExpiredEvent struct {
	TicketID  int64     `json:"ticket_id"`
	EventID   int64     `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`
}

// PaymentExpiredEvent is published when a checkout session lapses unpaid
type PaymentExpiredEvent struct {
	TicketID  int64     `json:"ticket_id"`
	EventID   int64     `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`
}

// PayoutRequestedEvent is published when the settler asks the processor for a
// transfer
type PayoutRequestedEvent struct {
	PayoutID  int64           `json:"payout_id"`
	EventID   int64           `json:"event_id"`
	NetAmount decimal.Decimal `json:"net_amount"`
	Timestamp time.Time       `json:"timestamp"`
}

// PayoutResultEvent is published when the processor settles or fails a payout
type PayoutResultEvent struct {
	ProcessorPayoutID string    `json:"processor_payout_id"`
	Status            string    `json:"status"`
	Timestamp         time.Time `json:"timestamp"`
}
