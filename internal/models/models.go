package models

import "github.com/shopspring/decimal"

// Webhook event types consumed from the payment processor
const (
	WebhookCheckoutCompleted = "checkout_session.completed"
	WebhookCheckoutExpired   = "checkout_session.expired"
	WebhookPayoutCompleted   = "payout.completed"
	WebhookPayoutFailed      = "payout.failed"
)

// CreateCheckoutRequest starts a ticket purchase. Either UserID or Email must
// be set; Email alone produces a guest purchase.
type CreateCheckoutRequest struct {
	EventID int64  `json:"event_id" binding:"required"`
	UserID  *int64 `json:"user_id,omitempty"`
	Email   string `json:"email,omitempty"`
}

// CreateCheckoutResponse returns the hosted checkout page to redirect to
type CreateCheckoutResponse struct {
	TicketID    int64  `json:"ticket_id"`
	TicketNo    int    `json:"ticket_no"`
	CheckoutURL string `json:"checkout_url"`
}

// CancelCheckoutRequest cancels a purchase that has not been paid yet
type CancelCheckoutRequest struct {
	TicketID int64 `json:"ticket_id" binding:"required"`
}

// SweepResponse reports how many eligible items a sweep settled
type SweepResponse struct {
	Processed int `json:"processed"`
	Total     int `json:"total"`
}

// WebhookEvent is the envelope the payment processor delivers. The raw body
// is authenticated before this struct is trusted.
type WebhookEvent struct {
	ID   string           `json:"id"`
	Type string           `json:"type"`
	Data WebhookEventData `json:"data"`
}

// WebhookEventData carries the session or payout the event refers to. The
// metadata is the same key-value set attached when the session was created.
type WebhookEventData struct {
	SessionID     string              `json:"session_id,omitempty"`
	PayoutID      string              `json:"payout_id,omitempty"`
	TransactionID string              `json:"transaction_id,omitempty"`
	Amount        decimal.Decimal     `json:"amount"`
	Currency      string              `json:"currency,omitempty"`
	ProcessorFee  decimal.NullDecimal `json:"processor_fee"`
	CustomerEmail string              `json:"customer_email,omitempty"`
	FailureReason string              `json:"failure_reason,omitempty"`
	Metadata      map[string]string   `json:"metadata,omitempty"`
}

// Metadata keys attached to checkout sessions so a webhook alone can be
// correlated back to the ledger
const (
	MetaTicketID = "ticket_id"
	MetaEventID  = "event_id"
	MetaUserID   = "user_id"
)
