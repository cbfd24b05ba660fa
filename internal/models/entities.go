package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment status values reported by the processor
const (
	PaymentStatusPending   = "pending"
	PaymentStatusPaid      = "paid"
	PaymentStatusCancelled = "cancelled"
	PaymentStatusExpired   = "expired"
)

// Ticket lifecycle status values. Everything except pending is terminal.
const (
	TicketStatusPending   = "pending"
	TicketStatusApproved  = "approved"
	TicketStatusRejected  = "rejected"
	TicketStatusCancelled = "cancelled"
	TicketStatusExpired   = "expired"
)

// Payout status values
const (
	PayoutStatusProcessing = "processing"
	PayoutStatusCompleted  = "completed"
	PayoutStatusFailed     = "failed"
)

// Event publication status values
const (
	EventStatusDraft     = "draft"
	EventStatusPublished = "published"
	EventStatusEnded     = "ended"
)

// Fee model values
const (
	FeeModelBuyerPays     = "buyer_pays"
	FeeModelOrganizerPays = "organizer_pays"
)

// User represents an account in the system. Guest users are created without
// credentials when a ticket is bought with just an email address.
type User struct {
	ID        int64     `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	Phone     *string   `json:"phone" db:"phone"`
	IsGuest   bool      `json:"is_guest" db:"is_guest"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Event represents an event owned by an organizer
type Event struct {
	ID              int64           `json:"id" db:"id"`
	OrganizerID     int64           `json:"organizer_id" db:"organizer_id"`
	Title           string          `json:"title" db:"title"`
	StartsAt        time.Time       `json:"starts_at" db:"starts_at"`
	EndsAt          time.Time       `json:"ends_at" db:"ends_at"`
	MaxAttendees    int             `json:"max_attendees" db:"max_attendees"`
	TicketPrice     decimal.Decimal `json:"ticket_price" db:"ticket_price"`
	FeeModel        string          `json:"fee_model" db:"fee_model"`
	Status          string          `json:"status" db:"status"`
	PayoutCompleted bool            `json:"payout_completed" db:"payout_completed"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// Ticket is the durable record of the purchase lifecycle. The pricing fields
// are a snapshot taken at purchase time and are never recomputed.
type Ticket struct {
	ID              int64               `json:"id" db:"id"`
	EventID         int64               `json:"event_id" db:"event_id"`
	UserID          *int64              `json:"user_id" db:"user_id"`
	GuestEmail      *string             `json:"guest_email" db:"guest_email"`
	TicketNo        int                 `json:"ticket_no" db:"ticket_no"`
	Tier            string              `json:"tier" db:"tier"`
	FeePercent      int                 `json:"fee_percent" db:"fee_percent"`
	PlatformFee     decimal.Decimal     `json:"platform_fee" db:"platform_fee"`
	AmountPaid      decimal.Decimal     `json:"amount_paid" db:"amount_paid"`
	OrganizerAmount decimal.Decimal     `json:"organizer_amount" db:"organizer_amount"`
	AmountSaved     decimal.Decimal     `json:"amount_saved" db:"amount_saved"`
	SessionID       *string             `json:"session_id" db:"session_id"`
	PaymentStatus   string              `json:"payment_status" db:"payment_status"`
	Status          string              `json:"status" db:"status"`
	QRToken         *string             `json:"qr_token" db:"qr_token"`
	ProcessorFee    decimal.NullDecimal `json:"processor_fee" db:"processor_fee"`
	CreatedAt       time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at" db:"updated_at"`
}

// Payment tracks the processor transaction independently of the ticket's own
// payment fields
type Payment struct {
	ID            int64           `json:"id" db:"id"`
	TicketID      int64           `json:"ticket_id" db:"ticket_id"`
	TransactionID *string         `json:"transaction_id" db:"transaction_id"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	Currency      string          `json:"currency" db:"currency"`
	Status        string          `json:"status" db:"status"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// Payout aggregates the paid tickets of a concluded event into a single
// mobile-money transfer to the organizer
type Payout struct {
	ID                int64           `json:"id" db:"id"`
	EventID           int64           `json:"event_id" db:"event_id"`
	OrganizerID       int64           `json:"organizer_id" db:"organizer_id"`
	GrossAmount       decimal.Decimal `json:"gross_amount" db:"gross_amount"`
	PlatformFees      decimal.Decimal `json:"platform_fees" db:"platform_fees"`
	ProcessorFees     decimal.Decimal `json:"processor_fees" db:"processor_fees"`
	NetAmount         decimal.Decimal `json:"net_amount" db:"net_amount"`
	ProcessorPayoutID *string         `json:"processor_payout_id" db:"processor_payout_id"`
	RecipientPhone    string          `json:"recipient_phone" db:"recipient_phone"`
	Status            string          `json:"status" db:"status"`
	PaidAt            *time.Time      `json:"paid_at" db:"paid_at"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}
