package service

import (
	"context"
	"time"

	"tikiti/internal/cache"
	"tikiti/internal/external"
	"tikiti/internal/models"
	"tikiti/internal/repository"

	"github.com/shopspring/decimal"
)

// Store contracts the services consume. The repository types satisfy them;
// tests substitute in-memory fakes.

type EventStore interface {
	GetByID(ctx context.Context, id int64) (*models.Event, error)
	ListPayoutEligible(ctx context.Context, endedBefore time.Time) ([]models.Event, error)
	MarkPayoutCompleted(ctx context.Context, id int64) error
}

type TicketStore interface {
	CreatePending(ctx context.Context, ticket *models.Ticket, capacity int) error
	GetByID(ctx context.Context, id int64) (*models.Ticket, error)
	GetBySessionID(ctx context.Context, sessionID string) (*models.Ticket, error)
	CountPaid(ctx context.Context, eventID int64) (int, error)
	SetSessionID(ctx context.Context, id int64, sessionID string) error
	SetOwner(ctx context.Context, id int64, userID int64) error
	TransitionPayment(ctx context.Context, id int64, fromAllowed []string, to string) (bool, error)
	TransitionLifecycle(ctx context.Context, id int64, fromAllowed []string, to string, qrToken string) (bool, error)
	SetProcessorFee(ctx context.Context, id int64, fee decimal.Decimal) error
	ListPaid(ctx context.Context, eventID int64) ([]models.Ticket, error)
	ListStale(ctx context.Context, cutoff time.Time) ([]models.Ticket, error)
}

type UserStore interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	CreateGuest(ctx context.Context, email string) (*models.User, error)
}

type PaymentStore interface {
	Create(ctx context.Context, payment *models.Payment) error
	TransitionByTicket(ctx context.Context, ticketID int64, fromAllowed []string, to string, transactionID string) (bool, error)
}

type PayoutStore interface {
	Create(ctx context.Context, payout *models.Payout) error
	TransitionByProcessorID(ctx context.Context, processorPayoutID string, fromAllowed []string, to string, paidAt *time.Time) (bool, error)
}

// ProcessorClient is the outbound surface of the payment processor
type ProcessorClient interface {
	Currency() string
	CreateCheckoutSession(name string, amount decimal.Decimal, metadata map[string]string) (*external.CheckoutSessionResponse, error)
	CreatePayout(amount decimal.Decimal, destination string, metadata map[string]string) (*external.PayoutResponse, error)
}

// Mailer delivers confirmation email, best-effort
type Mailer interface {
	SendTicketConfirmation(to, eventTitle, qrToken string) error
}

// Publisher emits domain events, best-effort
type Publisher interface {
	Publish(subject string, data interface{}) error
}

type Services struct {
	Checkout *CheckoutService
	Webhooks *WebhookService
	Payouts  *PayoutService
	Expiry   *ExpiryService
}

func NewServices(repos *repository.Repositories, natsClient Publisher, paymentClient *external.PaymentClient, mailerClient *external.MailerClient, dedupe *cache.WebhookCache, webhookSecret string) *Services {
	checkoutService := NewCheckoutService(repos.Events, repos.Tickets, repos.Users, repos.Payments, paymentClient, natsClient)
	webhookService := NewWebhookService(repos.Events, repos.Tickets, repos.Users, repos.Payments, repos.Payouts, mailerClient, natsClient, dedupe, webhookSecret)
	payoutService := NewPayoutService(repos.Events, repos.Tickets, repos.Users, repos.Payouts, paymentClient, natsClient)
	expiryService := NewExpiryService(repos.Tickets, natsClient)

	return &Services{
		Checkout: checkoutService,
		Webhooks: webhookService,
		Payouts:  payoutService,
		Expiry:   expiryService,
	}
}
