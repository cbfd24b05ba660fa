package service

import (
	"context"
	"fmt"
	"strconv"

	apperrors "tikiti/internal/errors"
	"tikiti/internal/logger"
	"tikiti/internal/models"
	"tikiti/internal/monitoring"
	"tikiti/internal/pricing"
)

// CheckoutService takes a purchase from intent to a hosted checkout session.
// Anything that fails after the pending ticket exists leaves it pending; the
// expiry sweep retires it later instead of a synchronous rollback.
type CheckoutService struct {
	events    EventStore
	tickets   TicketStore
	users     UserStore
	payments  PaymentStore
	processor ProcessorClient
	nats      Publisher
}

func NewCheckoutService(events EventStore, tickets TicketStore, users UserStore, payments PaymentStore, processor ProcessorClient, nats Publisher) *CheckoutService {
	return &CheckoutService{
		events:    events,
		tickets:   tickets,
		users:     users,
		payments:  payments,
		processor: processor,
		nats:      nats,
	}
}

func (s *CheckoutService) Create(ctx context.Context, req *models.CreateCheckoutRequest) (*models.CreateCheckoutResponse, error) {
	if req.UserID == nil && req.Email == "" {
		return nil, fmt.Errorf("buyer identity required, provide user_id or email: %w", apperrors.ErrInvalidState)
	}

	event, err := s.events.GetByID(ctx, req.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return nil, fmt.Errorf("event %d: %w", req.EventID, apperrors.ErrNotFound)
	}
	if event.Status != models.EventStatusPublished {
		return nil, fmt.Errorf("event %d is %s, not published: %w", event.ID, event.Status, apperrors.ErrInvalidState)
	}

	paidCount, err := s.tickets.CountPaid(ctx, event.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count paid tickets: %w", err)
	}
	if paidCount >= event.MaxAttendees {
		return nil, fmt.Errorf("event %d: %w", event.ID, apperrors.ErrSoldOut)
	}

	quote, err := pricing.Compute(event.TicketPrice, paidCount, event.FeeModel)
	if err != nil {
		return nil, fmt.Errorf("failed to compute pricing: %w", err)
	}

	ticket := &models.Ticket{
		EventID:         event.ID,
		UserID:          req.UserID,
		Tier:            quote.Tier,
		FeePercent:      quote.FeePercent,
		PlatformFee:     quote.PlatformFee,
		AmountPaid:      quote.BuyerPays,
		OrganizerAmount: quote.OrganizerGets,
		AmountSaved:     quote.BuyerSaved,
	}
	if req.UserID == nil {
		email := req.Email
		ticket.GuestEmail = &email
	}

	if err := s.tickets.CreatePending(ctx, ticket, event.MaxAttendees); err != nil {
		return nil, fmt.Errorf("failed to create pending ticket: %w", err)
	}

	// Parallel processor-transaction record; the ticket row stays
	// authoritative if this fails
	payment := &models.Payment{
		TicketID: ticket.ID,
		Amount:   quote.BuyerPays,
		Currency: s.processor.Currency(),
		Status:   models.PaymentStatusPending,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		logger.WithContext(ctx).Error("Failed to create payment record",
			"error", err,
			"ticket_id", ticket.ID)
	}

	// The metadata must be enough to find the ticket from the webhook alone
	metadata := map[string]string{
		models.MetaTicketID: strconv.FormatInt(ticket.ID, 10),
		models.MetaEventID:  strconv.FormatInt(event.ID, 10),
	}
	if req.UserID != nil {
		metadata[models.MetaUserID] = strconv.FormatInt(*req.UserID, 10)
	}

	session, err := s.processor.CreateCheckoutSession(event.Title, quote.BuyerPays, metadata)
	if err != nil {
		monitoring.TrackProcessorRequest("checkout_session", "error")
		// The pending ticket is left for the expiry sweep
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	monitoring.TrackProcessorRequest("checkout_session", "ok")

	if err := s.tickets.SetSessionID(ctx, ticket.ID, session.SessionID); err != nil {
		return nil, fmt.Errorf("failed to store session id: %w", err)
	}

	monitoring.TrackCheckout(event.FeeModel)
	logger.WithContext(ctx).Info("Checkout session created",
		"ticket_id", ticket.ID,
		"event_id", event.ID,
		"ticket_no", ticket.TicketNo,
		"tier", quote.Tier,
		"amount", quote.BuyerPays)

	return &models.CreateCheckoutResponse{
		TicketID:    ticket.ID,
		TicketNo:    ticket.TicketNo,
		CheckoutURL: session.RedirectURL,
	}, nil
}

// Cancel aborts a purchase the buyer walked away from. Only unpaid pending
// tickets can be cancelled; a ticket a racing webhook already marked paid is
// left untouched.
func (s *CheckoutService) Cancel(ctx context.Context, req *models.CancelCheckoutRequest) error {
	ticket, err := s.tickets.GetByID(ctx, req.TicketID)
	if err != nil {
		return fmt.Errorf("failed to get ticket: %w", err)
	}
	if ticket == nil {
		return fmt.Errorf("ticket %d: %w", req.TicketID, apperrors.ErrNotFound)
	}

	applied, err := s.tickets.TransitionPayment(ctx, ticket.ID,
		[]string{models.PaymentStatusPending}, models.PaymentStatusCancelled)
	if err != nil {
		return fmt.Errorf("failed to cancel payment: %w", err)
	}
	if !applied {
		return fmt.Errorf("ticket %d payment is already %s: %w", ticket.ID, ticket.PaymentStatus, apperrors.ErrInvalidState)
	}

	if _, err := s.tickets.TransitionLifecycle(ctx, ticket.ID,
		[]string{models.TicketStatusPending}, models.TicketStatusCancelled, ""); err != nil {
		return fmt.Errorf("failed to cancel ticket: %w", err)
	}

	if _, err := s.payments.TransitionByTicket(ctx, ticket.ID,
		[]string{models.PaymentStatusPending}, models.PaymentStatusCancelled, ""); err != nil {
		logger.WithContext(ctx).Error("Failed to cancel payment record",
			"error", err,
			"ticket_id", ticket.ID)
	}

	logger.WithContext(ctx).Info("Checkout cancelled", "ticket_id", ticket.ID)
	return nil
}
