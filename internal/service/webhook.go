package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"tikiti/internal/cache"
	apperrors "tikiti/internal/errors"
	"tikiti/internal/logger"
	"tikiti/internal/models"
	"tikiti/internal/monitoring"

	"github.com/google/uuid"
)

// WebhookService reconciles asynchronous processor callbacks onto the ticket
// ledger. Every ledger write goes through a guarded transition, so replayed
// and out-of-order deliveries converge on the same final state.
type WebhookService struct {
	events   EventStore
	tickets  TicketStore
	users    UserStore
	payments PaymentStore
	payouts  PayoutStore
	mailer   Mailer
	nats     Publisher
	dedupe   *cache.WebhookCache
	secret   []byte
}

func NewWebhookService(events EventStore, tickets TicketStore, users UserStore, payments PaymentStore, payouts PayoutStore, mailer Mailer, nats Publisher, dedupe *cache.WebhookCache, secret string) *WebhookService {
	return &WebhookService{
		events:   events,
		tickets:  tickets,
		users:    users,
		payments: payments,
		payouts:  payouts,
		mailer:   mailer,
		nats:     nats,
		dedupe:   dedupe,
		secret:   []byte(secret),
	}
}

// Sign computes the hex HMAC-SHA256 digest of a body under the shared secret.
func Sign(body, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a webhook signature against the exact bytes
// received. The comparison is constant-time.
func VerifySignature(body []byte, signature string, secret []byte) bool {
	if signature == "" {
		return false
	}
	expected := Sign(body, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// HandleEvent authenticates and applies one webhook delivery. body must be
// the raw request bytes, not a re-serialized form, or valid signatures would
// fail to verify.
func (s *WebhookService) HandleEvent(ctx context.Context, body []byte, signature string) error {
	if !VerifySignature(body, signature, s.secret) {
		monitoring.TrackWebhook("unknown", "unauthorized")
		return fmt.Errorf("webhook signature mismatch: %w", apperrors.ErrUnauthorized)
	}

	var event models.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		monitoring.TrackWebhook("unknown", "malformed")
		return fmt.Errorf("malformed webhook payload: %w", err)
	}

	if s.dedupe.Seen(ctx, event.ID) {
		logger.WithContext(ctx).Info("Skipping already processed webhook",
			"webhook_id", event.ID,
			"type", event.Type)
		monitoring.TrackWebhook(event.Type, "duplicate")
		return nil
	}

	var err error
	switch event.Type {
	case models.WebhookCheckoutCompleted:
		err = s.handleCheckoutCompleted(ctx, &event)
	case models.WebhookCheckoutExpired:
		err = s.handleCheckoutExpired(ctx, &event)
	case models.WebhookPayoutCompleted:
		err = s.handlePayoutResult(ctx, &event, models.PayoutStatusCompleted)
	case models.WebhookPayoutFailed:
		err = s.handlePayoutResult(ctx, &event, models.PayoutStatusFailed)
	default:
		// Unknown types are acknowledged for forward compatibility
		logger.WithContext(ctx).Info("Ignoring unrecognized webhook type",
			"webhook_id", event.ID,
			"type", event.Type)
		monitoring.TrackWebhook(event.Type, "ignored")
		return nil
	}

	if err != nil {
		monitoring.TrackWebhook(event.Type, "error")
		return err
	}

	s.dedupe.MarkSeen(ctx, event.ID)
	monitoring.TrackWebhook(event.Type, "ok")
	return nil
}

// handleCheckoutCompleted settles a paid session: payment pending->paid,
// lifecycle pending->approved with a one-time QR token, processor fee
// recorded, confirmation email sent. Each step is conditional on the current
// state, so a redelivery changes nothing and triggers no second email.
func (s *WebhookService) handleCheckoutCompleted(ctx context.Context, event *models.WebhookEvent) error {
	ticket, err := s.resolveTicket(ctx, event)
	if err != nil {
		return err
	}

	paidApplied, err := s.tickets.TransitionPayment(ctx, ticket.ID,
		[]string{models.PaymentStatusPending}, models.PaymentStatusPaid)
	if err != nil {
		return fmt.Errorf("failed to mark ticket paid: %w", err)
	}
	if !paidApplied {
		// Either a replay of a paid session or a completion arriving after
		// the session was cancelled or expired. Only the former may approve:
		// an unpaid ticket must never receive an admission credential.
		fresh, err := s.tickets.GetByID(ctx, ticket.ID)
		if err != nil {
			return fmt.Errorf("failed to reload ticket: %w", err)
		}
		if fresh == nil || fresh.PaymentStatus != models.PaymentStatusPaid {
			status := ""
			if fresh != nil {
				status = fresh.PaymentStatus
			}
			logger.WithContext(ctx).Info("Ignoring completion for unpaid settled ticket",
				"ticket_id", ticket.ID,
				"payment_status", status)
			return nil
		}
		logger.WithContext(ctx).Info("Ticket payment already settled, treating as replay",
			"ticket_id", ticket.ID)
	}

	owner, err := s.resolveOwner(ctx, ticket, event)
	if err != nil {
		return err
	}

	approvedApplied, err := s.tickets.TransitionLifecycle(ctx, ticket.ID,
		[]string{models.TicketStatusPending}, models.TicketStatusApproved, uuid.New().String())
	if err != nil {
		return fmt.Errorf("failed to approve ticket: %w", err)
	}

	if paidApplied {
		if event.Data.ProcessorFee.Valid {
			if err := s.tickets.SetProcessorFee(ctx, ticket.ID, event.Data.ProcessorFee.Decimal); err != nil {
				logger.WithContext(ctx).Error("Failed to record processor fee",
					"error", err,
					"ticket_id", ticket.ID)
			}
		}

		if _, err := s.payments.TransitionByTicket(ctx, ticket.ID,
			[]string{models.PaymentStatusPending}, models.PaymentStatusPaid, event.Data.TransactionID); err != nil {
			logger.WithContext(ctx).Error("Failed to update payment record",
				"error", err,
				"ticket_id", ticket.ID)
		}
	}

	if approvedApplied {
		s.notifyApproved(ctx, ticket, owner)
	}

	return nil
}

// notifyApproved sends the confirmation email and publishes the approval
// event. Both are best-effort: the payment is already confirmed and must not
// be rolled back by a notification failure.
func (s *WebhookService) notifyApproved(ctx context.Context, ticket *models.Ticket, owner *models.User) {
	// Re-read for the token actually stored; an existing token is kept
	fresh, err := s.tickets.GetByID(ctx, ticket.ID)
	if err != nil || fresh == nil {
		logger.WithContext(ctx).Error("Failed to reload approved ticket",
			"error", err,
			"ticket_id", ticket.ID)
		return
	}

	event, err := s.events.GetByID(ctx, fresh.EventID)
	if err != nil || event == nil {
		logger.WithContext(ctx).Error("Failed to load event for confirmation email",
			"error", err,
			"event_id", fresh.EventID)
		return
	}

	recipient := ""
	if owner != nil {
		recipient = owner.Email
	} else if fresh.GuestEmail != nil {
		recipient = *fresh.GuestEmail
	}

	qrToken := ""
	if fresh.QRToken != nil {
		qrToken = *fresh.QRToken
	}

	if recipient != "" {
		if err := s.mailer.SendTicketConfirmation(recipient, event.Title, qrToken); err != nil {
			logger.WithContext(ctx).Error("Failed to send confirmation email",
				"error", err,
				"ticket_id", fresh.ID)
		}
	}

	approvedEvent := models.TicketApprovedEvent{
		TicketID:   fresh.ID,
		EventID:    fresh.EventID,
		UserID:     fresh.UserID,
		AmountPaid: fresh.AmountPaid,
		Timestamp:  time.Now(),
	}
	if err := s.nats.Publish(models.EventTicketApproved, approvedEvent); err != nil {
		logger.WithContext(ctx).Error("Failed to publish ticket approved event",
			"error", err,
			"ticket_id", fresh.ID,
			"event_type", models.EventTicketApproved)
	}
}

// handleCheckoutExpired retires an unpaid session. A session that already
// completed cannot be regressed because the transition only fires from
// pending.
func (s *WebhookService) handleCheckoutExpired(ctx context.Context, event *models.WebhookEvent) error {
	ticket, err := s.resolveTicket(ctx, event)
	if err != nil {
		return err
	}

	applied, err := s.tickets.TransitionPayment(ctx, ticket.ID,
		[]string{models.PaymentStatusPending}, models.PaymentStatusExpired)
	if err != nil {
		return fmt.Errorf("failed to expire ticket payment: %w", err)
	}
	if !applied {
		logger.WithContext(ctx).Info("Ignoring expiry for already settled ticket",
			"ticket_id", ticket.ID,
			"payment_status", ticket.PaymentStatus)
		return nil
	}

	if _, err := s.payments.TransitionByTicket(ctx, ticket.ID,
		[]string{models.PaymentStatusPending}, models.PaymentStatusExpired, ""); err != nil {
		logger.WithContext(ctx).Error("Failed to expire payment record",
			"error", err,
			"ticket_id", ticket.ID)
	}

	expiredEvent := models.PaymentExpiredEvent{
		TicketID:  ticket.ID,
		EventID:   ticket.EventID,
		Timestamp: time.Now(),
	}
	if err := s.nats.Publish(models.EventPaymentExpired, expiredEvent); err != nil {
		logger.WithContext(ctx).Error("Failed to publish payment expired event",
			"error", err,
			"ticket_id", ticket.ID,
			"event_type", models.EventPaymentExpired)
	}

	return nil
}

// handlePayoutResult applies payout.completed / payout.failed to the payout
// row created by the settler.
func (s *WebhookService) handlePayoutResult(ctx context.Context, event *models.WebhookEvent, to string) error {
	if event.Data.PayoutID == "" {
		return fmt.Errorf("payout webhook without payout_id: %w", apperrors.ErrNotFound)
	}

	var paidAt *time.Time
	if to == models.PayoutStatusCompleted {
		now := time.Now()
		paidAt = &now
	}

	applied, err := s.payouts.TransitionByProcessorID(ctx, event.Data.PayoutID,
		[]string{models.PayoutStatusProcessing}, to, paidAt)
	if err != nil {
		return fmt.Errorf("failed to transition payout: %w", err)
	}
	if !applied {
		logger.WithContext(ctx).Info("Payout already settled or unknown, treating as replay",
			"processor_payout_id", event.Data.PayoutID,
			"status", to)
		return nil
	}

	resultEvent := models.PayoutResultEvent{
		ProcessorPayoutID: event.Data.PayoutID,
		Status:            to,
		Timestamp:         time.Now(),
	}
	subject := models.EventPayoutCompleted
	if to == models.PayoutStatusFailed {
		subject = models.EventPayoutFailed
	}
	if err := s.nats.Publish(subject, resultEvent); err != nil {
		logger.WithContext(ctx).Error("Failed to publish payout result event",
			"error", err,
			"processor_payout_id", event.Data.PayoutID,
			"event_type", subject)
	}

	return nil
}

// resolveTicket finds the ledger row for a session webhook, by session id
// first and by the metadata ticket id as fallback.
func (s *WebhookService) resolveTicket(ctx context.Context, event *models.WebhookEvent) (*models.Ticket, error) {
	if event.Data.SessionID != "" {
		ticket, err := s.tickets.GetBySessionID(ctx, event.Data.SessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up ticket by session: %w", err)
		}
		if ticket != nil {
			return ticket, nil
		}
	}

	if raw, ok := event.Data.Metadata[models.MetaTicketID]; ok {
		ticketID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad ticket id %q in webhook metadata: %w", raw, apperrors.ErrNotFound)
		}
		ticket, err := s.tickets.GetByID(ctx, ticketID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up ticket by id: %w", err)
		}
		if ticket != nil {
			return ticket, nil
		}
	}

	return nil, fmt.Errorf("no ticket for webhook session %q: %w", event.Data.SessionID, apperrors.ErrNotFound)
}

// resolveOwner attaches a user to the ticket. A metadata user id wins;
// otherwise a guest profile is looked up or created by email, idempotently,
// so redelivery cannot produce duplicate guests.
func (s *WebhookService) resolveOwner(ctx context.Context, ticket *models.Ticket, event *models.WebhookEvent) (*models.User, error) {
	if raw, ok := event.Data.Metadata[models.MetaUserID]; ok && raw != "" {
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad user id %q in webhook metadata: %w", raw, apperrors.ErrNotFound)
		}
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up user: %w", err)
		}
		if user == nil {
			return nil, fmt.Errorf("user %d from webhook metadata: %w", userID, apperrors.ErrNotFound)
		}
		if ticket.UserID == nil {
			if err := s.tickets.SetOwner(ctx, ticket.ID, user.ID); err != nil {
				return nil, fmt.Errorf("failed to set ticket owner: %w", err)
			}
		}
		return user, nil
	}

	email := event.Data.CustomerEmail
	if email == "" && ticket.GuestEmail != nil {
		email = *ticket.GuestEmail
	}
	if email == "" {
		// Nothing to resolve; the ticket keeps whatever owner it has
		return nil, nil
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up guest profile: %w", err)
	}
	if user == nil {
		user, err = s.users.CreateGuest(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("failed to create guest profile: %w", err)
		}
		logger.WithContext(ctx).Info("Created guest profile for ticket",
			"ticket_id", ticket.ID,
			"user_id", user.ID)
	}

	if ticket.UserID == nil {
		if err := s.tickets.SetOwner(ctx, ticket.ID, user.ID); err != nil {
			return nil, fmt.Errorf("failed to set ticket owner: %w", err)
		}
	}

	return user, nil
}
