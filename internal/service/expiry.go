package service

import (
	"context"
	"fmt"
	"time"

	"tikiti/internal/logger"
	"tikiti/internal/models"
	"tikiti/internal/monitoring"
)

// Tickets still pending or unredeemed this long after the event ended are
// retired.
const expiryCutoff = 2 * 24 * time.Hour

// ExpiryService retires stale tickets for events that ended long ago.
type ExpiryService struct {
	tickets TicketStore
	nats    Publisher
}

func NewExpiryService(tickets TicketStore, nats Publisher) *ExpiryService {
	return &ExpiryService{tickets: tickets, nats: nats}
}

// Sweep expires every pending or approved ticket whose event ended more than
// expiryCutoff ago. Both transitions are guarded, so a concurrent payment
// settling the same ticket wins and the sweep skips it.
func (s *ExpiryService) Sweep(ctx context.Context) (*models.SweepResponse, error) {
	cutoff := time.Now().Add(-expiryCutoff)

	stale, err := s.tickets.ListStale(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale tickets: %w", err)
	}

	resp := &models.SweepResponse{Total: len(stale)}
	for i := range stale {
		ticket := &stale[i]

		applied, err := s.tickets.TransitionLifecycle(ctx, ticket.ID,
			[]string{models.TicketStatusPending, models.TicketStatusApproved},
			models.TicketStatusExpired, "")
		if err != nil {
			logger.WithContext(ctx).Error("Failed to expire ticket",
				"error", err,
				"ticket_id", ticket.ID)
			monitoring.TrackSweep("expiry", "failed")
			continue
		}
		if !applied {
			monitoring.TrackSweep("expiry", "skipped")
			continue
		}

		if _, err := s.tickets.TransitionPayment(ctx, ticket.ID,
			[]string{models.PaymentStatusPending}, models.PaymentStatusExpired); err != nil {
			logger.WithContext(ctx).Error("Failed to expire ticket payment",
				"error", err,
				"ticket_id", ticket.ID)
		}

		expiredEvent := models.TicketExpiredEvent{
			TicketID:  ticket.ID,
			EventID:   ticket.EventID,
			Timestamp: time.Now(),
		}
		if err := s.nats.Publish(models.EventTicketExpired, expiredEvent); err != nil {
			logger.WithContext(ctx).Error("Failed to publish ticket expired event",
				"error", err,
				"ticket_id", ticket.ID,
				"event_type", models.EventTicketExpired)
		}

		monitoring.TrackSweep("expiry", "ok")
		resp.Processed++
	}

	logger.WithContext(ctx).Info("Expiry sweep finished",
		"processed", resp.Processed,
		"total", resp.Total)
	return resp, nil
}
