package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	apperrors "tikiti/internal/errors"
	"tikiti/internal/logger"
	"tikiti/internal/models"
	"tikiti/internal/monitoring"

	"github.com/shopspring/decimal"
)

// Organizers are paid out once the dispute window after the event has passed.
const payoutDelay = 3 * 24 * time.Hour

// PayoutService settles concluded events: it aggregates the paid tickets of
// each eligible event into one mobile-money transfer to the organizer.
type PayoutService struct {
	events    EventStore
	tickets   TicketStore
	users     UserStore
	payouts   PayoutStore
	processor ProcessorClient
	nats      Publisher
}

func NewPayoutService(events EventStore, tickets TicketStore, users UserStore, payouts PayoutStore, processor ProcessorClient, nats Publisher) *PayoutService {
	return &PayoutService{
		events:    events,
		tickets:   tickets,
		users:     users,
		payouts:   payouts,
		processor: processor,
		nats:      nats,
	}
}

// Sweep settles every event that ended at least payoutDelay ago and has not
// been paid out. One event failing does not stop the others.
func (s *PayoutService) Sweep(ctx context.Context) (*models.SweepResponse, error) {
	cutoff := time.Now().Add(-payoutDelay)

	eligible, err := s.events.ListPayoutEligible(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list payout-eligible events: %w", err)
	}

	resp := &models.SweepResponse{Total: len(eligible)}
	for i := range eligible {
		event := &eligible[i]
		if err := s.settleEvent(ctx, event); err != nil {
			logger.WithContext(ctx).Error("Failed to settle event payout",
				"error", err,
				"event_id", event.ID,
				"organizer_id", event.OrganizerID)
			monitoring.TrackSweep("payout", "failed")
			continue
		}
		monitoring.TrackSweep("payout", "ok")
		resp.Processed++
	}

	logger.WithContext(ctx).Info("Payout sweep finished",
		"processed", resp.Processed,
		"total", resp.Total)
	return resp, nil
}

// settleEvent computes the payout for one event from the pricing snapshots on
// its paid tickets and hands the transfer to the processor. The amounts on
// the tickets were fixed at purchase time; nothing is repriced here.
func (s *PayoutService) settleEvent(ctx context.Context, event *models.Event) error {
	paid, err := s.tickets.ListPaid(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("failed to list paid tickets: %w", err)
	}

	if len(paid) == 0 {
		// Nothing was sold; close the event out without a payout row
		if err := s.events.MarkPayoutCompleted(ctx, event.ID); err != nil {
			return fmt.Errorf("failed to close zero-revenue event: %w", err)
		}
		logger.WithContext(ctx).Info("Closed event with no paid tickets",
			"event_id", event.ID)
		return nil
	}

	// The organizer share on each ticket already accounts for the fee model;
	// the net transfer is exactly the sum of those snapshots. Processor fees
	// are aggregated for the record only, never deducted again.
	gross := decimal.Zero
	platformFees := decimal.Zero
	processorFees := decimal.Zero
	net := decimal.Zero
	for i := range paid {
		t := &paid[i]
		gross = gross.Add(t.AmountPaid)
		platformFees = platformFees.Add(t.PlatformFee)
		if t.ProcessorFee.Valid {
			processorFees = processorFees.Add(t.ProcessorFee.Decimal)
		}
		net = net.Add(t.OrganizerAmount)
	}

	organizer, err := s.users.GetByID(ctx, event.OrganizerID)
	if err != nil {
		return fmt.Errorf("failed to load organizer: %w", err)
	}
	if organizer == nil {
		return fmt.Errorf("organizer %d: %w", event.OrganizerID, apperrors.ErrNotFound)
	}
	if organizer.Phone == nil || *organizer.Phone == "" {
		return fmt.Errorf("organizer %d has no payout phone: %w", organizer.ID, apperrors.ErrInvalidState)
	}

	metadata := map[string]string{
		models.MetaEventID: strconv.FormatInt(event.ID, 10),
	}
	transfer, err := s.processor.CreatePayout(net, *organizer.Phone, metadata)
	if err != nil {
		monitoring.TrackProcessorRequest("payout", "error")
		return fmt.Errorf("failed to create processor payout: %w", err)
	}
	monitoring.TrackProcessorRequest("payout", "ok")

	payout := &models.Payout{
		EventID:           event.ID,
		OrganizerID:       event.OrganizerID,
		GrossAmount:       gross,
		PlatformFees:      platformFees,
		ProcessorFees:     processorFees,
		NetAmount:         net,
		ProcessorPayoutID: &transfer.PayoutID,
		RecipientPhone:    *organizer.Phone,
		Status:            models.PayoutStatusProcessing,
	}
	if err := s.payouts.Create(ctx, payout); err != nil {
		return fmt.Errorf("failed to record payout: %w", err)
	}

	if err := s.events.MarkPayoutCompleted(ctx, event.ID); err != nil {
		return fmt.Errorf("failed to mark event payout-complete: %w", err)
	}

	requestedEvent := models.PayoutRequestedEvent{
		PayoutID:  payout.ID,
		EventID:   event.ID,
		NetAmount: net,
		Timestamp: time.Now(),
	}
	if err := s.nats.Publish(models.EventPayoutRequested, requestedEvent); err != nil {
		logger.WithContext(ctx).Error("Failed to publish payout requested event",
			"error", err,
			"event_id", event.ID,
			"event_type", models.EventPayoutRequested)
	}

	logger.WithContext(ctx).Info("Requested organizer payout",
		"event_id", event.ID,
		"payout_id", payout.ID,
		"tickets", len(paid),
		"net_amount", net.String())
	return nil
}
