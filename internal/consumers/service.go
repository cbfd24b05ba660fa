package consumers

import (
	"context"
	"log/slog"

	"tikiti/internal/config"
	"tikiti/internal/messaging"
	"tikiti/internal/models"
)

type ConsumerService struct {
	nats     *messaging.NATSClient
	handlers *Handlers
}

func NewConsumerService(cfg *config.Config) (*ConsumerService, error) {
	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		return nil, err
	}

	return &ConsumerService{
		nats:     natsClient,
		handlers: NewHandlers(),
	}, nil
}

func (cs *ConsumerService) Start() error {
	slog.Info("Starting NATS consumers...")

	if _, err := cs.nats.SubscribeQueue(models.EventTicketApproved, "consumers", cs.handlers.HandleTicketApproved); err != nil {
		return err
	}

	if _, err := cs.nats.SubscribeQueue(models.EventTicketExpired, "consumers", cs.handlers.HandleTicketExpired); err != nil {
		return err
	}

	if _, err := cs.nats.SubscribeQueue(models.EventPaymentExpired, "consumers", cs.handlers.HandlePaymentExpired); err != nil {
		return err
	}

	if _, err := cs.nats.SubscribeQueue(models.EventPayoutRequested, "consumers", cs.handlers.HandlePayoutRequested); err != nil {
		return err
	}

	if _, err := cs.nats.SubscribeQueue(models.EventPayoutCompleted, "consumers", cs.handlers.HandlePayoutResult); err != nil {
		return err
	}

	if _, err := cs.nats.SubscribeQueue(models.EventPayoutFailed, "consumers", cs.handlers.HandlePayoutResult); err != nil {
		return err
	}

	slog.Info("All consumers started successfully")
	return nil
}

func (cs *ConsumerService) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down consumer service...")

	if cs.nats != nil {
		if err := cs.nats.Close(); err != nil {
			slog.Error("Error closing NATS connection", "error", err)
			return err
		}
	}

	return nil
}
