package repository

import (
	"tikiti/internal/database"
)

type Repositories struct {
	Events   *EventRepository
	Tickets  *TicketRepository
	Users    *UserRepository
	Payments *PaymentRepository
	Payouts  *PayoutRepository
}

func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Events:   NewEventRepository(db),
		Tickets:  NewTicketRepository(db),
		Users:    NewUserRepository(db),
		Payments: NewPaymentRepository(db),
		Payouts:  NewPayoutRepository(db),
	}
}
