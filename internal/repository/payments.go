package repository

import (
	"context"
	"database/sql"

	"tikiti/internal/database"
	"tikiti/internal/models"

	"github.com/lib/pq"
)

type PaymentRepository struct {
	db *database.DB
}

func NewPaymentRepository(db *database.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (ticket_id, transaction_id, amount, currency, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	return r.db.QueryRowContext(ctx, query,
		payment.TicketID,
		payment.TransactionID,
		payment.Amount,
		payment.Currency,
		payment.Status,
	).Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)
}

func (r *PaymentRepository) GetByTicketID(ctx context.Context, ticketID int64) (*models.Payment, error) {
	payment := &models.Payment{}
	query := `
		SELECT id, ticket_id, transaction_id, amount, currency, status, created_at, updated_at
		FROM payments
		WHERE ticket_id = $1`

	err := r.db.QueryRowContext(ctx, query, ticketID).Scan(
		&payment.ID,
		&payment.TicketID,
		&payment.TransactionID,
		&payment.Amount,
		&payment.Currency,
		&payment.Status,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return payment, err
}

// TransitionByTicket updates the payment record's status with the same
// guarded semantics as the ticket transitions. The processor transaction id
// is only filled when one is provided.
func (r *PaymentRepository) TransitionByTicket(ctx context.Context, ticketID int64, fromAllowed []string, to string, transactionID string) (bool, error) {
	query := `
		UPDATE payments
		SET status = $1,
		    transaction_id = COALESCE(transaction_id, NULLIF($2, '')),
		    updated_at = NOW()
		WHERE ticket_id = $3 AND status = ANY($4)`

	res, err := r.db.ExecContext(ctx, query, to, transactionID, ticketID, pq.Array(fromAllowed))
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	return affected > 0, err
}
