package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tikiti/internal/database"
	apperrors "tikiti/internal/errors"
	"tikiti/internal/models"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// maxReserveAttempts bounds the ticket-number reservation retry loop under
// concurrent purchases for the same event.
const maxReserveAttempts = 3

const uniqueViolation = "23505"

type TicketRepository struct {
	db *database.DB
}

func NewTicketRepository(db *database.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

const ticketColumns = `
	id, event_id, user_id, guest_email, ticket_no, tier, fee_percent,
	platform_fee, amount_paid, organizer_amount, amount_saved, session_id,
	payment_status, status, qr_token, processor_fee, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner, ticket *models.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.EventID,
		&ticket.UserID,
		&ticket.GuestEmail,
		&ticket.TicketNo,
		&ticket.Tier,
		&ticket.FeePercent,
		&ticket.PlatformFee,
		&ticket.AmountPaid,
		&ticket.OrganizerAmount,
		&ticket.AmountSaved,
		&ticket.SessionID,
		&ticket.PaymentStatus,
		&ticket.Status,
		&ticket.QRToken,
		&ticket.ProcessorFee,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
}

// CreatePending inserts a pending ticket with the next ticket number for the
// event. Admission is bounded by the count of tickets still in play: cancelled
// and expired tickets release their capacity back while the event is selling.
// Numbers themselves are never reissued; the next one comes from the running
// maximum and goes in under the UNIQUE(event_id, ticket_no) constraint, so
// losing the race produces a unique violation and a recount. An admission past
// capacity fails with Conflict, which bounds the live tickets per event.
func (r *TicketRepository) CreatePending(ctx context.Context, ticket *models.Ticket, capacity int) error {
	reserveQuery := `
		SELECT COUNT(*) FILTER (WHERE status NOT IN ('cancelled', 'expired')),
		       COALESCE(MAX(ticket_no), 0)
		FROM tickets
		WHERE event_id = $1`

	insertQuery := `
		INSERT INTO tickets (event_id, user_id, guest_email, ticket_no, tier,
		                     fee_percent, platform_fee, amount_paid,
		                     organizer_amount, amount_saved, payment_status, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 'pending', 'pending')
		RETURNING id, created_at, updated_at`

	for attempt := 0; attempt < maxReserveAttempts; attempt++ {
		var active, maxNo int
		if err := r.db.QueryRowContext(ctx, reserveQuery, ticket.EventID).Scan(&active, &maxNo); err != nil {
			return fmt.Errorf("failed to count tickets: %w", err)
		}

		if active+1 > capacity {
			return fmt.Errorf("event %d has %d live tickets at capacity %d: %w", ticket.EventID, active, capacity, apperrors.ErrConflict)
		}
		next := maxNo + 1

		err := r.db.QueryRowContext(ctx, insertQuery,
			ticket.EventID,
			ticket.UserID,
			ticket.GuestEmail,
			next,
			ticket.Tier,
			ticket.FeePercent,
			ticket.PlatformFee,
			ticket.AmountPaid,
			ticket.OrganizerAmount,
			ticket.AmountSaved,
		).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)

		if err == nil {
			ticket.TicketNo = next
			ticket.PaymentStatus = models.PaymentStatusPending
			ticket.Status = models.TicketStatusPending
			return nil
		}

		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			// Lost the ticket-number race, recount and retry
			continue
		}

		return fmt.Errorf("failed to insert ticket: %w", err)
	}

	return fmt.Errorf("ticket number reservation kept colliding: %w", apperrors.ErrConflict)
}

func (r *TicketRepository) GetByID(ctx context.Context, id int64) (*models.Ticket, error) {
	ticket := &models.Ticket{}
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`

	err := scanTicket(r.db.QueryRowContext(ctx, query, id), ticket)
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return ticket, err
}

func (r *TicketRepository) GetBySessionID(ctx context.Context, sessionID string) (*models.Ticket, error) {
	ticket := &models.Ticket{}
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE session_id = $1`

	err := scanTicket(r.db.QueryRowContext(ctx, query, sessionID), ticket)
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return ticket, err
}

func (r *TicketRepository) CountPaid(ctx context.Context, eventID int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM tickets WHERE event_id = $1 AND payment_status = 'paid'`

	err := r.db.QueryRowContext(ctx, query, eventID).Scan(&count)
	return count, err
}

func (r *TicketRepository) SetSessionID(ctx context.Context, id int64, sessionID string) error {
	query := `UPDATE tickets SET session_id = $1, updated_at = NOW() WHERE id = $2`

	_, err := r.db.ExecContext(ctx, query, sessionID, id)
	return err
}

// SetOwner resolves a guest ticket to a user profile. It only fills an empty
// owner so a replayed webhook cannot reassign the ticket.
func (r *TicketRepository) SetOwner(ctx context.Context, id int64, userID int64) error {
	query := `UPDATE tickets SET user_id = $1, updated_at = NOW() WHERE id = $2 AND user_id IS NULL`

	_, err := r.db.ExecContext(ctx, query, userID, id)
	return err
}

// TransitionPayment moves the payment status only when the current status is
// in fromAllowed. It reports whether the transition was applied; a replayed
// webhook finds the ticket already transitioned and gets false.
func (r *TicketRepository) TransitionPayment(ctx context.Context, id int64, fromAllowed []string, to string) (bool, error) {
	query := `
		UPDATE tickets
		SET payment_status = $1, updated_at = NOW()
		WHERE id = $2 AND payment_status = ANY($3)`

	res, err := r.db.ExecContext(ctx, query, to, id, pq.Array(fromAllowed))
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	return affected > 0, err
}

// TransitionLifecycle is the guarded transition for the lifecycle status. The
// QR token is assigned at most once: an existing token is never overwritten.
func (r *TicketRepository) TransitionLifecycle(ctx context.Context, id int64, fromAllowed []string, to string, qrToken string) (bool, error) {
	query := `
		UPDATE tickets
		SET status = $1, qr_token = COALESCE(qr_token, NULLIF($2, '')), updated_at = NOW()
		WHERE id = $3 AND status = ANY($4)`

	res, err := r.db.ExecContext(ctx, query, to, qrToken, id, pq.Array(fromAllowed))
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	return affected > 0, err
}

// SetProcessorFee records the settlement fee once; later deliveries of the
// same amount are no-ops.
func (r *TicketRepository) SetProcessorFee(ctx context.Context, id int64, fee decimal.Decimal) error {
	query := `
		UPDATE tickets
		SET processor_fee = $1, updated_at = NOW()
		WHERE id = $2 AND processor_fee IS NULL`

	_, err := r.db.ExecContext(ctx, query, fee, id)
	return err
}

func (r *TicketRepository) ListPaid(ctx context.Context, eventID int64) ([]models.Ticket, error) {
	query := `SELECT ` + ticketColumns + `
		FROM tickets
		WHERE event_id = $1 AND payment_status = 'paid'
		ORDER BY ticket_no ASC`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTickets(rows)
}

// ListStale returns tickets still in a non-terminal lifecycle state whose
// event ended before the cutoff.
func (r *TicketRepository) ListStale(ctx context.Context, cutoff time.Time) ([]models.Ticket, error) {
	query := `
		SELECT t.id, t.event_id, t.user_id, t.guest_email, t.ticket_no, t.tier,
		       t.fee_percent, t.platform_fee, t.amount_paid, t.organizer_amount,
		       t.amount_saved, t.session_id, t.payment_status, t.status,
		       t.qr_token, t.processor_fee, t.created_at, t.updated_at
		FROM tickets t
		JOIN events e ON e.id = t.event_id
		WHERE t.status IN ('pending', 'approved')
		  AND e.ends_at < $1
		ORDER BY t.created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTickets(rows)
}

func collectTickets(rows *sql.Rows) ([]models.Ticket, error) {
	var tickets []models.Ticket
	for rows.Next() {
		var ticket models.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	return tickets, rows.Err()
}
