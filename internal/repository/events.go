package repository

import (
	"context"
	"database/sql"
	"time"

	"tikiti/internal/database"
	"tikiti/internal/models"
)

type EventRepository struct {
	db *database.DB
}

func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	event := &models.Event{}
	query := `
		SELECT id, organizer_id, title, starts_at, ends_at, max_attendees,
		       ticket_price, fee_model, status, payout_completed, created_at, updated_at
		FROM events
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&event.ID,
		&event.OrganizerID,
		&event.Title,
		&event.StartsAt,
		&event.EndsAt,
		&event.MaxAttendees,
		&event.TicketPrice,
		&event.FeeModel,
		&event.Status,
		&event.PayoutCompleted,
		&event.CreatedAt,
		&event.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return event, err
}

// ListPayoutEligible returns ended events whose end date lies before the
// cutoff and whose payout has not been settled yet.
func (r *EventRepository) ListPayoutEligible(ctx context.Context, endedBefore time.Time) ([]models.Event, error) {
	var events []models.Event
	query := `
		SELECT id, organizer_id, title, starts_at, ends_at, max_attendees,
		       ticket_price, fee_model, status, payout_completed, created_at, updated_at
		FROM events
		WHERE status = 'ended'
		  AND ends_at < $1
		  AND payout_completed = FALSE
		ORDER BY ends_at ASC`

	rows, err := r.db.QueryContext(ctx, query, endedBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var event models.Event
		err := rows.Scan(
			&event.ID,
			&event.OrganizerID,
			&event.Title,
			&event.StartsAt,
			&event.EndsAt,
			&event.MaxAttendees,
			&event.TicketPrice,
			&event.FeeModel,
			&event.Status,
			&event.PayoutCompleted,
			&event.CreatedAt,
			&event.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

func (r *EventRepository) MarkPayoutCompleted(ctx context.Context, id int64) error {
	query := `
		UPDATE events
		SET payout_completed = TRUE, updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id)
	return err
}
