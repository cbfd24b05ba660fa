package repository

import (
	"context"
	"database/sql"
	"time"

	"tikiti/internal/database"
	"tikiti/internal/models"

	"github.com/lib/pq"
)

type PayoutRepository struct {
	db *database.DB
}

func NewPayoutRepository(db *database.DB) *PayoutRepository {
	return &PayoutRepository{db: db}
}

func (r *PayoutRepository) Create(ctx context.Context, payout *models.Payout) error {
	query := `
		INSERT INTO payouts (event_id, organizer_id, gross_amount, platform_fees,
		                     processor_fees, net_amount, processor_payout_id,
		                     recipient_phone, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	return r.db.QueryRowContext(ctx, query,
		payout.EventID,
		payout.OrganizerID,
		payout.GrossAmount,
		payout.PlatformFees,
		payout.ProcessorFees,
		payout.NetAmount,
		payout.ProcessorPayoutID,
		payout.RecipientPhone,
		payout.Status,
	).Scan(&payout.ID, &payout.CreatedAt, &payout.UpdatedAt)
}

func (r *PayoutRepository) GetByEventID(ctx context.Context, eventID int64) (*models.Payout, error) {
	payout := &models.Payout{}
	query := `
		SELECT id, event_id, organizer_id, gross_amount, platform_fees,
		       processor_fees, net_amount, processor_payout_id, recipient_phone,
		       status, paid_at, created_at, updated_at
		FROM payouts
		WHERE event_id = $1`

	err := r.db.QueryRowContext(ctx, query, eventID).Scan(
		&payout.ID,
		&payout.EventID,
		&payout.OrganizerID,
		&payout.GrossAmount,
		&payout.PlatformFees,
		&payout.ProcessorFees,
		&payout.NetAmount,
		&payout.ProcessorPayoutID,
		&payout.RecipientPhone,
		&payout.Status,
		&payout.PaidAt,
		&payout.CreatedAt,
		&payout.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return payout, err
}

// TransitionByProcessorID applies a payout-result webhook to the matching
// payout row, guarded on the current status so replays are no-ops.
func (r *PayoutRepository) TransitionByProcessorID(ctx context.Context, processorPayoutID string, fromAllowed []string, to string, paidAt *time.Time) (bool, error) {
	query := `
		UPDATE payouts
		SET status = $1, paid_at = COALESCE($2, paid_at), updated_at = NOW()
		WHERE processor_payout_id = $3 AND status = ANY($4)`

	res, err := r.db.ExecContext(ctx, query, to, paidAt, processorPayoutID, pq.Array(fromAllowed))
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	return affected > 0, err
}
