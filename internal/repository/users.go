package repository

import (
	"context"
	"database/sql"

	"tikiti/internal/database"
	"tikiti/internal/models"
)

type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, email, name, phone, is_guest, created_at
		FROM users
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Phone,
		&user.IsGuest,
		&user.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return user, err
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, email, name, phone, is_guest, created_at
		FROM users
		WHERE email = $1`

	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Phone,
		&user.IsGuest,
		&user.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return user, err
}

// CreateGuest inserts a guest profile for the email, or returns the existing
// profile if one was created concurrently. Webhook redelivery therefore never
// produces duplicate guests.
func (r *UserRepository) CreateGuest(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	query := `
		INSERT INTO users (email, is_guest)
		VALUES ($1, TRUE)
		ON CONFLICT (email) DO NOTHING
		RETURNING id, email, name, phone, is_guest, created_at`

	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Phone,
		&user.IsGuest,
		&user.CreatedAt,
	)

	if err == sql.ErrNoRows {
		// Lost the race to another insert, the row exists now
		return r.GetByEmail(ctx, email)
	}

	return user, err
}
