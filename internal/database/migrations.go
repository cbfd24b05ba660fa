package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createUsersTable,
		createEventsTable,
		createTicketsTable,
		createPaymentsTable,
		createPayoutsTable,
		createTicketsSessionIndex,
		createTicketsStaleIndex,
	}

	for i, migration := range migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
    id SERIAL PRIMARY KEY,
    email VARCHAR(255) UNIQUE NOT NULL,
    name VARCHAR(255) NOT NULL DEFAULT '',
    phone VARCHAR(32),
    is_guest BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);`

const createEventsTable = `
CREATE TABLE IF NOT EXISTS events (
    id SERIAL PRIMARY KEY,
    organizer_id INTEGER NOT NULL REFERENCES users(id),
    title VARCHAR(500) NOT NULL,
    starts_at TIMESTAMP NOT NULL,
    ends_at TIMESTAMP NOT NULL,
    max_attendees INTEGER NOT NULL,
    ticket_price DECIMAL(12,2) NOT NULL,
    fee_model VARCHAR(20) NOT NULL DEFAULT 'buyer_pays',
    status VARCHAR(20) NOT NULL DEFAULT 'draft',
    payout_completed BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (fee_model IN ('buyer_pays', 'organizer_pays')),
    CHECK (status IN ('draft', 'published', 'ended'))
);`

const createTicketsTable = `
CREATE TABLE IF NOT EXISTS tickets (
    id SERIAL PRIMARY KEY,
    event_id INTEGER NOT NULL REFERENCES events(id),
    user_id INTEGER REFERENCES users(id),
    guest_email VARCHAR(255),
    ticket_no INTEGER NOT NULL,
    tier VARCHAR(20) NOT NULL,
    fee_percent INTEGER NOT NULL,
    platform_fee DECIMAL(12,2) NOT NULL,
    amount_paid DECIMAL(12,2) NOT NULL,
    organizer_amount DECIMAL(12,2) NOT NULL,
    amount_saved DECIMAL(12,2) NOT NULL DEFAULT 0,
    session_id VARCHAR(255),
    payment_status VARCHAR(20) NOT NULL DEFAULT 'pending',
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    qr_token VARCHAR(64),
    processor_fee DECIMAL(12,2),
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    UNIQUE(event_id, ticket_no),
    CHECK (payment_status IN ('pending', 'paid', 'cancelled', 'expired')),
    CHECK (status IN ('pending', 'approved', 'rejected', 'cancelled', 'expired'))
);`

const createPaymentsTable = `
CREATE TABLE IF NOT EXISTS payments (
    id SERIAL PRIMARY KEY,
    ticket_id INTEGER NOT NULL REFERENCES tickets(id),
    transaction_id VARCHAR(255),
    amount DECIMAL(12,2) NOT NULL,
    currency VARCHAR(3) NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (status IN ('pending', 'paid', 'cancelled', 'expired'))
);`

const createPayoutsTable = `
CREATE TABLE IF NOT EXISTS payouts (
    id SERIAL PRIMARY KEY,
    event_id INTEGER NOT NULL UNIQUE REFERENCES events(id),
    organizer_id INTEGER NOT NULL REFERENCES users(id),
    gross_amount DECIMAL(12,2) NOT NULL,
    platform_fees DECIMAL(12,2) NOT NULL,
    processor_fees DECIMAL(12,2) NOT NULL,
    net_amount DECIMAL(12,2) NOT NULL,
    processor_payout_id VARCHAR(255),
    recipient_phone VARCHAR(32) NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'processing',
    paid_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (status IN ('processing', 'completed', 'failed'))
);`

const createTicketsSessionIndex = `
CREATE INDEX IF NOT EXISTS tickets_session_id_idx ON tickets (session_id);`

const createTicketsStaleIndex = `
CREATE INDEX IF NOT EXISTS tickets_status_idx ON tickets (status, payment_status);`
