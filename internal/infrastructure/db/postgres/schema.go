package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied in order on start-up. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS user_credits (
		user_id            TEXT PRIMARY KEY,
		balance            INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
		monthly_allocation INTEGER NOT NULL DEFAULT 0,
		last_allocation_at TIMESTAMPTZ NOT NULL,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS credit_transactions (
		id                 TEXT PRIMARY KEY,
		user_id            TEXT NOT NULL REFERENCES user_credits (user_id),
		amount             INTEGER NOT NULL,
		transaction_type   TEXT NOT NULL CHECK (transaction_type IN ('allocation', 'usage', 'purchase', 'bonus', 'refund')),
		description        TEXT NOT NULL DEFAULT '',
		service_request_id TEXT,
		balance_after      INTEGER NOT NULL,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS credit_transactions_user_created_idx
		ON credit_transactions (user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS user_credits_last_allocation_idx
		ON user_credits (last_allocation_at, user_id)`,
	`CREATE TABLE IF NOT EXISTS service_requests (
		id              TEXT PRIMARY KEY,
		client_id       TEXT NOT NULL,
		title           TEXT NOT NULL,
		description     TEXT NOT NULL DEFAULT '',
		category        TEXT NOT NULL,
		status          TEXT NOT NULL,
		priority        TEXT NOT NULL,
		budget_min      INTEGER,
		budget_max      INTEGER,
		deadline        TIMESTAMPTZ,
		partner_id      TEXT,
		requirements    JSONB NOT NULL DEFAULT '{}',
		credits_charged INTEGER NOT NULL DEFAULT 0,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		completed_at    TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS service_requests_client_idx ON service_requests (client_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS service_requests_partner_idx ON service_requests (partner_id)`,
	`CREATE INDEX IF NOT EXISTS service_requests_status_idx ON service_requests (status)`,
	`CREATE TABLE IF NOT EXISTS service_request_updates (
		id                   TEXT PRIMARY KEY,
		service_request_id   TEXT NOT NULL REFERENCES service_requests (id) ON DELETE CASCADE,
		update_type          TEXT NOT NULL,
		previous_status      TEXT NOT NULL DEFAULT '',
		new_status           TEXT NOT NULL DEFAULT '',
		title                TEXT NOT NULL,
		description          TEXT NOT NULL DEFAULT '',
		updated_by           TEXT NOT NULL,
		updated_by_role      TEXT NOT NULL,
		is_visible_to_client BOOLEAN NOT NULL DEFAULT true,
		metadata             JSONB NOT NULL DEFAULT '{}',
		created_at           TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS service_request_updates_request_idx
		ON service_request_updates (service_request_id, created_at)`,
}

// EnsureSchema creates the ledger and request tables when missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}
