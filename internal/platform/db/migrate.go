package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema statements are idempotent so Migrate can run on every boot. The
// accounts table is constrained to a single row with id=1.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
	id SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
	balance DOUBLE PRECISION NOT NULL DEFAULT 0
)`,
	`CREATE TABLE IF NOT EXISTS products (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL UNIQUE CHECK (name <> ''),
	price DOUBLE PRECISION NOT NULL CHECK (price >= 0),
	quantity BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE TABLE IF NOT EXISTS operations (
	id BIGSERIAL PRIMARY KEY,
	kind TEXT NOT NULL,
	product_name TEXT NOT NULL DEFAULT '',
	quantity BIGINT NOT NULL DEFAULT 0,
	unit_price DOUBLE PRECISION NOT NULL DEFAULT 0,
	amount DOUBLE PRECISION NOT NULL DEFAULT 0,
	balance DOUBLE PRECISION NOT NULL DEFAULT 0,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
}

// Migrate creates the schema and seeds the singleton account row. It must
// complete before the server accepts traffic; a failure here is fatal.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("platform/db: migrate: %w", err)
		}
	}
	if _, err := pool.Exec(ctx, `INSERT INTO accounts (id, balance) VALUES (1, 0) ON CONFLICT (id) DO NOTHING`); err != nil {
		return fmt.Errorf("platform/db: seed account: %w", err)
	}
	return nil
}
