// Package database owns the PostgreSQL schema. Migrate is idempotent and
// runs at startup; every statement is CREATE ... IF NOT EXISTS.
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS orders (
	id                   UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	consumer_id          TEXT NOT NULL,
	business_id          TEXT NOT NULL,
	courier_id           TEXT,
	courier_name         TEXT,
	courier_phone        TEXT,
	fulfillment          TEXT NOT NULL CHECK (fulfillment IN ('delivery', 'pickup')),
	total_amount         NUMERIC(12, 2) NOT NULL CHECK (total_amount > 0),
	courier_fee          NUMERIC(12, 2) NOT NULL DEFAULT 0 CHECK (courier_fee >= 0),
	status               TEXT NOT NULL DEFAULT 'created',
	viewed_by_business   BOOLEAN NOT NULL DEFAULT FALSE,
	rating_required      BOOLEAN NOT NULL DEFAULT FALSE,
	business_lat         DOUBLE PRECISION,
	business_lon         DOUBLE PRECISION,
	delivery_lat         DOUBLE PRECISION,
	delivery_lon         DOUBLE PRECISION,
	pickup_verified_at   TIMESTAMPTZ,
	delivery_verified_at TIMESTAMPTZ,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_orders_business_status ON orders (business_id, status);
CREATE INDEX IF NOT EXISTS idx_orders_consumer ON orders (consumer_id);

CREATE TABLE IF NOT EXISTS order_passcodes (
	order_id          UUID PRIMARY KEY REFERENCES orders (id) ON DELETE CASCADE,
	pickup_hash       BYTEA NOT NULL,
	delivery_hash     BYTEA NOT NULL,
	consumer_pin_hash BYTEA NOT NULL,
	expires_at        TIMESTAMPTZ NOT NULL,
	issued_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS evidence_records (
	id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	order_id    UUID NOT NULL REFERENCES orders (id) ON DELETE CASCADE,
	proof_type  TEXT NOT NULL CHECK (proof_type IN ('pickup', 'delivery')),
	photo_key   TEXT NOT NULL,
	size_bytes  BIGINT NOT NULL DEFAULT 0,
	uploaded_by TEXT NOT NULL,
	captured_at TIMESTAMPTZ NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (order_id, proof_type)
);

CREATE TABLE IF NOT EXISTS verification_attempts (
	id           UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	order_id     UUID NOT NULL REFERENCES orders (id) ON DELETE CASCADE,
	milestone    TEXT NOT NULL CHECK (milestone IN ('pickup', 'delivery')),
	outcome      TEXT NOT NULL CHECK (outcome IN ('success', 'failure', 'expired')),
	evidence_id  UUID REFERENCES evidence_records (id),
	latitude     DOUBLE PRECISION,
	longitude    DOUBLE PRECISION,
	accuracy_m   DOUBLE PRECISION,
	distance_m   DOUBLE PRECISION,
	submitted_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_attempts_order ON verification_attempts (order_id, submitted_at);

CREATE TABLE IF NOT EXISTS payment_releases (
	id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	order_id    UUID NOT NULL REFERENCES orders (id) ON DELETE CASCADE,
	milestone   TEXT NOT NULL CHECK (milestone IN ('pickup', 'delivery')),
	payee       TEXT NOT NULL,
	amount      NUMERIC(12, 2) NOT NULL CHECK (amount >= 0),
	released_at TIMESTAMPTZ NOT NULL,
	UNIQUE (order_id, milestone)
);

CREATE TABLE IF NOT EXISTS ratings (
	id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	order_id   UUID NOT NULL REFERENCES orders (id) ON DELETE CASCADE,
	milestone  TEXT NOT NULL CHECK (milestone IN ('pickup', 'delivery')),
	stars      INTEGER NOT NULL CHECK (stars BETWEEN 1 AND 5),
	comment    TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (order_id, milestone)
);

CREATE TABLE IF NOT EXISTS issue_reports (
	id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	order_id    UUID NOT NULL REFERENCES orders (id) ON DELETE CASCADE,
	reporter_id TEXT NOT NULL,
	description TEXT NOT NULL,
	priority    TEXT NOT NULL DEFAULT 'high',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Migrate applies the schema.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("database.Migrate: %w", err)
	}
	return nil
}
