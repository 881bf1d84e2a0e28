package database

import (
	"context"
	"fmt"
)

// Bootstrap DDL only. Local users and trips are projections of the Auth and
// Trip services and are keyed by the upstream identity.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	username   TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS trips (
	id         BIGINT PRIMARY KEY,
	cancelled  BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS bookings (
	id         BIGSERIAL PRIMARY KEY,
	username   TEXT NOT NULL REFERENCES users (username),
	trip_id    BIGINT NOT NULL REFERENCES trips (id),
	amount     INTEGER NOT NULL CHECK (amount >= 1),
	cancelled  BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_bookings_username_id ON bookings (username, id);
CREATE INDEX IF NOT EXISTS idx_bookings_trip_active ON bookings (trip_id) WHERE NOT cancelled;
`

// CreateSchema applies the bootstrap schema. It is safe to run on every start.
func CreateSchema(ctx context.Context, db Querier) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create database schema: %w", err)
	}
	return nil
}
