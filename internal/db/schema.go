package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// usersSchema is idempotent. Address parts are NOT NULL with '' meaning
// unset; the report folds '' into the no-city group.
const usersSchema = `
CREATE EXTENSION IF NOT EXISTS pgcrypto;

CREATE TABLE IF NOT EXISTS users (
	id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	email         TEXT NOT NULL,
	first_name    TEXT NOT NULL,
	last_name     TEXT NOT NULL,
	user_name     TEXT NOT NULL DEFAULT '',
	phone_number  TEXT NOT NULL DEFAULT '',
	gender        TEXT NOT NULL DEFAULT 'other',
	roles         TEXT[] NOT NULL DEFAULT ARRAY['user']::TEXT[],
	dob           DATE NOT NULL,
	age           INTEGER NOT NULL DEFAULT 0,
	address_lga   TEXT NOT NULL DEFAULT '',
	address_city  TEXT NOT NULL DEFAULT '',
	address_state TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT users_email_key UNIQUE (email)
);

CREATE INDEX IF NOT EXISTS users_created_at_id_idx ON users (created_at, id);
CREATE INDEX IF NOT EXISTS users_address_city_idx ON users (address_city);
`

func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, usersSchema); err != nil {
		return fmt.Errorf("ensure users schema: %w", err)
	}

	return nil
}
