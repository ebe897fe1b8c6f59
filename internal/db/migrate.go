package db

import (
	"context"
	"fmt"
)

// schema is the full DDL for the ledger. Unique constraints on
// account_number and reference_number are the real uniqueness guarantee
// behind the generators' probabilistic formats.
const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id             UUID PRIMARY KEY,
	user_id        UUID NOT NULL,
	account_number TEXT NOT NULL UNIQUE,
	account_type   TEXT NOT NULL,
	account_name   TEXT NOT NULL,
	balance        NUMERIC(15,2) NOT NULL DEFAULT 0,
	currency       TEXT NOT NULL DEFAULT 'USD',
	credit_limit   NUMERIC(15,2) NOT NULL DEFAULT 0,
	interest_rate  NUMERIC(5,4) NOT NULL DEFAULT 0,
	is_active      BOOLEAN NOT NULL DEFAULT TRUE,
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_accounts_user_id ON accounts (user_id);

CREATE TABLE IF NOT EXISTS transactions (
	id               UUID PRIMARY KEY,
	account_id       UUID NOT NULL REFERENCES accounts (id),
	transaction_type TEXT NOT NULL,
	amount           NUMERIC(15,2) NOT NULL,
	description      TEXT NOT NULL,
	category         TEXT,
	merchant         TEXT,
	transaction_date TIMESTAMPTZ NOT NULL,
	status           TEXT NOT NULL,
	reference_number TEXT NOT NULL UNIQUE,
	balance_after    NUMERIC(15,2) NOT NULL,
	from_account_id  UUID REFERENCES accounts (id),
	to_account_id    UUID REFERENCES accounts (id),
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_account_id ON transactions (account_id);
CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions (transaction_date DESC);
`

// Migrate creates the schema if it does not exist yet.
func Migrate(ctx context.Context, pool *Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
