package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/finbook/ledger/internal/domain"
)

const accountColumns = `
	id, user_id, account_number, account_type, account_name,
	balance, currency, credit_limit, interest_rate, is_active,
	created_at, updated_at`

// AccountRepository implements domain.AccountRepository on PostgreSQL.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates an AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// q returns the open transaction from the context when present, the pool
// otherwise.
func (r *AccountRepository) q(ctx context.Context) querier {
	if tx := getTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

// GetForOwner retrieves an active account scoped to its owner. Missing,
// inactive and foreign accounts all come back as ErrAccountNotFound.
func (r *AccountRepository) GetForOwner(ctx context.Context, id, ownerID uuid.UUID) (*domain.Account, error) {
	query := `SELECT` + accountColumns + `
		FROM accounts
		WHERE id = $1 AND user_id = $2 AND is_active`

	account, err := scanAccount(r.q(ctx).QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

// ListByOwner returns the owner's active accounts, creation time ascending.
func (r *AccountRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Account, error) {
	query := `SELECT` + accountColumns + `
		FROM accounts
		WHERE user_id = $1 AND is_active
		ORDER BY created_at ASC, id ASC`

	rows, err := r.q(ctx).Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]*domain.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// Create persists a new account. A unique violation on account_number maps
// to ErrDuplicateAccountNumber so the registry can regenerate and retry.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.q(ctx).Exec(ctx, query,
		account.ID,
		account.UserID,
		account.AccountNumber,
		string(account.Type),
		account.Name,
		account.Balance,
		account.Currency,
		account.CreditLimit,
		account.InterestRate,
		account.IsActive,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateAccountNumber
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// UpdateBalance overwrites the balance field, nothing else.
func (r *AccountRepository) UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal, updatedAt time.Time) error {
	query := `
		UPDATE accounts
		SET balance = $2, updated_at = $3
		WHERE id = $1`

	tag, err := r.q(ctx).Exec(ctx, query, id, balance, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// Lock acquires a pessimistic row lock for the duration of the surrounding
// transaction via SELECT ... FOR UPDATE. Must be called within a
// transaction context.
func (r *AccountRepository) Lock(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT` + accountColumns + `
		FROM accounts
		WHERE id = $1
		FOR UPDATE`

	account, err := scanAccount(r.q(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to lock account: %w", err)
	}
	return account, nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var account domain.Account
	var accountType string
	err := row.Scan(
		&account.ID,
		&account.UserID,
		&account.AccountNumber,
		&accountType,
		&account.Name,
		&account.Balance,
		&account.Currency,
		&account.CreditLimit,
		&account.InterestRate,
		&account.IsActive,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	account.Type = domain.AccountType(accountType)
	return &account, nil
}
