package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountRepository defines data access for accounts. Implementations map
// their uniqueness violations to ErrDuplicateAccountNumber and absent rows
// to ErrAccountNotFound.
type AccountRepository interface {
	// GetForOwner retrieves an active account scoped to its owner.
	// Missing, inactive and foreign accounts all come back as
	// ErrAccountNotFound so existence never leaks across owners.
	GetForOwner(ctx context.Context, id, ownerID uuid.UUID) (*Account, error)

	// ListByOwner returns the owner's active accounts, creation time ascending.
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Account, error)

	// Create persists a new account. Returns ErrDuplicateAccountNumber on
	// an account number collision.
	Create(ctx context.Context, account *Account) error

	// UpdateBalance overwrites the balance field, the sole mutation path for
	// it. Must be called within a transaction context.
	UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal, updatedAt time.Time) error

	// Lock acquires an exclusive per-account lock for the duration of the
	// surrounding transaction and returns the current row regardless of
	// ownership or active state; the caller enforces both.
	Lock(ctx context.Context, id uuid.UUID) (*Account, error)
}

// TransactionRepository defines data access for ledger rows.
type TransactionRepository interface {
	// Create persists a new transaction. Returns ErrDuplicateReference on a
	// reference number collision.
	Create(ctx context.Context, txn *Transaction) error

	// GetForOwner retrieves a transaction only if its account belongs to
	// ownerID; otherwise ErrTransactionNotFound.
	GetForOwner(ctx context.Context, id, ownerID uuid.UUID) (*Transaction, error)

	// ListByAccount returns up to limit rows of one account, transaction
	// date descending. limit <= 0 means no limit.
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]*Transaction, error)

	// ListCompletedInWindow returns the account's COMPLETED rows with
	// transaction date in [from, to], both ends inclusive.
	ListCompletedInWindow(ctx context.Context, accountID uuid.UUID, from, to time.Time) ([]*Transaction, error)

	// ListByAccounts returns every row posted against the given accounts,
	// transaction date descending.
	ListByAccounts(ctx context.Context, accountIDs []uuid.UUID) ([]*Transaction, error)
}

// TransactionManager runs a function within a storage transaction: the
// function's effects become visible atomically on success and not at all
// on error.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher emits a notification after a transaction has been
// committed. Publishing is best-effort and never affects the outcome of
// the posting itself.
type EventPublisher interface {
	PublishTransactionPosted(ctx context.Context, txn *Transaction) error
}
