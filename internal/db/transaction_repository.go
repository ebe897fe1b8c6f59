package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finbook/ledger/internal/domain"
)

const transactionColumns = `
	id, account_id, transaction_type, amount, description,
	category, merchant, transaction_date, status, reference_number,
	balance_after, from_account_id, to_account_id, created_at, updated_at`

// TransactionRepository implements domain.TransactionRepository on
// PostgreSQL.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a TransactionRepository.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

func (r *TransactionRepository) q(ctx context.Context) querier {
	if tx := getTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

// Create persists a new transaction. A unique violation on
// reference_number maps to ErrDuplicateReference so the ledger can
// regenerate and retry. Inside a transaction the insert runs under a
// savepoint: a unique violation aborts the enclosing PostgreSQL
// transaction otherwise, which would turn every retried insert into a
// 25P02 failure.
func (r *TransactionRepository) Create(ctx context.Context, txn *domain.Transaction) error {
	tx := getTx(ctx)
	if tx == nil {
		return r.insert(ctx, r.pool, txn)
	}

	sp, err := tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to open savepoint: %w", err)
	}
	if err := r.insert(ctx, sp, txn); err != nil {
		_ = sp.Rollback(ctx)
		return err
	}
	if err := sp.Commit(ctx); err != nil {
		return fmt.Errorf("failed to release savepoint: %w", err)
	}
	return nil
}

func (r *TransactionRepository) insert(ctx context.Context, q querier, txn *domain.Transaction) error {
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := q.Exec(ctx, query,
		txn.ID,
		txn.AccountID,
		string(txn.Type),
		txn.Amount,
		txn.Description,
		nullIfEmpty(txn.Category),
		nullIfEmpty(txn.Merchant),
		txn.TransactionDate,
		string(txn.Status),
		txn.ReferenceNumber,
		txn.BalanceAfter,
		txn.FromAccountID,
		txn.ToAccountID,
		txn.CreatedAt,
		txn.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateReference
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// GetForOwner retrieves a transaction only if its account belongs to
// ownerID.
func (r *TransactionRepository) GetForOwner(ctx context.Context, id, ownerID uuid.UUID) (*domain.Transaction, error) {
	query := `
		SELECT t.id, t.account_id, t.transaction_type, t.amount, t.description,
		       t.category, t.merchant, t.transaction_date, t.status, t.reference_number,
		       t.balance_after, t.from_account_id, t.to_account_id, t.created_at, t.updated_at
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE t.id = $1 AND a.user_id = $2`

	txn, err := scanTransaction(r.q(ctx).QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return txn, nil
}

// ListByAccount returns up to limit rows of one account, newest first.
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]*domain.Transaction, error) {
	query := `SELECT` + transactionColumns + `
		FROM transactions
		WHERE account_id = $1
		ORDER BY transaction_date DESC, id ASC`
	args := []any{accountID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	return r.list(ctx, query, args...)
}

// ListCompletedInWindow returns the account's COMPLETED rows with
// transaction date in [from, to] inclusive.
func (r *TransactionRepository) ListCompletedInWindow(ctx context.Context, accountID uuid.UUID, from, to time.Time) ([]*domain.Transaction, error) {
	query := `SELECT` + transactionColumns + `
		FROM transactions
		WHERE account_id = $1
		  AND status = $2
		  AND transaction_date >= $3
		  AND transaction_date <= $4
		ORDER BY transaction_date DESC, id ASC`
	return r.list(ctx, query, accountID, string(domain.StatusCompleted), from, to)
}

// ListByAccounts returns every row posted against the given accounts,
// newest first.
func (r *TransactionRepository) ListByAccounts(ctx context.Context, accountIDs []uuid.UUID) ([]*domain.Transaction, error) {
	if len(accountIDs) == 0 {
		return []*domain.Transaction{}, nil
	}
	query := `SELECT` + transactionColumns + `
		FROM transactions
		WHERE account_id = ANY($1)
		ORDER BY transaction_date DESC, id ASC`
	return r.list(ctx, query, accountIDs)
}

func (r *TransactionRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Transaction, error) {
	rows, err := r.q(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	txns := make([]*domain.Transaction, 0)
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var txn domain.Transaction
	var txnType, status string
	var category, merchant *string
	err := row.Scan(
		&txn.ID,
		&txn.AccountID,
		&txnType,
		&txn.Amount,
		&txn.Description,
		&category,
		&merchant,
		&txn.TransactionDate,
		&status,
		&txn.ReferenceNumber,
		&txn.BalanceAfter,
		&txn.FromAccountID,
		&txn.ToAccountID,
		&txn.CreatedAt,
		&txn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	txn.Type = domain.TransactionType(txnType)
	txn.Status = domain.TransactionStatus(status)
	if category != nil {
		txn.Category = *category
	}
	if merchant != nil {
		txn.Merchant = *merchant
	}
	return &txn, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
