package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/finbook/ledger/internal/domain"
)

// TransactionRepository implements domain.TransactionRepository over a Store.
type TransactionRepository struct {
	store *Store
}

// Create persists a new transaction, enforcing reference number uniqueness.
func (r *TransactionRepository) Create(ctx context.Context, txn *domain.Transaction) error {
	defer r.store.enter(ctx)()

	if _, exists := r.store.references[txn.ReferenceNumber]; exists {
		return domain.ErrDuplicateReference
	}
	r.store.transactions[txn.ID] = copyTransaction(txn)
	r.store.references[txn.ReferenceNumber] = txn.ID
	return nil
}

// GetForOwner retrieves a transaction only if its account belongs to ownerID.
func (r *TransactionRepository) GetForOwner(ctx context.Context, id, ownerID uuid.UUID) (*domain.Transaction, error) {
	defer r.store.enter(ctx)()

	txn, ok := r.store.transactions[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	account, ok := r.store.accounts[txn.AccountID]
	if !ok || account.UserID != ownerID {
		return nil, domain.ErrTransactionNotFound
	}
	return copyTransaction(txn), nil
}

// ListByAccount returns up to limit rows of one account, newest first.
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]*domain.Transaction, error) {
	defer r.store.enter(ctx)()

	txns := r.collect(func(t *domain.Transaction) bool {
		return t.AccountID == accountID
	})
	if limit > 0 && len(txns) > limit {
		txns = txns[:limit]
	}
	return txns, nil
}

// ListCompletedInWindow returns the account's COMPLETED rows with
// transaction date in [from, to] inclusive.
func (r *TransactionRepository) ListCompletedInWindow(ctx context.Context, accountID uuid.UUID, from, to time.Time) ([]*domain.Transaction, error) {
	defer r.store.enter(ctx)()

	return r.collect(func(t *domain.Transaction) bool {
		return t.AccountID == accountID &&
			t.Status == domain.StatusCompleted &&
			!t.TransactionDate.Before(from) &&
			!t.TransactionDate.After(to)
	}), nil
}

// ListByAccounts returns every row posted against the given accounts,
// newest first.
func (r *TransactionRepository) ListByAccounts(ctx context.Context, accountIDs []uuid.UUID) ([]*domain.Transaction, error) {
	defer r.store.enter(ctx)()

	wanted := make(map[uuid.UUID]struct{}, len(accountIDs))
	for _, id := range accountIDs {
		wanted[id] = struct{}{}
	}
	return r.collect(func(t *domain.Transaction) bool {
		_, ok := wanted[t.AccountID]
		return ok
	}), nil
}

// collect copies matching rows sorted by transaction date descending, id
// ascending. Callers must hold the store lock.
func (r *TransactionRepository) collect(match func(*domain.Transaction) bool) []*domain.Transaction {
	txns := make([]*domain.Transaction, 0)
	for _, txn := range r.store.transactions {
		if match(txn) {
			txns = append(txns, copyTransaction(txn))
		}
	}
	sort.Slice(txns, func(i, j int) bool {
		if !txns[i].TransactionDate.Equal(txns[j].TransactionDate) {
			return txns[i].TransactionDate.After(txns[j].TransactionDate)
		}
		return txns[i].ID.String() < txns[j].ID.String()
	})
	return txns
}
