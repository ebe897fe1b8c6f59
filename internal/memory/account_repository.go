package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finbook/ledger/internal/domain"
)

// AccountRepository implements domain.AccountRepository over a Store.
type AccountRepository struct {
	store *Store
}

// GetForOwner retrieves an active account scoped to its owner.
func (r *AccountRepository) GetForOwner(ctx context.Context, id, ownerID uuid.UUID) (*domain.Account, error) {
	defer r.store.enter(ctx)()

	account, ok := r.store.accounts[id]
	if !ok || account.UserID != ownerID || !account.IsActive {
		return nil, domain.ErrAccountNotFound
	}
	return copyAccount(account), nil
}

// ListByOwner returns the owner's active accounts, creation time ascending.
func (r *AccountRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Account, error) {
	defer r.store.enter(ctx)()

	accounts := make([]*domain.Account, 0)
	for _, account := range r.store.accounts {
		if account.UserID == ownerID && account.IsActive {
			accounts = append(accounts, copyAccount(account))
		}
	}
	sort.Slice(accounts, func(i, j int) bool {
		if !accounts[i].CreatedAt.Equal(accounts[j].CreatedAt) {
			return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
		}
		return accounts[i].ID.String() < accounts[j].ID.String()
	})
	return accounts, nil
}

// Create persists a new account, enforcing account number uniqueness.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	defer r.store.enter(ctx)()

	if _, exists := r.store.accountNumbers[account.AccountNumber]; exists {
		return domain.ErrDuplicateAccountNumber
	}
	r.store.accounts[account.ID] = copyAccount(account)
	r.store.accountNumbers[account.AccountNumber] = account.ID
	return nil
}

// UpdateBalance overwrites the balance field.
func (r *AccountRepository) UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal, updatedAt time.Time) error {
	defer r.store.enter(ctx)()

	account, ok := r.store.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	account.Balance = balance
	account.UpdatedAt = updatedAt
	return nil
}

// Lock returns the current row. The store lock held by WithTransaction
// already serializes writers, so no per-row lock is needed.
func (r *AccountRepository) Lock(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	defer r.store.enter(ctx)()

	account, ok := r.store.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return copyAccount(account), nil
}

// Deactivate soft-deletes an account. Accounts are never removed.
func (r *AccountRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	defer r.store.enter(ctx)()

	account, ok := r.store.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	account.IsActive = false
	account.UpdatedAt = time.Now()
	return nil
}
