// Package memory implements the ledger repositories on plain maps. It backs
// the unit tests and lets the server run without Postgres. Writers are
// serialized by a single mutex, a strictly stronger discipline than the
// per-account row locks of the Postgres store, and WithTransaction restores
// a snapshot on error so partial effects are never observable.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/finbook/ledger/internal/domain"
)

type txKey struct{}

// Store holds all state. Repositories and the transaction manager are views
// over it: Accounts(), Transactions() and the Store itself (WithTransaction).
type Store struct {
	mu             sync.Mutex
	accounts       map[uuid.UUID]*domain.Account
	transactions   map[uuid.UUID]*domain.Transaction
	accountNumbers map[string]uuid.UUID
	references     map[string]uuid.UUID
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		accounts:       make(map[uuid.UUID]*domain.Account),
		transactions:   make(map[uuid.UUID]*domain.Transaction),
		accountNumbers: make(map[string]uuid.UUID),
		references:     make(map[string]uuid.UUID),
	}
}

// Accounts returns the account repository view.
func (s *Store) Accounts() *AccountRepository {
	return &AccountRepository{store: s}
}

// Transactions returns the transaction repository view.
func (s *Store) Transactions() *TransactionRepository {
	return &TransactionRepository{store: s}
}

// WithTransaction runs fn holding the store lock. On error every change fn
// made is rolled back to the snapshot taken at entry.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, struct{}{})); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// enter takes the store lock unless the context already runs inside
// WithTransaction, which holds it for the whole transaction.
func (s *Store) enter(ctx context.Context) func() {
	if ctx.Value(txKey{}) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) snapshot() *Store {
	snap := NewStore()
	for id, account := range s.accounts {
		snap.accounts[id] = copyAccount(account)
	}
	for id, txn := range s.transactions {
		snap.transactions[id] = copyTransaction(txn)
	}
	for number, id := range s.accountNumbers {
		snap.accountNumbers[number] = id
	}
	for ref, id := range s.references {
		snap.references[ref] = id
	}
	return snap
}

func (s *Store) restore(snap *Store) {
	s.accounts = snap.accounts
	s.transactions = snap.transactions
	s.accountNumbers = snap.accountNumbers
	s.references = snap.references
}

func copyAccount(a *domain.Account) *domain.Account {
	c := *a
	return &c
}

func copyTransaction(t *domain.Transaction) *domain.Transaction {
	c := *t
	if t.FromAccountID != nil {
		from := *t.FromAccountID
		c.FromAccountID = &from
	}
	if t.ToAccountID != nil {
		to := *t.ToAccountID
		c.ToAccountID = &to
	}
	return &c
}
