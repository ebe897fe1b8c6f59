package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbook/ledger/internal/domain"
	"github.com/finbook/ledger/internal/memory"
)

func seedAccount(t *testing.T, store *memory.Store, ownerID uuid.UUID, balance string) *domain.Account {
	t.Helper()
	now := time.Now()
	account := &domain.Account{
		ID:            uuid.New(),
		UserID:        ownerID,
		AccountNumber: domain.NewAccountNumber(domain.AccountTypeChecking),
		Type:          domain.AccountTypeChecking,
		Name:          "Checking",
		Balance:       decimal.RequireFromString(balance),
		Currency:      "USD",
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, store.Accounts().Create(context.Background(), account))
	return account
}

func TestWithTransactionRollsBack(t *testing.T) {
	store := memory.NewStore()
	ownerID := uuid.New()
	account := seedAccount(t, store, ownerID, "100.00")
	boom := errors.New("boom")

	err := store.WithTransaction(context.Background(), func(ctx context.Context) error {
		txn := domain.NewTransaction(account.ID, domain.TransactionTypeDebit, decimal.RequireFromString("40.00"), "doomed")
		txn.ReferenceNumber = domain.NewReferenceNumber()
		if err := store.Transactions().Create(ctx, txn); err != nil {
			return err
		}
		if err := store.Accounts().UpdateBalance(ctx, account.ID, decimal.RequireFromString("60.00"), time.Now()); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.Accounts().GetForOwner(context.Background(), account.ID, ownerID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("100.00")))

	rows, err := store.Transactions().ListByAccount(context.Background(), account.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestWithTransactionCommits(t *testing.T) {
	store := memory.NewStore()
	ownerID := uuid.New()
	account := seedAccount(t, store, ownerID, "100.00")

	err := store.WithTransaction(context.Background(), func(ctx context.Context) error {
		return store.Accounts().UpdateBalance(ctx, account.ID, decimal.RequireFromString("60.00"), time.Now())
	})
	require.NoError(t, err)

	got, err := store.Accounts().GetForOwner(context.Background(), account.ID, ownerID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("60.00")))
}

func TestDuplicateReference(t *testing.T) {
	store := memory.NewStore()
	account := seedAccount(t, store, uuid.New(), "100.00")

	mk := func() *domain.Transaction {
		txn := domain.NewTransaction(account.ID, domain.TransactionTypeDebit, decimal.RequireFromString("1.00"), "row")
		txn.ReferenceNumber = "TXNFIXED"
		return txn
	}
	require.NoError(t, store.Transactions().Create(context.Background(), mk()))
	assert.ErrorIs(t, store.Transactions().Create(context.Background(), mk()), domain.ErrDuplicateReference)
}

func TestDuplicateAccountNumber(t *testing.T) {
	store := memory.NewStore()
	first := seedAccount(t, store, uuid.New(), "0.00")

	dup := *first
	dup.ID = uuid.New()
	assert.ErrorIs(t, store.Accounts().Create(context.Background(), &dup), domain.ErrDuplicateAccountNumber)
}

func TestRepositoriesReturnCopies(t *testing.T) {
	store := memory.NewStore()
	ownerID := uuid.New()
	account := seedAccount(t, store, ownerID, "100.00")

	got, err := store.Accounts().GetForOwner(context.Background(), account.ID, ownerID)
	require.NoError(t, err)
	got.Balance = decimal.RequireFromString("999999.00")

	again, err := store.Accounts().GetForOwner(context.Background(), account.ID, ownerID)
	require.NoError(t, err)
	assert.True(t, again.Balance.Equal(decimal.RequireFromString("100.00")))
}

func TestGetForOwnerScoping(t *testing.T) {
	store := memory.NewStore()
	ownerID := uuid.New()
	account := seedAccount(t, store, ownerID, "100.00")

	_, err := store.Accounts().GetForOwner(context.Background(), account.ID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	require.NoError(t, store.Accounts().Deactivate(context.Background(), account.ID))
	_, err = store.Accounts().GetForOwner(context.Background(), account.ID, ownerID)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}
