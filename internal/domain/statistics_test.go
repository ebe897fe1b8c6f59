package domain_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbook/ledger/internal/domain"
	"github.com/finbook/ledger/internal/memory"
)

func seedTransaction(t *testing.T, store *memory.Store, accountID uuid.UUID, typ domain.TransactionType, amount, category string, date time.Time, status domain.TransactionStatus) *domain.Transaction {
	t.Helper()
	txn := domain.NewTransaction(accountID, typ, decimal.RequireFromString(amount), "seed")
	txn.Category = category
	txn.TransactionDate = date
	txn.ReferenceNumber = domain.NewReferenceNumber()
	txn.Status = status
	require.NoError(t, store.Transactions().Create(context.Background(), txn))
	return txn
}

func TestSummarize(t *testing.T) {
	f := newFixture(t)
	account := f.addAccount(t, f.ownerID, domain.AccountTypeChecking, "1000.00")

	now := time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)
	stats := domain.NewStatisticsService(f.store.Accounts(), f.store.Transactions()).
		WithStatsClock(func() time.Time { return now })

	may := time.Date(2026, time.May, 10, 9, 0, 0, 0, time.UTC)
	june := time.Date(2026, time.June, 2, 9, 0, 0, 0, time.UTC)
	seedTransaction(t, f.store, account.ID, domain.TransactionTypeCredit, "2000.00", "Salary", may, domain.StatusCompleted)
	seedTransaction(t, f.store, account.ID, domain.TransactionTypeDebit, "300.00", "Food", may, domain.StatusCompleted)
	seedTransaction(t, f.store, account.ID, domain.TransactionTypeDebit, "120.00", "Food", june, domain.StatusCompleted)
	seedTransaction(t, f.store, account.ID, domain.TransactionTypeDebit, "80.00", "Transport", june, domain.StatusCompleted)

	out, err := stats.Summarize(context.Background(), account.ID, f.ownerID, 12)
	require.NoError(t, err)

	assert.Equal(t, account.ID, out.AccountID)
	assert.True(t, out.CurrentBalance.Equal(decimal.RequireFromString("1000.00")))
	assert.Equal(t, 4, out.TransactionCount)
	assert.Equal(t, 12, out.WindowMonths)

	require.Contains(t, out.Monthly, "2026-05")
	assert.True(t, out.Monthly["2026-05"].Income.Equal(decimal.RequireFromString("2000.00")))
	assert.True(t, out.Monthly["2026-05"].Expenses.Equal(decimal.RequireFromString("300.00")))
	require.Contains(t, out.Monthly, "2026-06")
	assert.True(t, out.Monthly["2026-06"].Income.Equal(decimal.Zero))
	assert.True(t, out.Monthly["2026-06"].Expenses.Equal(decimal.RequireFromString("200.00")))

	assert.True(t, out.Categories["Salary"].Equal(decimal.RequireFromString("2000.00")))
	assert.True(t, out.Categories["Food"].Equal(decimal.RequireFromString("420.00")))
	assert.True(t, out.Categories["Transport"].Equal(decimal.RequireFromString("80.00")))
}

func TestSummarizeWindowBounds(t *testing.T) {
	f := newFixture(t)
	account := f.addAccount(t, f.ownerID, domain.AccountTypeChecking, "0.00")

	now := time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)
	stats := domain.NewStatisticsService(f.store.Accounts(), f.store.Transactions()).
		WithStatsClock(func() time.Time { return now })

	// Exactly on both window edges, and one just outside each.
	onStart := now.AddDate(0, -3, 0)
	seedTransaction(t, f.store, account.ID, domain.TransactionTypeDebit, "1.00", "", onStart, domain.StatusCompleted)
	seedTransaction(t, f.store, account.ID, domain.TransactionTypeDebit, "2.00", "", now, domain.StatusCompleted)
	seedTransaction(t, f.store, account.ID, domain.TransactionTypeDebit, "4.00", "", onStart.Add(-time.Second), domain.StatusCompleted)
	seedTransaction(t, f.store, account.ID, domain.TransactionTypeDebit, "8.00", "", now.Add(time.Second), domain.StatusCompleted)

	out, err := stats.Summarize(context.Background(), account.ID, f.ownerID, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, out.TransactionCount)
	assert.True(t, out.Monthly["2026-03"].Expenses.Equal(decimal.RequireFromString("1.00")))
	assert.True(t, out.Monthly["2026-06"].Expenses.Equal(decimal.RequireFromString("2.00")))
}

func TestSummarizeSkipsNonCompleted(t *testing.T) {
	f := newFixture(t)
	account := f.addAccount(t, f.ownerID, domain.AccountTypeChecking, "0.00")

	now := time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)
	stats := domain.NewStatisticsService(f.store.Accounts(), f.store.Transactions()).
		WithStatsClock(func() time.Time { return now })

	date := now.AddDate(0, -1, 0)
	seedTransaction(t, f.store, account.ID, domain.TransactionTypeDebit, "10.00", "Food", date, domain.StatusCompleted)
	seedTransaction(t, f.store, account.ID, domain.TransactionTypeDebit, "20.00", "Food", date, domain.StatusPending)
	seedTransaction(t, f.store, account.ID, domain.TransactionTypeDebit, "30.00", "Food", date, domain.StatusFailed)
	seedTransaction(t, f.store, account.ID, domain.TransactionTypeDebit, "40.00", "Food", date, domain.StatusCancelled)

	out, err := stats.Summarize(context.Background(), account.ID, f.ownerID, 12)
	require.NoError(t, err)
	assert.Equal(t, 1, out.TransactionCount)
	assert.True(t, out.Categories["Food"].Equal(decimal.RequireFromString("10.00")))
}

func TestSummarizeScope(t *testing.T) {
	f := newFixture(t)
	stranger := uuid.New()
	foreign := f.addAccount(t, stranger, domain.AccountTypeChecking, "0.00")

	stats := domain.NewStatisticsService(f.store.Accounts(), f.store.Transactions())

	_, err := stats.Summarize(context.Background(), foreign.ID, f.ownerID, 12)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	_, err = stats.Summarize(context.Background(), uuid.New(), f.ownerID, 12)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestSummarizeDefaultWindow(t *testing.T) {
	f := newFixture(t)
	account := f.addAccount(t, f.ownerID, domain.AccountTypeChecking, "0.00")

	stats := domain.NewStatisticsService(f.store.Accounts(), f.store.Transactions())
	out, err := stats.Summarize(context.Background(), account.ID, f.ownerID, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultWindowMonths, out.WindowMonths)
	assert.Empty(t, out.Monthly)
}
