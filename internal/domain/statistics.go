package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultWindowMonths is the trailing statistics window when none is given.
const DefaultWindowMonths = 12

// MonthlyFlow is one calendar month's income and expense totals.
type MonthlyFlow struct {
	Income   decimal.Decimal
	Expenses decimal.Decimal
}

// AccountStatistics aggregates an account's COMPLETED transactions over the
// trailing window. Months are keyed "YYYY-MM" in UTC.
type AccountStatistics struct {
	AccountID        uuid.UUID
	CurrentBalance   decimal.Decimal
	Monthly          map[string]MonthlyFlow
	Categories       map[string]decimal.Decimal
	TransactionCount int
	WindowMonths     int
}

// StatisticsService derives aggregates from transaction history. It is a
// pure reader: no locks, no mutation, and it only ever observes committed
// state.
type StatisticsService struct {
	accounts     AccountRepository
	transactions TransactionRepository
	now          func() time.Time
}

// NewStatisticsService creates a StatisticsService.
func NewStatisticsService(accounts AccountRepository, transactions TransactionRepository) *StatisticsService {
	return &StatisticsService{
		accounts:     accounts,
		transactions: transactions,
		now:          time.Now,
	}
}

// WithStatsClock pins the aggregation clock; used by tests.
func (s *StatisticsService) WithStatsClock(fn func() time.Time) *StatisticsService {
	s.now = fn
	return s
}

// Summarize buckets the account's COMPLETED transactions of the trailing
// windowMonths (inclusive on both ends) into monthly income/expense totals
// and a category breakdown. CREDIT rows count as income, everything else as
// expenses; a transfer therefore shows up as an expense on the source
// account and as income on the destination, each on its own row.
func (s *StatisticsService) Summarize(ctx context.Context, accountID, ownerID uuid.UUID, windowMonths int) (*AccountStatistics, error) {
	if windowMonths <= 0 {
		windowMonths = DefaultWindowMonths
	}

	account, err := s.accounts.GetForOwner(ctx, accountID, ownerID)
	if err != nil {
		return nil, err
	}

	to := s.now()
	from := to.AddDate(0, -windowMonths, 0)
	txns, err := s.transactions.ListCompletedInWindow(ctx, accountID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions for window: %w", err)
	}

	stats := &AccountStatistics{
		AccountID:        account.ID,
		CurrentBalance:   account.Balance,
		Monthly:          make(map[string]MonthlyFlow),
		Categories:       make(map[string]decimal.Decimal),
		TransactionCount: len(txns),
		WindowMonths:     windowMonths,
	}

	for _, txn := range txns {
		month := txn.TransactionDate.UTC().Format("2006-01")
		flow := stats.Monthly[month]
		if txn.Type == TransactionTypeCredit {
			flow.Income = flow.Income.Add(txn.Amount)
		} else {
			flow.Expenses = flow.Expenses.Add(txn.Amount)
		}
		stats.Monthly[month] = flow

		if txn.Category != "" {
			stats.Categories[txn.Category] = stats.Categories[txn.Category].Add(txn.Amount)
		}
	}

	return stats, nil
}
