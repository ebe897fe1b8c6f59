package domain

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// DefaultPageLimit applies when the caller sends no limit.
	DefaultPageLimit = 20
	// MaxPageLimit caps the page size.
	MaxPageLimit = 100
)

// Filter narrows a transaction query. All fields are optional and compose
// with AND; Search alone is an OR across description, merchant and
// reference number. Substring matches are case-insensitive.
type Filter struct {
	AccountID *uuid.UUID
	Type      *TransactionType
	StartDate *time.Time
	EndDate   *time.Time
	Category  string
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
	Search    string
}

// Page is one page of a filtered transaction listing.
type Page struct {
	Items   []*Transaction
	Total   int
	Page    int
	Limit   int
	Pages   int
	HasNext bool
	HasPrev bool
}

// QueryService filters, searches and paginates transaction history across
// an owner's active accounts. Like the statistics side it is a pure reader.
type QueryService struct {
	accounts     AccountRepository
	transactions TransactionRepository
}

// NewQueryService creates a QueryService.
func NewQueryService(accounts AccountRepository, transactions TransactionRepository) *QueryService {
	return &QueryService{accounts: accounts, transactions: transactions}
}

// Query returns one page of the owner's transactions matching the filter,
// transaction date descending with id as the tiebreak so pagination stays
// stable across calls. A filter accountId that is not among the owner's
// accounts is silently ignored rather than erroring, so account existence
// never leaks.
func (s *QueryService) Query(ctx context.Context, ownerID uuid.UUID, filter Filter, page, limit int) (*Page, error) {
	if limit <= 0 {
		limit = DefaultPageLimit
	} else if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	if page < 1 {
		page = 1
	}

	accountIDs, err := s.ownedAccountIDs(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if filter.AccountID != nil {
		for _, id := range accountIDs {
			if id == *filter.AccountID {
				accountIDs = []uuid.UUID{id}
				break
			}
		}
	}

	txns, err := s.transactions.ListByAccounts(ctx, accountIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	matched := txns[:0:0]
	for _, txn := range txns {
		if matches(txn, filter) {
			matched = append(matched, txn)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].TransactionDate.Equal(matched[j].TransactionDate) {
			return matched[i].TransactionDate.After(matched[j].TransactionDate)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	total := len(matched)
	pages := (total + limit - 1) / limit
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return &Page{
		Items:   matched[start:end],
		Total:   total,
		Page:    page,
		Limit:   limit,
		Pages:   pages,
		HasNext: page < pages,
		HasPrev: page > 1,
	}, nil
}

// GetTransaction retrieves one transaction scoped to its account's owner.
func (s *QueryService) GetTransaction(ctx context.Context, id, ownerID uuid.UUID) (*Transaction, error) {
	return s.transactions.GetForOwner(ctx, id, ownerID)
}

// Categories returns the distinct non-empty categories across the owner's
// transactions, alphabetically sorted.
func (s *QueryService) Categories(ctx context.Context, ownerID uuid.UUID) ([]string, error) {
	accountIDs, err := s.ownedAccountIDs(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	txns, err := s.transactions.ListByAccounts(ctx, accountIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	seen := make(map[string]struct{})
	categories := make([]string, 0)
	for _, txn := range txns {
		if txn.Category == "" {
			continue
		}
		if _, ok := seen[txn.Category]; ok {
			continue
		}
		seen[txn.Category] = struct{}{}
		categories = append(categories, txn.Category)
	}
	sort.Strings(categories)
	return categories, nil
}

func (s *QueryService) ownedAccountIDs(ctx context.Context, ownerID uuid.UUID) ([]uuid.UUID, error) {
	accounts, err := s.accounts.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	ids := make([]uuid.UUID, len(accounts))
	for i, account := range accounts {
		ids[i] = account.ID
	}
	return ids, nil
}

func matches(txn *Transaction, f Filter) bool {
	if f.Type != nil {
		// TRANSFER never appears as a row type; it selects the linked rows
		// of transfers instead.
		if *f.Type == TransactionTypeTransfer {
			if !txn.IsTransferLeg() {
				return false
			}
		} else if txn.Type != *f.Type {
			return false
		}
	}
	if f.StartDate != nil && txn.TransactionDate.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && txn.TransactionDate.After(*f.EndDate) {
		return false
	}
	if f.Category != "" && !containsFold(txn.Category, f.Category) {
		return false
	}
	if f.MinAmount != nil && txn.Amount.LessThan(*f.MinAmount) {
		return false
	}
	if f.MaxAmount != nil && txn.Amount.GreaterThan(*f.MaxAmount) {
		return false
	}
	if f.Search != "" {
		if !containsFold(txn.Description, f.Search) &&
			!containsFold(txn.Merchant, f.Search) &&
			!containsFold(txn.ReferenceNumber, f.Search) {
			return false
		}
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
