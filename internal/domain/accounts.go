package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateAccountSpec describes a new account. Creation is an administrative
// action; owners never open their own accounts.
type CreateAccountSpec struct {
	OwnerID        uuid.UUID
	Type           AccountType
	Name           string
	Currency       string
	InitialBalance decimal.Decimal
	CreditLimit    decimal.Decimal
	InterestRate   decimal.Decimal
}

// AccountService is the account registry: it owns account records and is
// the only component that allocates account numbers.
type AccountService struct {
	accounts     AccountRepository
	transactions TransactionRepository
	policy       Policy
	newNumber    func(AccountType) string
}

// AccountOption customizes an AccountService.
type AccountOption func(*AccountService)

// WithNumberSource replaces the account number generator.
func WithNumberSource(fn func(AccountType) string) AccountOption {
	return func(s *AccountService) { s.newNumber = fn }
}

// NewAccountService creates an AccountService.
func NewAccountService(accounts AccountRepository, transactions TransactionRepository, policy Policy, opts ...AccountOption) *AccountService {
	if policy.ReferenceAttempts <= 0 {
		policy.ReferenceAttempts = DefaultReferenceAttempts
	}
	s := &AccountService{
		accounts:     accounts,
		transactions: transactions,
		policy:       policy,
		newNumber:    NewAccountNumber,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the account only if it is active and owned by ownerID.
func (s *AccountService) Get(ctx context.Context, id, ownerID uuid.UUID) (*Account, error) {
	return s.accounts.GetForOwner(ctx, id, ownerID)
}

// List returns the owner's active accounts, creation time ascending.
func (s *AccountService) List(ctx context.Context, ownerID uuid.UUID) ([]*Account, error) {
	return s.accounts.ListByOwner(ctx, ownerID)
}

// RecentTransactions returns the newest rows of one owned account.
func (s *AccountService) RecentTransactions(ctx context.Context, id, ownerID uuid.UUID, limit int) ([]*Transaction, error) {
	if _, err := s.accounts.GetForOwner(ctx, id, ownerID); err != nil {
		return nil, err
	}
	return s.transactions.ListByAccount(ctx, id, limit)
}

// Create allocates a new account with a generated account number. A number
// collision is recoverable: the number is regenerated and the insert
// retried up to the policy's attempt budget.
func (s *AccountService) Create(ctx context.Context, spec CreateAccountSpec) (*Account, error) {
	if !spec.Type.Valid() {
		return nil, fmt.Errorf("unsupported account type %q", spec.Type)
	}
	if spec.InitialBalance.Sign() < 0 {
		return nil, fmt.Errorf("%w: initial balance must not be negative", ErrInvalidAmount)
	}
	currency := spec.Currency
	if currency == "" {
		currency = "USD"
	}
	creditLimit := decimal.Zero
	if spec.Type == AccountTypeCredit {
		creditLimit = spec.CreditLimit
	}

	now := time.Now()
	account := &Account{
		ID:           uuid.New(),
		UserID:       spec.OwnerID,
		Type:         spec.Type,
		Name:         spec.Name,
		Balance:      spec.InitialBalance,
		Currency:     currency,
		CreditLimit:  creditLimit,
		InterestRate: spec.InterestRate,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var err error
	for attempt := 0; attempt < s.policy.ReferenceAttempts; attempt++ {
		account.AccountNumber = s.newNumber(spec.Type)
		err = s.accounts.Create(ctx, account)
		if !errors.Is(err, ErrDuplicateAccountNumber) {
			if err != nil {
				return nil, err
			}
			return account, nil
		}
	}
	return nil, fmt.Errorf("account number generation exhausted after %d attempts: %w", s.policy.ReferenceAttempts, err)
}
