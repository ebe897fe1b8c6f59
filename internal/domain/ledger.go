package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Policy carries the explicit posting rules that the ledger would otherwise
// have to guess at.
type Policy struct {
	// CreditOverdraw lets CREDIT accounts draw down to -creditLimit instead
	// of stopping at zero.
	CreditOverdraw bool

	// ReferenceAttempts bounds regeneration retries on a reference or
	// account number collision.
	ReferenceAttempts int
}

// DefaultReferenceAttempts is used when Policy.ReferenceAttempts is unset.
const DefaultReferenceAttempts = 5

// PostRequest describes a single requested account mutation.
type PostRequest struct {
	AccountID   uuid.UUID
	Type        TransactionType
	Amount      decimal.Decimal
	Description string
	Category    string
	Merchant    string
	ToAccountID *uuid.UUID // transfers only
}

// LedgerService validates and applies transactions. All balance reads and
// writes for one request happen inside a single storage transaction, with
// per-account locks taken in ascending UUID order so two concurrent
// transfers can never deadlock.
type LedgerService struct {
	accounts     AccountRepository
	transactions TransactionRepository
	tx           TransactionManager
	events       EventPublisher
	policy       Policy
	newReference func() string
	now          func() time.Time
}

// LedgerOption customizes a LedgerService; used by tests to pin the
// reference source and clock.
type LedgerOption func(*LedgerService)

// WithReferenceSource replaces the reference number generator.
func WithReferenceSource(fn func() string) LedgerOption {
	return func(s *LedgerService) { s.newReference = fn }
}

// WithClock replaces the transaction date clock.
func WithClock(fn func() time.Time) LedgerOption {
	return func(s *LedgerService) { s.now = fn }
}

// NewLedgerService creates a LedgerService. events may be nil to disable
// post-commit notifications.
func NewLedgerService(
	accounts AccountRepository,
	transactions TransactionRepository,
	tx TransactionManager,
	events EventPublisher,
	policy Policy,
	opts ...LedgerOption,
) *LedgerService {
	if policy.ReferenceAttempts <= 0 {
		policy.ReferenceAttempts = DefaultReferenceAttempts
	}
	s := &LedgerService{
		accounts:     accounts,
		transactions: transactions,
		tx:           tx,
		events:       events,
		policy:       policy,
		newReference: NewReferenceNumber,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Post applies one requested mutation on behalf of ownerID and returns the
// transaction posted against the source account. For transfers the mirrored
// credit row is created within the same storage transaction; either both
// sides land or neither does.
func (s *LedgerService) Post(ctx context.Context, ownerID uuid.UUID, req PostRequest) (*Transaction, error) {
	if err := ValidateAmount(req.Amount); err != nil {
		return nil, err
	}
	if !req.Type.Valid() {
		return nil, fmt.Errorf("unsupported transaction type %q", req.Type)
	}
	// A destination only means something on a transfer; a stray one on a
	// plain debit or credit is dropped, never mirrored.
	destID := req.ToAccountID
	if req.Type != TransactionTypeTransfer {
		destID = nil
	} else {
		if destID == nil {
			return nil, ErrMissingDestination
		}
		if *destID == req.AccountID {
			return nil, ErrSameAccount
		}
	}

	var posted, mirrored *Transaction
	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		source, dest, err := s.lockAccounts(txCtx, req.AccountID, destID)
		if err != nil {
			return err
		}
		if err := checkUsable(source, ownerID); err != nil {
			return err
		}
		if dest != nil {
			if err := checkUsable(dest, ownerID); err != nil {
				return err
			}
		}

		delta := req.Amount
		if req.Type == TransactionTypeDebit || req.Type == TransactionTypeTransfer {
			delta = delta.Neg()
		}
		newBalance := source.Balance.Add(delta)
		if delta.Sign() < 0 && newBalance.LessThan(s.balanceFloor(source)) {
			return ErrInsufficientBalance
		}

		rowType := req.Type
		if rowType == TransactionTypeTransfer {
			rowType = TransactionTypeDebit
		}
		txn := NewTransaction(source.ID, rowType, req.Amount, req.Description)
		txn.Category = req.Category
		txn.Merchant = req.Merchant
		txn.TransactionDate = s.now()
		txn.BalanceAfter = newBalance
		if dest != nil {
			txn.FromAccountID = &source.ID
			txn.ToAccountID = &dest.ID
		}
		if err := txn.MarkCompleted(); err != nil {
			return err
		}
		if err := s.createWithReference(txCtx, txn); err != nil {
			return err
		}
		if err := s.accounts.UpdateBalance(txCtx, source.ID, newBalance, s.now()); err != nil {
			return fmt.Errorf("failed to update source balance: %w", err)
		}

		if dest != nil {
			destBalance := dest.Balance.Add(req.Amount)
			credit := NewTransaction(dest.ID, TransactionTypeCredit, req.Amount, "Transfer from "+source.Name)
			credit.Category = "Transfer"
			credit.TransactionDate = txn.TransactionDate
			credit.BalanceAfter = destBalance
			credit.FromAccountID = &source.ID
			credit.ToAccountID = &dest.ID
			if err := credit.MarkCompleted(); err != nil {
				return err
			}
			if err := s.createWithReference(txCtx, credit); err != nil {
				return err
			}
			if err := s.accounts.UpdateBalance(txCtx, dest.ID, destBalance, s.now()); err != nil {
				return fmt.Errorf("failed to update destination balance: %w", err)
			}
			mirrored = credit
		}

		posted = txn
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The transaction is committed; notifications are best-effort and must
	// not make an applied posting appear to fail. The publisher logs its
	// own delivery errors.
	if s.events != nil {
		go func(rows ...*Transaction) {
			for _, row := range rows {
				if row != nil {
					_ = s.events.PublishTransactionPosted(context.Background(), row)
				}
			}
		}(posted, mirrored)
	}

	return posted, nil
}

// lockAccounts locks the source account, and for transfers the destination
// too, always in ascending UUID order.
func (s *LedgerService) lockAccounts(ctx context.Context, sourceID uuid.UUID, destID *uuid.UUID) (source, dest *Account, err error) {
	if destID == nil {
		source, err = s.accounts.Lock(ctx, sourceID)
		return source, nil, err
	}
	first, second := sourceID, *destID
	if second.String() < first.String() {
		first, second = second, first
	}
	a, err := s.accounts.Lock(ctx, first)
	if err != nil {
		return nil, nil, err
	}
	b, err := s.accounts.Lock(ctx, second)
	if err != nil {
		return nil, nil, err
	}
	if a.ID == sourceID {
		return a, b, nil
	}
	return b, a, nil
}

// balanceFloor is the lowest balance an operation may leave behind: zero,
// or -creditLimit for CREDIT accounts when overdraw is allowed.
func (s *LedgerService) balanceFloor(account *Account) decimal.Decimal {
	if s.policy.CreditOverdraw && account.Type == AccountTypeCredit {
		return account.CreditLimit.Neg()
	}
	return decimal.Zero
}

// createWithReference persists a transaction, regenerating its reference
// number on collision. Exhausting the retry budget is reported as a
// duplicate-reference error and treated as internal.
func (s *LedgerService) createWithReference(ctx context.Context, txn *Transaction) error {
	var err error
	for attempt := 0; attempt < s.policy.ReferenceAttempts; attempt++ {
		txn.ReferenceNumber = s.newReference()
		err = s.transactions.Create(ctx, txn)
		if !errors.Is(err, ErrDuplicateReference) {
			return err
		}
	}
	return fmt.Errorf("reference generation exhausted after %d attempts: %w", s.policy.ReferenceAttempts, err)
}

func checkUsable(account *Account, ownerID uuid.UUID) error {
	if account.UserID != ownerID {
		return ErrAccountNotFound
	}
	if !account.IsActive {
		return ErrInactiveAccount
	}
	return nil
}
