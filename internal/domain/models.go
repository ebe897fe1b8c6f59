package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType classifies an account.
type AccountType string

const (
	AccountTypeChecking AccountType = "CHECKING"
	AccountTypeSavings  AccountType = "SAVINGS"
	AccountTypeCredit   AccountType = "CREDIT"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeChecking, AccountTypeSavings, AccountTypeCredit:
		return true
	}
	return false
}

// TransactionType is the direction of a posted transaction. A TRANSFER
// request is realized as a DEBIT row on the source account and a mirrored
// CREDIT row on the destination; TRANSFER itself never appears on a row.
type TransactionType string

const (
	TransactionTypeDebit    TransactionType = "DEBIT"
	TransactionTypeCredit   TransactionType = "CREDIT"
	TransactionTypeTransfer TransactionType = "TRANSFER"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeDebit, TransactionTypeCredit, TransactionTypeTransfer:
		return true
	}
	return false
}

// TransactionStatus is the lifecycle state of a transaction. The synchronous
// posting flow always completes, but the full transition set is kept so
// asynchronous settlement can be added without a schema change.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "PENDING"
	StatusCompleted TransactionStatus = "COMPLETED"
	StatusFailed    TransactionStatus = "FAILED"
	StatusCancelled TransactionStatus = "CANCELLED"
)

// Account is a bank account owned by exactly one user. Balance is the
// current-balance projection over the account's COMPLETED transactions;
// only the ledger writes it.
type Account struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	AccountNumber string
	Type          AccountType
	Name          string
	Balance       decimal.Decimal
	Currency      string
	CreditLimit   decimal.Decimal // meaningful only for CREDIT accounts
	InterestRate  decimal.Decimal // stored for future use, never applied here
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Transaction is one immutable ledger row. BalanceAfter snapshots the owning
// account's balance immediately after the row was applied. FromAccountID and
// ToAccountID are set on both rows of a transfer and nil otherwise.
type Transaction struct {
	ID              uuid.UUID
	AccountID       uuid.UUID
	Type            TransactionType
	Amount          decimal.Decimal
	Description     string
	Category        string
	Merchant        string
	TransactionDate time.Time
	Status          TransactionStatus
	ReferenceNumber string
	BalanceAfter    decimal.Decimal
	FromAccountID   *uuid.UUID
	ToAccountID     *uuid.UUID
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewTransaction creates a transaction in PENDING status. The reference
// number is assigned by the ledger before persistence.
func NewTransaction(accountID uuid.UUID, typ TransactionType, amount decimal.Decimal, description string) *Transaction {
	now := time.Now()
	return &Transaction{
		ID:              uuid.New(),
		AccountID:       accountID,
		Type:            typ,
		Amount:          amount,
		Description:     description,
		TransactionDate: now,
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// IsTransferLeg reports whether the row is one side of a transfer.
func (t *Transaction) IsTransferLeg() bool {
	return t.FromAccountID != nil && t.ToAccountID != nil
}

// MarkCompleted transitions PENDING -> COMPLETED.
func (t *Transaction) MarkCompleted() error { return t.transition(StatusCompleted) }

// MarkFailed transitions PENDING -> FAILED.
func (t *Transaction) MarkFailed() error { return t.transition(StatusFailed) }

// MarkCancelled transitions PENDING -> CANCELLED.
func (t *Transaction) MarkCancelled() error { return t.transition(StatusCancelled) }

func (t *Transaction) transition(next TransactionStatus) error {
	if t.Status != StatusPending {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, next)
	}
	t.Status = next
	t.UpdatedAt = time.Now()
	return nil
}

// ValidateAmount checks that an amount is strictly positive with at most
// two fractional digits.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return fmt.Errorf("%w: must be positive, got %s", ErrInvalidAmount, amount)
	}
	if !amount.Equal(amount.Round(2)) {
		return fmt.Errorf("%w: at most 2 decimal places, got %s", ErrInvalidAmount, amount)
	}
	return nil
}
