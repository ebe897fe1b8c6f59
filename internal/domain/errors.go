package domain

import "errors"

var (
	// ErrAccountNotFound is returned when an account is absent or not owned by the caller
	ErrAccountNotFound = errors.New("account not found")

	// ErrTransactionNotFound is returned when a transaction is absent or not owned by the caller
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrInactiveAccount is returned when an operation targets a deactivated account
	ErrInactiveAccount = errors.New("account is inactive")

	// ErrInsufficientBalance is returned when a debit would push the balance below its floor
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidAmount is returned when an amount is not strictly positive with at most 2 decimal places
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrSameAccount is returned when a transfer names the same account on both sides
	ErrSameAccount = errors.New("source and destination must be different accounts")

	// ErrMissingDestination is returned when a transfer request carries no destination account
	ErrMissingDestination = errors.New("transfer requires a destination account")

	// ErrDuplicateReference is returned by the store when a reference number already exists.
	// The ledger retries generation; the error only propagates once retries are exhausted.
	ErrDuplicateReference = errors.New("duplicate reference number")

	// ErrDuplicateAccountNumber is returned by the store when an account number already exists
	ErrDuplicateAccountNumber = errors.New("duplicate account number")

	// ErrInvalidTransition is returned when a transaction status change is not allowed
	ErrInvalidTransition = errors.New("invalid status transition")
)
