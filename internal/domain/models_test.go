package domain_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbook/ledger/internal/domain"
)

func TestTransactionTransitions(t *testing.T) {
	newPending := func() *domain.Transaction {
		return domain.NewTransaction(uuid.New(), domain.TransactionTypeDebit, decimal.RequireFromString("10.00"), "test")
	}

	t.Run("pending to completed", func(t *testing.T) {
		txn := newPending()
		require.Equal(t, domain.StatusPending, txn.Status)
		require.NoError(t, txn.MarkCompleted())
		assert.Equal(t, domain.StatusCompleted, txn.Status)
	})

	t.Run("pending to failed", func(t *testing.T) {
		txn := newPending()
		require.NoError(t, txn.MarkFailed())
		assert.Equal(t, domain.StatusFailed, txn.Status)
	})

	t.Run("pending to cancelled", func(t *testing.T) {
		txn := newPending()
		require.NoError(t, txn.MarkCancelled())
		assert.Equal(t, domain.StatusCancelled, txn.Status)
	})

	t.Run("terminal states reject further transitions", func(t *testing.T) {
		txn := newPending()
		require.NoError(t, txn.MarkCompleted())

		assert.ErrorIs(t, txn.MarkFailed(), domain.ErrInvalidTransition)
		assert.ErrorIs(t, txn.MarkCancelled(), domain.ErrInvalidTransition)
		assert.ErrorIs(t, txn.MarkCompleted(), domain.ErrInvalidTransition)
		assert.Equal(t, domain.StatusCompleted, txn.Status)
	})
}

func TestValidateAmount(t *testing.T) {
	cases := []struct {
		name   string
		amount string
		ok     bool
	}{
		{"one cent", "0.01", true},
		{"whole", "100", true},
		{"two decimals", "99.99", true},
		{"zero", "0", false},
		{"negative", "-1.00", false},
		{"three decimals", "1.001", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := domain.ValidateAmount(decimal.RequireFromString(tc.amount))
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, domain.ErrInvalidAmount)
			}
		})
	}
}

func TestNewReferenceNumber(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		ref := domain.NewReferenceNumber()
		assert.Regexp(t, `^TXN\d{13}[0-9A-Z]{9}$`, ref)
		seen[ref] = struct{}{}
	}
	// Collisions within one batch should be vanishingly rare.
	assert.Len(t, seen, 100)
}

func TestNewAccountNumber(t *testing.T) {
	assert.Regexp(t, `^CHE\d{13}\d{6}$`, domain.NewAccountNumber(domain.AccountTypeChecking))
	assert.Regexp(t, `^SAV\d{13}\d{6}$`, domain.NewAccountNumber(domain.AccountTypeSavings))
	assert.Regexp(t, `^CRE\d{13}\d{6}$`, domain.NewAccountNumber(domain.AccountTypeCredit))
}

func TestIsTransferLeg(t *testing.T) {
	txn := domain.NewTransaction(uuid.New(), domain.TransactionTypeDebit, decimal.RequireFromString("10.00"), "plain debit")
	assert.False(t, txn.IsTransferLeg())

	from, to := uuid.New(), uuid.New()
	txn.FromAccountID = &from
	txn.ToAccountID = &to
	assert.True(t, txn.IsTransferLeg())
}
