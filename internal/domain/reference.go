package domain

import (
	"fmt"
	"math/rand/v2"
	"time"
)

const base36Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewReferenceNumber produces a transaction reference of the form
// TXN<unix-milli><9 base36 chars>. Uniqueness is probabilistic by
// construction; the store's unique constraint is the real guarantee, and
// the ledger regenerates on collision.
func NewReferenceNumber() string {
	var suffix [9]byte
	for i := range suffix {
		suffix[i] = base36Alphabet[rand.IntN(len(base36Alphabet))]
	}
	return fmt.Sprintf("TXN%d%s", time.Now().UnixMilli(), suffix[:])
}

// NewAccountNumber produces an account number of the form
// <3-letter type prefix><unix-milli><6 digits>. Same collision contract as
// reference numbers: callers retry on the store's uniqueness violation.
func NewAccountNumber(typ AccountType) string {
	prefix := string(typ)
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	var digits [6]byte
	for i := range digits {
		digits[i] = '0' + byte(rand.IntN(10))
	}
	return fmt.Sprintf("%s%d%s", prefix, time.Now().UnixMilli(), digits[:])
}
