package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is an immutable ledger entry. Amount sign encodes
// debit/credit. OwnerID is denormalized from the account so ownership
// checks never need a join.
//
// Corrections are modeled as new entries: a reversal is a fresh
// transaction with the negated amount and ReversalOf pointing back at
// the original. Existing rows are never updated or deleted.
type Transaction struct {
	ID          string
	AccountID   string
	OwnerID     string
	Amount      decimal.Decimal
	Category    string
	Description string
	OccurredAt  time.Time
	CreatedAt   time.Time
	ReversalOf  string // id of the reversed transaction, empty otherwise
}

// IsReversal reports whether the transaction offsets an earlier one.
func (t *Transaction) IsReversal() bool { return t.ReversalOf != "" }
