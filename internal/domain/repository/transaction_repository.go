package repository

import (
	"context"
	"time"

	"github.com/finwise/ledger-api/internal/domain/entity"
)

// ListFilter narrows and pages a transaction listing. From/To bound
// OccurredAt (inclusive); zero values mean unbounded. Cursor is the
// opaque value returned by a previous page.
type ListFilter struct {
	From   time.Time
	To     time.Time
	Cursor string
	Limit  int
}

// TransactionRepository defines database operations on the ledger.
//
// Post and Reverse are the only mutating entry points. Both must apply
// the transaction insert and the account balance update atomically,
// serialized per account, so the balance always equals the sum of the
// account's transaction amounts. They return ErrNotFound when the
// account (or original transaction) is missing or owned by another
// user, and ErrConflict when a concurrent writer won and the caller
// should retry.
type TransactionRepository interface {
	Post(ctx context.Context, t *entity.Transaction) error
	GetForOwner(ctx context.Context, ownerID, transactionID string) (*entity.Transaction, error)
	// List returns a page ordered by occurred_at desc, created_at desc,
	// id desc, plus the cursor for the next page ("" when exhausted).
	List(ctx context.Context, ownerID, accountID string, f ListFilter) ([]entity.Transaction, string, error)
	// Reverse atomically inserts the offsetting transaction (negated
	// amount, ReversalOf set) under reversalID and applies it to the
	// account balance. Fails with ErrAlreadyReversed when an offset
	// already exists.
	Reverse(ctx context.Context, ownerID, transactionID, reversalID string) (*entity.Transaction, error)
}
