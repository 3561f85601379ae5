package repository

import (
	"context"

	"github.com/finwise/ledger-api/internal/domain/entity"
)

// AccountRepository defines database operations on accounts.
// Every lookup is scoped by owner: an account that exists but belongs
// to another user behaves exactly like one that does not exist.
type AccountRepository interface {
	Create(ctx context.Context, a *entity.Account) error
	GetForOwner(ctx context.Context, ownerID, accountID string) (*entity.Account, error)
	// ListByOwner returns the owner's accounts ordered by creation time ascending.
	ListByOwner(ctx context.Context, ownerID string) ([]entity.Account, error)
}
