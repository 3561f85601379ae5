package memory

import (
	"context"
	"sort"

	"github.com/finwise/ledger-api/internal/domain/entity"
	"github.com/finwise/ledger-api/internal/domain/repository"
)

type AccountRepository struct{ s *Store }

func NewAccountRepository(s *Store) *AccountRepository { return &AccountRepository{s: s} }

func (r *AccountRepository) Create(_ context.Context, a *entity.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	a.CreatedAt = now
	a.UpdatedAt = now
	r.s.accounts[a.ID] = *a
	return nil
}

func (r *AccountRepository) GetForOwner(_ context.Context, ownerID, accountID string) (*entity.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.accounts[accountID]
	if !ok || a.OwnerID != ownerID {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r *AccountRepository) ListByOwner(_ context.Context, ownerID string) ([]entity.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]entity.Account, 0)
	for _, a := range r.s.accounts {
		if a.OwnerID == ownerID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

var _ repository.AccountRepository = (*AccountRepository)(nil)
