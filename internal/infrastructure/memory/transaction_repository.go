package memory

import (
	"context"
	"sort"

	"github.com/finwise/ledger-api/internal/domain/entity"
	"github.com/finwise/ledger-api/internal/domain/repository"
)

type TransactionRepository struct{ s *Store }

func NewTransactionRepository(s *Store) *TransactionRepository {
	return &TransactionRepository{s: s}
}

func (r *TransactionRepository) Post(_ context.Context, t *entity.Transaction) error {
	lock := r.s.accountLock(t.AccountID)
	lock.Lock()
	defer lock.Unlock()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.accounts[t.AccountID]
	if !ok || a.OwnerID != t.OwnerID {
		return repository.ErrNotFound
	}

	t.CreatedAt = r.s.now()
	r.s.txs[t.ID] = *t
	a.Balance = a.Balance.Add(t.Amount)
	a.UpdatedAt = t.CreatedAt
	r.s.accounts[a.ID] = a
	return nil
}

func (r *TransactionRepository) GetForOwner(_ context.Context, ownerID, transactionID string) (*entity.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.txs[transactionID]
	if !ok || t.OwnerID != ownerID {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

// after reports whether a sorts after b in the listing order
// (occurred_at desc, created_at desc, id desc).
func after(a, b entity.Transaction) bool {
	if !a.OccurredAt.Equal(b.OccurredAt) {
		return a.OccurredAt.After(b.OccurredAt)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func (r *TransactionRepository) List(_ context.Context, ownerID, accountID string, f repository.ListFilter) ([]entity.Transaction, string, error) {
	var cur repository.Cursor
	if f.Cursor != "" {
		var err error
		cur, err = repository.DecodeCursor(f.Cursor)
		if err != nil {
			return nil, "", err
		}
	}

	r.s.mu.RLock()
	matched := make([]entity.Transaction, 0)
	for _, t := range r.s.txs {
		if t.AccountID != accountID || t.OwnerID != ownerID {
			continue
		}
		if !f.From.IsZero() && t.OccurredAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && t.OccurredAt.After(f.To) {
			continue
		}
		if f.Cursor != "" {
			mark := entity.Transaction{OccurredAt: cur.OccurredAt, CreatedAt: cur.CreatedAt, ID: cur.ID}
			if !after(mark, t) {
				continue
			}
		}
		matched = append(matched, t)
	}
	r.s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return after(matched[i], matched[j]) })

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	} else if limit > 100 {
		limit = 100
	}
	next := ""
	if len(matched) > limit {
		matched = matched[:limit]
		last := matched[limit-1]
		next = repository.Cursor{OccurredAt: last.OccurredAt, CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
	}
	return matched, next, nil
}

func (r *TransactionRepository) Reverse(_ context.Context, ownerID, transactionID, reversalID string) (*entity.Transaction, error) {
	r.s.mu.RLock()
	orig, ok := r.s.txs[transactionID]
	r.s.mu.RUnlock()
	if !ok || orig.OwnerID != ownerID {
		return nil, repository.ErrNotFound
	}

	lock := r.s.accountLock(orig.AccountID)
	lock.Lock()
	defer lock.Unlock()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, done := r.s.reversed[orig.ID]; done {
		return nil, repository.ErrAlreadyReversed
	}

	now := r.s.now()
	rev := entity.Transaction{
		ID:          reversalID,
		AccountID:   orig.AccountID,
		OwnerID:     ownerID,
		Amount:      orig.Amount.Neg(),
		Category:    orig.Category,
		Description: "reversal of " + orig.ID,
		OccurredAt:  now,
		CreatedAt:   now,
		ReversalOf:  orig.ID,
	}
	r.s.txs[rev.ID] = rev
	r.s.reversed[orig.ID] = rev.ID

	a := r.s.accounts[rev.AccountID]
	a.Balance = a.Balance.Add(rev.Amount)
	a.UpdatedAt = now
	r.s.accounts[a.ID] = a
	return &rev, nil
}

var _ repository.TransactionRepository = (*TransactionRepository)(nil)
