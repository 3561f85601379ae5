package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finwise/ledger-api/internal/domain/entity"
	"github.com/finwise/ledger-api/internal/domain/repository"
)

type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

func (r *AccountRepository) Create(ctx context.Context, a *entity.Account) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (id, owner_id, name, currency, balance)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`, a.ID, a.OwnerID, a.Name, a.Currency, a.Balance)

	return row.Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (r *AccountRepository) GetForOwner(ctx context.Context, ownerID, accountID string) (*entity.Account, error) {
	a := &entity.Account{}
	row := r.pool.QueryRow(ctx, `
		SELECT id, owner_id, name, currency, balance, created_at, updated_at
		FROM accounts
		WHERE id = $1 AND owner_id = $2
	`, accountID, ownerID)

	if err := row.Scan(&a.ID, &a.OwnerID, &a.Name, &a.Currency, &a.Balance,
		&a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *AccountRepository) ListByOwner(ctx context.Context, ownerID string) ([]entity.Account, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, owner_id, name, currency, balance, created_at, updated_at
		FROM accounts
		WHERE owner_id = $1
		ORDER BY created_at ASC, id ASC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]entity.Account, 0)
	for rows.Next() {
		var a entity.Account
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.Name, &a.Currency, &a.Balance,
			&a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

var _ repository.AccountRepository = (*AccountRepository)(nil)
