package postgres

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/finwise/ledger-api/internal/domain/entity"
	"github.com/finwise/ledger-api/internal/domain/repository"
)

// reversalConstraint is the partial unique index guarding one reversal
// per transaction (db/migrations/000001_init.up.sql).
const reversalConstraint = "transactions_reversal_of_key"

type TransactionRepository struct {
	pool *pgxpool.Pool
}

func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

// lockAccount takes the per-account row lock that serializes postings.
// The owner predicate makes a foreign account indistinguishable from a
// missing one.
func lockAccount(ctx context.Context, tx pgx.Tx, accountID, ownerID string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	row := tx.QueryRow(ctx, `
		SELECT balance FROM accounts
		WHERE id = $1 AND owner_id = $2
		FOR UPDATE
	`, accountID, ownerID)
	if err := row.Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return balance, repository.ErrNotFound
		}
		return balance, translate(err)
	}
	return balance, nil
}

func translate(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeSerializationFailure, codeDeadlockDetected:
		return repository.ErrConflict
	case codeUniqueViolation:
		// only the reversal_of index means "somebody reversed first";
		// any other unique collision is not a ledger-level condition
		if pgErr.ConstraintName == reversalConstraint {
			return repository.ErrAlreadyReversed
		}
		return repository.ErrDuplicate
	}
	return err
}

func (r *TransactionRepository) Post(ctx context.Context, t *entity.Transaction) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := lockAccount(ctx, tx, t.AccountID, t.OwnerID); err != nil {
		return err
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO transactions (id, account_id, owner_id, amount, category, description, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, t.ID, t.AccountID, t.OwnerID, t.Amount, t.Category, t.Description, t.OccurredAt)
	if err := row.Scan(&t.CreatedAt); err != nil {
		return translate(err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE accounts SET balance = balance + $1, updated_at = now()
		WHERE id = $2
	`, t.Amount, t.AccountID); err != nil {
		return translate(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return translate(err)
	}
	return nil
}

func (r *TransactionRepository) GetForOwner(ctx context.Context, ownerID, transactionID string) (*entity.Transaction, error) {
	t := &entity.Transaction{}
	var reversalOf *string
	row := r.pool.QueryRow(ctx, `
		SELECT id, account_id, owner_id, amount, category, description, occurred_at, created_at, reversal_of
		FROM transactions
		WHERE id = $1 AND owner_id = $2
	`, transactionID, ownerID)

	if err := row.Scan(&t.ID, &t.AccountID, &t.OwnerID, &t.Amount, &t.Category,
		&t.Description, &t.OccurredAt, &t.CreatedAt, &reversalOf); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if reversalOf != nil {
		t.ReversalOf = *reversalOf
	}
	return t, nil
}

func (r *TransactionRepository) List(ctx context.Context, ownerID, accountID string, f repository.ListFilter) ([]entity.Transaction, string, error) {
	// Keyset pagination over (occurred_at, created_at, id) descending;
	// OFFSET would skid under concurrent inserts.
	q := `
		SELECT id, account_id, owner_id, amount, category, description, occurred_at, created_at, reversal_of
		FROM transactions
		WHERE account_id = $1 AND owner_id = $2`
	args := []any{accountID, ownerID}

	if !f.From.IsZero() {
		args = append(args, f.From)
		q += ` AND occurred_at >= $` + strconv.Itoa(len(args))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		q += ` AND occurred_at <= $` + strconv.Itoa(len(args))
	}
	if f.Cursor != "" {
		cur, err := repository.DecodeCursor(f.Cursor)
		if err != nil {
			return nil, "", err
		}
		args = append(args, cur.OccurredAt, cur.CreatedAt, cur.ID)
		n := len(args)
		q += ` AND (occurred_at, created_at, id) < ($` + strconv.Itoa(n-2) + `, $` + strconv.Itoa(n-1) + `, $` + strconv.Itoa(n) + `)`
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultPageSize
	} else if limit > maxPageSize {
		limit = maxPageSize
	}
	args = append(args, limit+1) // one extra row to detect another page
	q += `
		ORDER BY occurred_at DESC, created_at DESC, id DESC
		LIMIT $` + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	out := make([]entity.Transaction, 0, limit)
	for rows.Next() {
		var t entity.Transaction
		var reversalOf *string
		if err := rows.Scan(&t.ID, &t.AccountID, &t.OwnerID, &t.Amount, &t.Category,
			&t.Description, &t.OccurredAt, &t.CreatedAt, &reversalOf); err != nil {
			return nil, "", err
		}
		if reversalOf != nil {
			t.ReversalOf = *reversalOf
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	next := ""
	if len(out) > limit {
		out = out[:limit]
		last := out[limit-1]
		next = repository.Cursor{OccurredAt: last.OccurredAt, CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
	}
	return out, next, nil
}

func (r *TransactionRepository) Reverse(ctx context.Context, ownerID, transactionID, reversalID string) (*entity.Transaction, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	orig := &entity.Transaction{}
	row := tx.QueryRow(ctx, `
		SELECT id, account_id, owner_id, amount, category, description
		FROM transactions
		WHERE id = $1 AND owner_id = $2
	`, transactionID, ownerID)
	if err := row.Scan(&orig.ID, &orig.AccountID, &orig.OwnerID, &orig.Amount,
		&orig.Category, &orig.Description); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, translate(err)
	}

	if _, err := lockAccount(ctx, tx, orig.AccountID, ownerID); err != nil {
		return nil, err
	}

	// The unique index on reversal_of backs this check under races.
	var reversed bool
	if err := tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM transactions WHERE reversal_of = $1)
	`, orig.ID).Scan(&reversed); err != nil {
		return nil, translate(err)
	}
	if reversed {
		return nil, repository.ErrAlreadyReversed
	}

	rev := &entity.Transaction{
		ID:          reversalID,
		AccountID:   orig.AccountID,
		OwnerID:     ownerID,
		Amount:      orig.Amount.Neg(),
		Category:    orig.Category,
		Description: "reversal of " + orig.ID,
		ReversalOf:  orig.ID,
	}
	row = tx.QueryRow(ctx, `
		INSERT INTO transactions (id, account_id, owner_id, amount, category, description, occurred_at, reversal_of)
		VALUES ($1, $2, $3, $4, $5, $6, now(), $7)
		RETURNING occurred_at, created_at
	`, rev.ID, rev.AccountID, rev.OwnerID, rev.Amount, rev.Category, rev.Description, rev.ReversalOf)
	if err := row.Scan(&rev.OccurredAt, &rev.CreatedAt); err != nil {
		return nil, translate(err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE accounts SET balance = balance + $1, updated_at = now()
		WHERE id = $2
	`, rev.Amount, rev.AccountID); err != nil {
		return nil, translate(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, translate(err)
	}
	return rev, nil
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

var _ repository.TransactionRepository = (*TransactionRepository)(nil)
