package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/finwise/ledger-api/internal/domain/repository"
)

func TestTranslate(t *testing.T) {
	cases := []struct {
		name string
		in   error
		want error
	}{
		{
			"serialization failure",
			&pgconn.PgError{Code: codeSerializationFailure},
			repository.ErrConflict,
		},
		{
			"deadlock",
			&pgconn.PgError{Code: codeDeadlockDetected},
			repository.ErrConflict,
		},
		{
			"reversal index collision",
			&pgconn.PgError{Code: codeUniqueViolation, ConstraintName: reversalConstraint},
			repository.ErrAlreadyReversed,
		},
		{
			"primary key collision",
			&pgconn.PgError{Code: codeUniqueViolation, ConstraintName: "transactions_pkey"},
			repository.ErrDuplicate,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, translate(tc.in), tc.want)
		})
	}
}

func TestTranslatePassesUnknownErrorsThrough(t *testing.T) {
	plain := errors.New("connection reset")
	assert.Equal(t, plain, translate(plain))

	// an unrelated SQLSTATE (e.g. a check violation) is not rewritten
	check := &pgconn.PgError{Code: "23514", ConstraintName: "transactions_amount_check"}
	assert.Equal(t, error(check), translate(check))

	wrapped := fmt.Errorf("exec: %w", &pgconn.PgError{Code: codeDeadlockDetected})
	assert.ErrorIs(t, translate(wrapped), repository.ErrConflict, "wrapped pg errors still translate")
}
