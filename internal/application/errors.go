package application

import "errors"

// Failure kinds surfaced by the services. Handlers translate these into
// HTTP statuses; the string kind is part of the API contract and stays
// stable even if messages change.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrWeakCredential     = errors.New("password too weak")
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("expired token")
	ErrNotFound           = errors.New("not found")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidCurrency    = errors.New("invalid currency")
	ErrAlreadyReversed    = errors.New("transaction already reversed")
	ErrConflict           = errors.New("concurrent update, retry")
)

// Kind returns the stable machine-readable kind for a service error,
// or "internal" for anything unrecognized.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrDuplicateEmail):
		return "duplicate_email"
	case errors.Is(err, ErrWeakCredential):
		return "weak_credential"
	case errors.Is(err, ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, ErrExpiredToken):
		return "expired_token"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrInvalidCurrency):
		return "invalid_currency"
	case errors.Is(err, ErrAlreadyReversed):
		return "already_reversed"
	case errors.Is(err, ErrConflict):
		return "conflict"
	}
	return "internal"
}
