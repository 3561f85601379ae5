package repository

import "errors"

// Errors shared by every repository implementation. Services translate
// these into their own failure kinds at the application boundary.
var (
	// ErrNotFound is returned when a row does not exist or is owned by
	// somebody else. Implementations must not distinguish the two cases.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate signals a uniqueness violation (e.g. user email).
	ErrDuplicate = errors.New("duplicate")

	// ErrAlreadyReversed signals that a transaction already has a
	// reversal recorded against it.
	ErrAlreadyReversed = errors.New("already reversed")

	// ErrConflict signals a concurrent-update conflict that is safe to
	// retry (serialization failure, deadlock).
	ErrConflict = errors.New("write conflict")
)
