package habit

import "errors"

// Domain error taxonomy. Callers match with errors.Is; the HTTP layer maps
// each to a status code and machine-readable kind.
var (
	// ErrNotFound: a habit or record is absent where one is required.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateName: an active habit with the same name already exists
	// for the user.
	ErrDuplicateName = errors.New("duplicate habit name")

	// ErrInvalidTarget: target value below 1, or a malformed cadence or
	// weekday set.
	ErrInvalidTarget = errors.New("invalid target")

	// ErrConflict: a write collided with a concurrent update and the
	// bounded retries were exhausted.
	ErrConflict = errors.New("concurrent update conflict")
)
