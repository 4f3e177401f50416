package domain

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// ErrReadOnlySource is returned by every write operation when no
	// database is configured. The static catalog never accepts writes,
	// so there is no fallback path for them.
	ErrReadOnlySource = errors.New("catalog writes require a configured database")

	// ErrInvalidInput marks a rejected request payload.
	ErrInvalidInput = errors.New("invalid input")
)
