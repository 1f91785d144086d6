package store

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	// ErrLocked is returned when a write targets a verified hypothesis.
	ErrLocked = errors.New("hypothesis is verified")
)
