package repository

import "errors"

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a conditional state transition finds
	// the record in an unexpected state.
	ErrConflict = errors.New("record in conflicting state")
)
