package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an insert violates a uniqueness
	// constraint, e.g. a second active reservation by the same passenger
	// on the same ride.
	ErrDuplicate = errors.New("duplicate entity")

	// ErrNoRowsAffected is returned when a conditional update matched no
	// row, meaning the guarded precondition no longer holds.
	ErrNoRowsAffected = errors.New("no rows affected")
)
