package storage

import "errors"

// Storage errors for the transaction journal.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when inserting a record whose ID already exists.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidTransition is returned when a status update would leave a terminal
	// status or move backwards.
	ErrInvalidTransition = errors.New("invalid status transition")
)
