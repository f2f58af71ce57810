package storage

import "errors"

var (
	// ErrDuplicateKey is returned when a signature is claimed twice.
	// Signature stores are append-only.
	ErrDuplicateKey = errors.New("duplicate key: signature already consumed")

	// ErrInvalidInput is returned for empty signatures.
	ErrInvalidInput = errors.New("invalid input")
)
