package storage

import "context"

// SignatureStore is the replay-prevention set of consumed payment signatures.
// Signatures are only ever added; a consumed signature stays consumed.
type SignatureStore interface {
	// Contains reports whether the signature has been consumed.
	Contains(ctx context.Context, signature string) (bool, error)

	// Claim atomically marks the signature consumed.
	// Returns ErrDuplicateKey if it was already consumed.
	Claim(ctx context.Context, signature string) error

	// Len returns the number of consumed signatures currently held.
	Len(ctx context.Context) (int, error)
}
