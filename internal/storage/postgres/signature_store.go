package postgres

import (
	"context"
	"fmt"

	"solana-token-audit/internal/storage"
)

// SignatureStore implements storage.SignatureStore using the consumed_signatures table.
// Unlike the memory store it survives restarts.
type SignatureStore struct {
	pool *Pool
}

// NewSignatureStore creates a new SignatureStore.
func NewSignatureStore(pool *Pool) *SignatureStore {
	return &SignatureStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SignatureStore = (*SignatureStore)(nil)

// Contains reports whether the signature has been consumed.
func (s *SignatureStore) Contains(ctx context.Context, signature string) (bool, error) {
	if signature == "" {
		return false, storage.ErrInvalidInput
	}

	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM consumed_signatures WHERE signature = $1)
	`, signature).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check signature: %w", err)
	}
	return exists, nil
}

// Claim inserts the signature. The primary key makes concurrent claims race-free.
func (s *SignatureStore) Claim(ctx context.Context, signature string) error {
	if signature == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO consumed_signatures (signature, consumed_at)
		VALUES ($1, NOW())
	`, signature)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("claim signature: %w", err)
	}
	return nil
}

// Len returns the number of consumed signatures.
func (s *SignatureStore) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM consumed_signatures`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count signatures: %w", err)
	}
	return n, nil
}
