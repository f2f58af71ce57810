// Package memory provides in-memory storage implementations.
package memory

import (
	"context"
	"sync"
	"time"

	"solana-token-audit/internal/storage"
)

// SignatureStore is an in-memory implementation of storage.SignatureStore.
// It lives for the process lifetime and is never evicted.
type SignatureStore struct {
	mu       sync.RWMutex
	consumed map[string]time.Time // signature -> claimed at
}

// NewSignatureStore creates a new in-memory signature store.
func NewSignatureStore() *SignatureStore {
	return &SignatureStore{
		consumed: make(map[string]time.Time),
	}
}

// Contains reports whether the signature has been consumed.
func (s *SignatureStore) Contains(_ context.Context, signature string) (bool, error) {
	if signature == "" {
		return false, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.consumed[signature]
	return ok, nil
}

// Claim marks the signature consumed. Returns ErrDuplicateKey if already consumed.
func (s *SignatureStore) Claim(_ context.Context, signature string) error {
	if signature == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.consumed[signature]; exists {
		return storage.ErrDuplicateKey
	}

	s.consumed[signature] = time.Now()
	return nil
}

// Len returns the number of consumed signatures.
func (s *SignatureStore) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.consumed), nil
}

var _ storage.SignatureStore = (*SignatureStore)(nil)
