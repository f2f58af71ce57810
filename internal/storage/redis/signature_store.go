// Package redis provides a Redis-backed signature store with expiry.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"solana-token-audit/internal/storage"
)

// DefaultKeyPrefix namespaces consumed signatures.
const DefaultKeyPrefix = "audit:payment:sig:"

// SignatureStore implements storage.SignatureStore with SET NX.
// With a positive TTL it is the bounded, expiring variant of the replay set:
// a signature may be replayed once its key expires, so the TTL must exceed
// the age at which the ledger stops serving the transaction.
type SignatureStore struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

// NewClient parses a redis:// URL and returns a connected client.
func NewClient(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// NewSignatureStore creates a store. ttl <= 0 keeps keys forever.
func NewSignatureStore(client *goredis.Client, ttl time.Duration) *SignatureStore {
	if ttl < 0 {
		ttl = 0
	}
	return &SignatureStore{client: client, prefix: DefaultKeyPrefix, ttl: ttl}
}

var _ storage.SignatureStore = (*SignatureStore)(nil)

func (s *SignatureStore) key(signature string) string {
	return s.prefix + signature
}

// Contains reports whether the signature has been consumed.
func (s *SignatureStore) Contains(ctx context.Context, signature string) (bool, error) {
	if signature == "" {
		return false, storage.ErrInvalidInput
	}

	n, err := s.client.Exists(ctx, s.key(signature)).Result()
	if err != nil {
		return false, fmt.Errorf("check signature: %w", err)
	}
	return n > 0, nil
}

// Claim sets the signature key only if absent.
func (s *SignatureStore) Claim(ctx context.Context, signature string) error {
	if signature == "" {
		return storage.ErrInvalidInput
	}

	ok, err := s.client.SetNX(ctx, s.key(signature), time.Now().Unix(), s.ttl).Result()
	if err != nil {
		return fmt.Errorf("claim signature: %w", err)
	}
	if !ok {
		return storage.ErrDuplicateKey
	}
	return nil
}

// Len counts live signature keys. It scans the keyspace; use for status only.
func (s *SignatureStore) Len(ctx context.Context) (int, error) {
	n := 0
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 500).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("count signatures: %w", err)
	}
	return n, nil
}
