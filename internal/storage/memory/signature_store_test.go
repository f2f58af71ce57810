package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"solana-token-audit/internal/storage"
)

func TestSignatureStore_ClaimAndContains(t *testing.T) {
	store := NewSignatureStore()
	ctx := context.Background()

	seen, err := store.Contains(ctx, "sig1")
	if err != nil {
		t.Fatalf("Contains failed: %v", err)
	}
	if seen {
		t.Error("expected unseen signature")
	}

	if err := store.Claim(ctx, "sig1"); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}

	seen, err = store.Contains(ctx, "sig1")
	if err != nil {
		t.Fatalf("Contains failed: %v", err)
	}
	if !seen {
		t.Error("expected consumed signature")
	}

	n, _ := store.Len(ctx)
	if n != 1 {
		t.Errorf("expected 1 signature, got %d", n)
	}
}

func TestSignatureStore_DuplicateClaim(t *testing.T) {
	store := NewSignatureStore()
	ctx := context.Background()

	if err := store.Claim(ctx, "sig1"); err != nil {
		t.Fatalf("first Claim failed: %v", err)
	}

	err := store.Claim(ctx, "sig1")
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestSignatureStore_EmptySignature(t *testing.T) {
	store := NewSignatureStore()
	ctx := context.Background()

	if err := store.Claim(ctx, ""); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := store.Contains(ctx, ""); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSignatureStore_ConcurrentClaims(t *testing.T) {
	store := NewSignatureStore()
	ctx := context.Background()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.Claim(ctx, "contested"); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Errorf("expected exactly 1 successful claim, got %d", wins.Load())
	}
}

func TestSignatureStore_Distinct(t *testing.T) {
	store := NewSignatureStore()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := store.Claim(ctx, fmt.Sprintf("sig%d", i)); err != nil {
			t.Fatalf("Claim %d failed: %v", i, err)
		}
	}

	n, _ := store.Len(ctx)
	if n != 10 {
		t.Errorf("expected 10 signatures, got %d", n)
	}
}
