package postgres_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-audit/internal/storage"
	"solana-token-audit/internal/storage/migrations"
	"solana-token-audit/internal/storage/postgres"
)

func TestSignatureStore_ClaimAndContains(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewSignatureStore(pool)

	seen, err := store.Contains(ctx, "Sig1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, store.Claim(ctx, "Sig1"))

	seen, err = store.Contains(ctx, "Sig1")
	require.NoError(t, err)
	assert.True(t, seen)

	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSignatureStore_DuplicateClaim(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewSignatureStore(pool)

	require.NoError(t, store.Claim(ctx, "Sig1"))
	assert.ErrorIs(t, store.Claim(ctx, "Sig1"), storage.ErrDuplicateKey)
}

func TestSignatureStore_ConcurrentClaims(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewSignatureStore(pool)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.Claim(ctx, "Contested"); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestSignatureStore_SurvivesReconnect(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, postgres.NewSignatureStore(pool).Claim(ctx, "Sig1"))

	// Migrations are idempotent and must not drop consumed signatures.
	require.NoError(t, migrations.RunPostgresMigrations(ctx, pool))

	seen, err := postgres.NewSignatureStore(pool).Contains(ctx, "Sig1")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestRunPostgresMigrations_RecordsVersions(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, migrations.RunPostgresMigrations(ctx, pool))

	embedded, err := migrations.PostgresMigrations()
	require.NoError(t, err)

	rows, err := pool.Query(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	require.NoError(t, err)
	versions, err := pgx.CollectRows(rows, pgx.RowTo[string])
	require.NoError(t, err)

	require.Len(t, versions, len(embedded), "each migration is recorded once")
	for i, m := range embedded {
		assert.Equal(t, m.Version, versions[i])
	}
}
