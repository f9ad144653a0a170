package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/voxdrill/pkg/kv"
	"github.com/MrWong99/voxdrill/pkg/kv/kvtest"
	"github.com/MrWong99/voxdrill/pkg/kv/postgres"
)

// testDSN returns the test database DSN from the environment, or skips the
// test if VOXDRILL_TEST_POSTGRES_DSN is not set.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("VOXDRILL_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("VOXDRILL_TEST_POSTGRES_DSN not set, skipping PostgreSQL integration tests")
	}
	return dsn
}

// newTestStore drops the table and returns a freshly migrated store.
func newTestStore(t *testing.T) kv.Store {
	t.Helper()
	dsn := testDSN(t)
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pgxpool.New: %v", err)
	}
	t.Cleanup(pool.Close)
	if _, err := pool.Exec(ctx, `DROP TABLE IF EXISTS voxdrill_kv`); err != nil {
		t.Fatalf("drop table: %v", err)
	}

	store, err := postgres.New(ctx, dsn)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_Contract(t *testing.T) {
	kvtest.Run(t, newTestStore)
}

func TestMigrate_Idempotent(t *testing.T) {
	dsn := testDSN(t)
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pgxpool.New: %v", err)
	}
	defer pool.Close()

	for i := range 2 {
		if err := postgres.Migrate(ctx, pool); err != nil {
			t.Fatalf("Migrate #%d: %v", i+1, err)
		}
	}
}

func TestNew_BadDSN(t *testing.T) {
	t.Parallel()

	if _, err := postgres.New(context.Background(), "postgres://user@localhost:notaport/db"); err == nil {
		t.Fatal("New with malformed DSN: want error")
	}
}
