package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/staff-dashboard/internal/persistence/sqlite"
)

// NewSQLiteStore opens a migrated document store in a temporary directory.
// The store is closed when the test ends.
func NewSQLiteStore(tb testing.TB) *sqlite.Store {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "dashboard.db")
	store, err := sqlite.Open(context.Background(), sqlite.DefaultConfig(path))
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}
	tb.Cleanup(func() { _ = store.Close() })
	return store
}
