package stores

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/example/staff-dashboard/internal/application"
	"github.com/example/staff-dashboard/internal/config"
	"github.com/example/staff-dashboard/internal/persistence"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpenDocuments(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name string
		cfg  config.Config
	}{
		{name: "memory", cfg: config.Config{Store: config.StoreMemory}},
		{name: "sqlite", cfg: config.Config{Store: config.StoreSQLite, SQLiteDSN: filepath.Join(t.TempDir(), "dash.db")}},
	}
	for _, tc := range tests {
		store, err := OpenDocuments(ctx, tc.cfg, discard())
		if err != nil {
			t.Fatalf("%s: OpenDocuments: %v", tc.name, err)
		}
		doc := persistence.Document{Collection: "people", ID: "a@x.com", Data: []byte(`{"email":"a@x.com"}`)}
		if err := store.PutDocument(ctx, doc); err != nil {
			t.Fatalf("%s: PutDocument: %v", tc.name, err)
		}
		if err := store.Close(); err != nil {
			t.Fatalf("%s: Close: %v", tc.name, err)
		}
	}

	if _, err := OpenDocuments(ctx, config.Config{Store: "etcd"}, discard()); err == nil {
		t.Fatalf("expected unknown store to fail")
	}
}

func TestOpenLocksDocument(t *testing.T) {
	t.Parallel()

	repo := application.NewDocumentRepository(nil, discard())
	locks, closer, err := OpenLocks(context.Background(), config.Config{LockStore: config.LockStoreDocument}, repo)
	if err != nil {
		t.Fatalf("OpenLocks: %v", err)
	}
	if locks != repo {
		t.Fatalf("expected the document repository to hold locks")
	}
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, _, err := OpenLocks(context.Background(), config.Config{LockStore: "zookeeper"}, repo); err == nil {
		t.Fatalf("expected unknown lock store to fail")
	}
}
