// Package storetest holds the behaviour every DocumentStore backend must
// share. Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/staff-dashboard/internal/persistence"
)

// Factory opens a fresh, empty store for one subtest.
type Factory func(t *testing.T) persistence.DocumentStore

// Run exercises the DocumentStore contract against stores built by open.
func Run(t *testing.T, open Factory) {
	t.Helper()

	t.Run("get missing", func(t *testing.T) {
		store := open(t)
		_, err := store.GetDocument(context.Background(), persistence.CollectionPeople, "nobody")
		if !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("put get overwrite", func(t *testing.T) {
		ctx := context.Background()
		store := open(t)
		updated := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

		doc := persistence.Document{
			Collection: persistence.CollectionShifts,
			ID:         "shift-1",
			Data:       []byte(`{"channel":"Phone"}`),
			UpdatedAt:  updated,
		}
		if err := store.PutDocument(ctx, doc); err != nil {
			t.Fatalf("PutDocument: %v", err)
		}
		got, err := store.GetDocument(ctx, doc.Collection, doc.ID)
		if err != nil {
			t.Fatalf("GetDocument: %v", err)
		}
		if !jsonEqual(got.Data, doc.Data) || got.ID != doc.ID || got.Collection != doc.Collection {
			t.Fatalf("unexpected document %+v", got)
		}
		if !got.UpdatedAt.Equal(updated) {
			t.Fatalf("expected updated at %v, got %v", updated, got.UpdatedAt)
		}

		doc.Data = []byte(`{"channel":"Chat"}`)
		doc.UpdatedAt = updated.Add(time.Minute)
		if err := store.PutDocument(ctx, doc); err != nil {
			t.Fatalf("PutDocument overwrite: %v", err)
		}
		got, err = store.GetDocument(ctx, doc.Collection, doc.ID)
		if err != nil {
			t.Fatalf("GetDocument: %v", err)
		}
		if !jsonEqual(got.Data, doc.Data) {
			t.Fatalf("expected last write to win, got %s", got.Data)
		}
	})

	t.Run("collections are separate", func(t *testing.T) {
		ctx := context.Background()
		store := open(t)
		put(t, store, persistence.CollectionPeople, "a@x.com")
		if _, err := store.GetDocument(ctx, persistence.CollectionShifts, "a@x.com"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound across collections, got %v", err)
		}
	})

	t.Run("list ordered by id", func(t *testing.T) {
		ctx := context.Background()
		store := open(t)
		for _, id := range []string{"c", "a", "b"} {
			put(t, store, persistence.CollectionTimeOff, id)
		}
		put(t, store, persistence.CollectionPeople, "z")

		docs, err := store.ListDocuments(ctx, persistence.CollectionTimeOff)
		if err != nil {
			t.Fatalf("ListDocuments: %v", err)
		}
		if len(docs) != 3 || docs[0].ID != "a" || docs[1].ID != "b" || docs[2].ID != "c" {
			t.Fatalf("unexpected listing %+v", docs)
		}

		empty, err := store.ListDocuments(ctx, "unknown")
		if err != nil || len(empty) != 0 {
			t.Fatalf("expected empty listing, got %v %v", empty, err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		ctx := context.Background()
		store := open(t)
		put(t, store, persistence.CollectionLocks, "rec-1")

		if err := store.DeleteDocument(ctx, persistence.CollectionLocks, "rec-1"); err != nil {
			t.Fatalf("DeleteDocument: %v", err)
		}
		if _, err := store.GetDocument(ctx, persistence.CollectionLocks, "rec-1"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
		if err := store.DeleteDocument(ctx, persistence.CollectionLocks, "rec-1"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
		}
	})

	t.Run("invalid document", func(t *testing.T) {
		store := open(t)
		err := store.PutDocument(context.Background(), persistence.Document{Collection: "people", Data: []byte(`{}`)})
		if !errors.Is(err, persistence.ErrInvalidDocument) {
			t.Fatalf("expected ErrInvalidDocument, got %v", err)
		}
	})

	t.Run("ping", func(t *testing.T) {
		store := open(t)
		if err := store.Ping(context.Background()); err != nil {
			t.Fatalf("Ping: %v", err)
		}
	})
}

func put(t *testing.T, store persistence.DocumentStore, collection, id string) {
	t.Helper()
	doc := persistence.Document{
		Collection: collection,
		ID:         id,
		Data:       []byte(`{"id":"` + id + `"}`),
		UpdatedAt:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := store.PutDocument(context.Background(), doc); err != nil {
		t.Fatalf("PutDocument(%s/%s): %v", collection, id, err)
	}
}
