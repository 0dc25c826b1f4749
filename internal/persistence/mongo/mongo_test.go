package mongo

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/example/staff-dashboard/internal/persistence"
	"github.com/example/staff-dashboard/internal/persistence/storetest"
)

func TestToDocumentRendersRelaxedJSON(t *testing.T) {
	var rec record
	rec.ID = "a@x.com"
	raw, err := bsonFromJSON(`{"name":"Alice","active":true,"channels":["Phone","Chat"]}`)
	if err != nil {
		t.Fatalf("bsonFromJSON: %v", err)
	}
	rec.Data = raw

	doc, err := toDocument(persistence.CollectionPeople, rec)
	if err != nil {
		t.Fatalf("toDocument: %v", err)
	}
	want := `{"name":"Alice","active":true,"channels":["Phone","Chat"]}`
	if string(doc.Data) != want {
		t.Fatalf("toDocument data = %s, want %s", doc.Data, want)
	}
}

func TestRecordDecodesStoredShape(t *testing.T) {
	updated := time.Date(2024, time.January, 2, 9, 30, 0, 0, time.UTC)
	raw, err := bson.Marshal(bson.D{
		{Key: "_id", Value: "shift-1"},
		{Key: "data", Value: bson.D{{Key: "agentEmail", Value: "a@x.com"}, {Key: "hours", Value: 2.5}}},
		{Key: "updatedAt", Value: updated},
	})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var rec record
	if err := bson.Unmarshal(raw, &rec); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	doc, err := toDocument(persistence.CollectionShifts, rec)
	if err != nil {
		t.Fatalf("toDocument: %v", err)
	}
	if doc.ID != "shift-1" || !doc.UpdatedAt.Equal(updated) || doc.UpdatedAt.Location() != time.UTC {
		t.Fatalf("unexpected document %+v", doc)
	}
	if want := `{"agentEmail":"a@x.com","hours":2.5}`; string(doc.Data) != want {
		t.Fatalf("toDocument data = %s, want %s", doc.Data, want)
	}
}

func lookupString(doc bson.Raw, want string, key ...string) bool {
	got, ok := doc.Lookup(key...).StringValueOK()
	return ok && got == want
}

func TestStoreAgainstMockDeployment(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	updated := time.Date(2024, time.January, 2, 9, 30, 0, 0, time.UTC)
	person := func(id, name string) bson.D {
		return bson.D{
			{Key: "_id", Value: id},
			{Key: "data", Value: bson.D{{Key: "name", Value: name}}},
			{Key: "updatedAt", Value: updated},
		}
	}

	mt.Run("get", func(mt *mtest.T) {
		store := &Store{client: mt.Client, db: mt.DB}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.people", mtest.FirstBatch, person("a@x.com", "Alice")))

		doc, err := store.GetDocument(ctx, persistence.CollectionPeople, "a@x.com")
		if err != nil {
			mt.Fatalf("GetDocument: %v", err)
		}
		if string(doc.Data) != `{"name":"Alice"}` || !doc.UpdatedAt.Equal(updated) {
			mt.Fatalf("unexpected document %+v", doc)
		}
		evt := mt.GetStartedEvent()
		if evt == nil || evt.CommandName != "find" || !lookupString(evt.Command, "a@x.com", "filter", "_id") {
			mt.Fatalf("expected find by _id, got %+v", evt)
		}
	})

	mt.Run("get missing", func(mt *mtest.T) {
		store := &Store{client: mt.Client, db: mt.DB}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.people", mtest.FirstBatch))

		if _, err := store.GetDocument(ctx, persistence.CollectionPeople, "nobody@x.com"); !errors.Is(err, persistence.ErrNotFound) {
			mt.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	mt.Run("put upserts nested data", func(mt *mtest.T) {
		store := &Store{client: mt.Client, db: mt.DB}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		doc := persistence.Document{
			Collection: persistence.CollectionPeople,
			ID:         "a@x.com",
			Data:       []byte(`{"name":"Alice","channels":["Phone"]}`),
			UpdatedAt:  updated,
		}
		if err := store.PutDocument(ctx, doc); err != nil {
			mt.Fatalf("PutDocument: %v", err)
		}
		evt := mt.GetStartedEvent()
		if evt == nil || evt.CommandName != "update" {
			mt.Fatalf("expected update command, got %+v", evt)
		}
		if upsert, ok := evt.Command.Lookup("updates", "0", "upsert").BooleanOK(); !ok || !upsert {
			mt.Fatalf("expected upsert, got %s", evt.Command)
		}
		if !lookupString(evt.Command, "Alice", "updates", "0", "u", "$set", "data", "name") {
			mt.Fatalf("expected data stored as a nested document, got %s", evt.Command)
		}
	})

	mt.Run("put rejects non-object", func(mt *mtest.T) {
		store := &Store{client: mt.Client, db: mt.DB}
		doc := persistence.Document{Collection: persistence.CollectionPeople, ID: "a@x.com", Data: []byte(`["Phone"]`), UpdatedAt: updated}
		if err := store.PutDocument(ctx, doc); !errors.Is(err, persistence.ErrInvalidDocument) {
			mt.Fatalf("expected ErrInvalidDocument, got %v", err)
		}
		if evt := mt.GetStartedEvent(); evt != nil {
			mt.Fatalf("expected no command, got %s", evt.CommandName)
		}
	})

	mt.Run("delete missing", func(mt *mtest.T) {
		store := &Store{client: mt.Client, db: mt.DB}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		if err := store.DeleteDocument(ctx, persistence.CollectionPeople, "nobody@x.com"); !errors.Is(err, persistence.ErrNotFound) {
			mt.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	mt.Run("list", func(mt *mtest.T) {
		store := &Store{client: mt.Client, db: mt.DB}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.people", mtest.FirstBatch,
			person("a@x.com", "Alice"), person("bob@x.com", "Bob")))

		docs, err := store.ListDocuments(ctx, persistence.CollectionPeople)
		if err != nil {
			mt.Fatalf("ListDocuments: %v", err)
		}
		if len(docs) != 2 || docs[0].ID != "a@x.com" || string(docs[1].Data) != `{"name":"Bob"}` {
			mt.Fatalf("unexpected documents %+v", docs)
		}
		evt := mt.GetStartedEvent()
		if evt == nil || evt.CommandName != "find" || !lookupString(evt.Command, persistence.CollectionPeople, "find") {
			mt.Fatalf("expected find on people, got %+v", evt)
		}
	})
}

// TestStoreConformance runs against DASHBOARD_TEST_MONGO_URI, for example
// mongodb://localhost:27017. Each subtest gets a fresh database.
func TestStoreConformance(t *testing.T) {
	uri := os.Getenv("DASHBOARD_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("DASHBOARD_TEST_MONGO_URI not set")
	}

	storetest.Run(t, func(t *testing.T) persistence.DocumentStore {
		ctx := context.Background()
		store, err := Connect(ctx, uri, "dashboard_test")
		if err != nil {
			t.Fatalf("Connect: %v", err)
		}
		if err := store.Database().Drop(ctx); err != nil {
			t.Fatalf("drop: %v", err)
		}
		t.Cleanup(func() { _ = store.Close() })
		return store
	})
}
