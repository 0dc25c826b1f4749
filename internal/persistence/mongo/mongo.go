// Package mongo stores each dashboard collection as a MongoDB collection.
// Documents keep their JSON payload as a nested BSON document so the data
// stays queryable from the mongo shell.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/example/staff-dashboard/internal/persistence"
)

type record struct {
	ID        string    `bson:"_id"`
	Data      bson.Raw  `bson:"data"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// Store implements persistence.DocumentStore on a MongoDB database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ persistence.DocumentStore = (*Store)(nil)

// Connect dials uri and selects database.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}
	return &Store{client: client, db: client.Database(database)}, nil
}

// Database exposes the selected database, mainly for test cleanup.
func (s *Store) Database() *mongo.Database {
	return s.db
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Ping checks the primary.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// GetDocument loads one document.
func (s *Store) GetDocument(ctx context.Context, collection, id string) (persistence.Document, error) {
	var rec record
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return persistence.Document{}, persistence.ErrNotFound
		}
		return persistence.Document{}, fmt.Errorf("mongo: get %s/%s: %w", collection, id, err)
	}
	return toDocument(collection, rec)
}

// PutDocument upserts a document.
func (s *Store) PutDocument(ctx context.Context, doc persistence.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}

	var data bson.D
	if err := bson.UnmarshalExtJSON(doc.Data, false, &data); err != nil {
		return fmt.Errorf("%w: %s/%s is not a JSON object: %v", persistence.ErrInvalidDocument, doc.Collection, doc.ID, err)
	}

	_, err := s.db.Collection(doc.Collection).UpdateOne(ctx,
		bson.M{"_id": doc.ID},
		bson.M{"$set": bson.M{"data": data, "updatedAt": doc.UpdatedAt.UTC()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongo: put %s/%s: %w", doc.Collection, doc.ID, err)
	}
	return nil
}

// DeleteDocument removes a document.
func (s *Store) DeleteDocument(ctx context.Context, collection, id string) error {
	res, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("mongo: delete %s/%s: %w", collection, id, err)
	}
	if res.DeletedCount == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// ListDocuments returns the collection ordered by id.
func (s *Store) ListDocuments(ctx context.Context, collection string) ([]persistence.Document, error) {
	cursor, err := s.db.Collection(collection).Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongo: list %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	docs := make([]persistence.Document, 0)
	for cursor.Next(ctx) {
		var rec record
		if err := cursor.Decode(&rec); err != nil {
			return nil, fmt.Errorf("mongo: decode %s: %w", collection, err)
		}
		doc, err := toDocument(collection, rec)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("mongo: list %s: %w", collection, err)
	}
	return docs, nil
}

func toDocument(collection string, rec record) (persistence.Document, error) {
	data, err := bson.MarshalExtJSON(rec.Data, false, false)
	if err != nil {
		return persistence.Document{}, fmt.Errorf("mongo: encode %s/%s: %w", collection, rec.ID, err)
	}
	return persistence.Document{
		Collection: collection,
		ID:         rec.ID,
		Data:       data,
		UpdatedAt:  rec.UpdatedAt.UTC(),
	}, nil
}
