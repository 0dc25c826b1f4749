package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// GetJSON loads and decodes a document into a T.
func GetJSON[T any](ctx context.Context, store DocumentStore, collection, id string) (T, error) {
	var out T
	doc, err := store.GetDocument(ctx, collection, id)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(doc.Data, &out); err != nil {
		return out, fmt.Errorf("persistence: decode %s/%s: %w", collection, id, err)
	}
	return out, nil
}

// PutJSON encodes value and stores it under collection/id.
func PutJSON(ctx context.Context, store DocumentStore, collection, id string, value any, updatedAt time.Time) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("persistence: encode %s/%s: %w", collection, id, err)
	}
	return store.PutDocument(ctx, Document{Collection: collection, ID: id, Data: data, UpdatedAt: updatedAt})
}

// ListJSON decodes every document in collection. Documents that fail to
// decode are reported through skip and left out of the result.
func ListJSON[T any](ctx context.Context, store DocumentStore, collection string, skip func(id string, err error)) ([]T, error) {
	docs, err := store.ListDocuments(ctx, collection)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var value T
		if err := json.Unmarshal(doc.Data, &value); err != nil {
			if skip != nil {
				skip(doc.ID, err)
			}
			continue
		}
		out = append(out, value)
	}
	return out, nil
}
