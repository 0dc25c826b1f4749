// Package persistence defines the document store used by the dashboard
// backend. Records are opaque JSON documents addressed by collection and id;
// backends live in the subpackages.
package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Collections used by the dashboard.
const (
	CollectionPeople  = "people"
	CollectionShifts  = "shifts"
	CollectionTimeOff = "timeoff"
	CollectionLocks   = "locks"
)

// Document is one stored record.
type Document struct {
	Collection string
	ID         string
	Data       []byte
	UpdatedAt  time.Time
}

// Validate checks the addressing fields and that Data is present.
func (d Document) Validate() error {
	if strings.TrimSpace(d.Collection) == "" || strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("%w: collection and id are required", ErrInvalidDocument)
	}
	if len(d.Data) == 0 {
		return fmt.Errorf("%w: data is required", ErrInvalidDocument)
	}
	return nil
}

// Clone returns a deep copy.
func (d Document) Clone() Document {
	out := d
	if d.Data != nil {
		out.Data = append([]byte(nil), d.Data...)
	}
	return out
}

// DocumentStore is a key/value store of JSON documents. Put overwrites
// unconditionally; there is no compare-and-set, so concurrent writers to the
// same id race and the last write wins.
type DocumentStore interface {
	GetDocument(ctx context.Context, collection, id string) (Document, error)
	PutDocument(ctx context.Context, doc Document) error
	DeleteDocument(ctx context.Context, collection, id string) error
	ListDocuments(ctx context.Context, collection string) ([]Document, error)
	Ping(ctx context.Context) error
	Close() error
}
