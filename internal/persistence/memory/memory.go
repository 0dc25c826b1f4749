// Package memory provides an in-process DocumentStore. It backs tests and
// single-node development runs where nothing needs to survive a restart.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/example/staff-dashboard/internal/persistence"
)

// Store keeps documents in maps guarded by a RWMutex.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]persistence.Document
	closed      bool
}

var _ persistence.DocumentStore = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{collections: make(map[string]map[string]persistence.Document)}
}

// GetDocument returns a copy of the stored document.
func (s *Store) GetDocument(_ context.Context, collection, id string) (persistence.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return persistence.Document{}, persistence.ErrClosed
	}
	doc, ok := s.collections[collection][id]
	if !ok {
		return persistence.Document{}, persistence.ErrNotFound
	}
	return doc.Clone(), nil
}

// PutDocument inserts or replaces a document.
func (s *Store) PutDocument(_ context.Context, doc persistence.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return persistence.ErrClosed
	}
	docs, ok := s.collections[doc.Collection]
	if !ok {
		docs = make(map[string]persistence.Document)
		s.collections[doc.Collection] = docs
	}
	docs[doc.ID] = doc.Clone()
	return nil
}

// DeleteDocument removes a document.
func (s *Store) DeleteDocument(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return persistence.ErrClosed
	}
	if _, ok := s.collections[collection][id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.collections[collection], id)
	return nil
}

// ListDocuments returns the collection ordered by id.
func (s *Store) ListDocuments(_ context.Context, collection string) ([]persistence.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, persistence.ErrClosed
	}
	docs := make([]persistence.Document, 0, len(s.collections[collection]))
	for _, doc := range s.collections[collection] {
		docs = append(docs, doc.Clone())
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// Ping reports whether the store is open.
func (s *Store) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return persistence.ErrClosed
	}
	return nil
}

// Close marks the store closed. Further calls fail with ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
