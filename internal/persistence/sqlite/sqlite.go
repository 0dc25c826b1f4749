// Package sqlite stores dashboard documents in a single SQLite table using
// the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/staff-dashboard/internal/persistence"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (collection, id)
);
`

// Store implements persistence.DocumentStore on SQLite.
type Store struct {
	db    *sql.DB
	retry RetryConfig
}

var _ persistence.DocumentStore = (*Store)(nil)

// Open connects to the database described by cfg.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	db, err := openDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, retry: DefaultRetryConfig()}, nil
}

// Migrate creates the documents table if needed.
func (s *Store) Migrate(ctx context.Context) error {
	return withRetry(ctx, s.retry, func() error {
		return withTransaction(ctx, s.db, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, schema); err != nil {
				return fmt.Errorf("sqlite: create schema: %w", err)
			}
			return nil
		})
	})
}

// Close closes the connection pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetDocument loads one document.
func (s *Store) GetDocument(ctx context.Context, collection, id string) (persistence.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT data, updated_at FROM documents WHERE collection = ? AND id = ?`, collection, id)

	doc := persistence.Document{Collection: collection, ID: id}
	if err := scanDocument(row, &doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Document{}, persistence.ErrNotFound
		}
		return persistence.Document{}, fmt.Errorf("sqlite: get %s/%s: %w", collection, id, mapError(err))
	}
	return doc, nil
}

// PutDocument upserts a document.
func (s *Store) PutDocument(ctx context.Context, doc persistence.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}

	err := withRetry(ctx, s.retry, func() error {
		_, err := s.db.ExecContext(ctx, `
INSERT INTO documents (collection, id, data, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT (collection, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
			doc.Collection, doc.ID, string(doc.Data), formatTime(doc.UpdatedAt))
		return err
	})
	if err != nil {
		return fmt.Errorf("sqlite: put %s/%s: %w", doc.Collection, doc.ID, err)
	}
	return nil
}

// DeleteDocument removes a document.
func (s *Store) DeleteDocument(ctx context.Context, collection, id string) error {
	var affected int64
	err := withRetry(ctx, s.retry, func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("sqlite: delete %s/%s: %w", collection, id, err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// ListDocuments returns every document in collection ordered by id.
func (s *Store) ListDocuments(ctx context.Context, collection string) ([]persistence.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, data, updated_at FROM documents WHERE collection = ? ORDER BY id`, collection)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list %s: %w", collection, mapError(err))
	}
	defer rows.Close()

	docs := make([]persistence.Document, 0)
	for rows.Next() {
		doc := persistence.Document{Collection: collection}
		var data, updated string
		if err := rows.Scan(&doc.ID, &data, &updated); err != nil {
			return nil, fmt.Errorf("sqlite: scan %s: %w", collection, err)
		}
		doc.Data = []byte(data)
		if doc.UpdatedAt, err = parseTime(updated); err != nil {
			return nil, fmt.Errorf("sqlite: %s/%s: %w", collection, doc.ID, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list %s: %w", collection, err)
	}
	return docs, nil
}

func scanDocument(row *sql.Row, doc *persistence.Document) error {
	var data, updated string
	if err := row.Scan(&data, &updated); err != nil {
		return err
	}
	doc.Data = []byte(data)
	ts, err := parseTime(updated)
	if err != nil {
		return err
	}
	doc.UpdatedAt = ts
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", value, err)
	}
	return t, nil
}
