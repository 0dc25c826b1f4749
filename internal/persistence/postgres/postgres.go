// Package postgres stores dashboard documents in PostgreSQL as JSONB rows.
// The schema is managed by golang-migrate from embedded SQL files.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/staff-dashboard/internal/persistence"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// pool is the subset of *pgxpool.Pool the store uses.
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Store implements persistence.DocumentStore on a pgx pool.
type Store struct {
	pool pool
}

var _ persistence.DocumentStore = (*Store)(nil)

// Connect creates the pool and verifies the server is reachable.
func Connect(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	if logger != nil {
		logger.InfoContext(ctx, "connected to postgres",
			slog.String("host", poolCfg.ConnConfig.Host),
			slog.String("database", poolCfg.ConnConfig.Database),
		)
	}
	return &Store{pool: pool}, nil
}

// Migrate applies the embedded migrations.
func Migrate(dsn string, logger *slog.Logger) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("postgres: migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, MigrationURL(dsn))
	if err != nil {
		return fmt.Errorf("postgres: init migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("postgres: apply migrations: %w", err)
	}

	if logger != nil {
		version, dirty, _ := m.Version()
		logger.Info("migrations applied", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
	}
	return nil
}

// MigrationURL rewrites a postgres:// DSN to the pgx5:// scheme expected by
// the migrate driver.
func MigrationURL(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks the pool.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// GetDocument loads one document.
func (s *Store) GetDocument(ctx context.Context, collection, id string) (persistence.Document, error) {
	doc := persistence.Document{Collection: collection, ID: id}
	err := s.pool.QueryRow(ctx,
		`SELECT data::text, updated_at FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&doc.Data, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return persistence.Document{}, persistence.ErrNotFound
		}
		return persistence.Document{}, fmt.Errorf("postgres: get %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

// PutDocument upserts a document.
func (s *Store) PutDocument(ctx context.Context, doc persistence.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO documents (collection, id, data, updated_at) VALUES ($1, $2, $3::jsonb, $4)
ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		doc.Collection, doc.ID, string(doc.Data), doc.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("postgres: put %s/%s: %w", doc.Collection, doc.ID, err)
	}
	return nil
}

// DeleteDocument removes a document.
func (s *Store) DeleteDocument(ctx context.Context, collection, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return fmt.Errorf("postgres: delete %s/%s: %w", collection, id, err)
	}
	if tag.RowsAffected() == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// ListDocuments returns the collection ordered by id.
func (s *Store) ListDocuments(ctx context.Context, collection string) ([]persistence.Document, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, data::text, updated_at FROM documents WHERE collection = $1 ORDER BY id`, collection)
	if err != nil {
		return nil, fmt.Errorf("postgres: list %s: %w", collection, err)
	}
	defer rows.Close()

	docs := make([]persistence.Document, 0)
	for rows.Next() {
		doc := persistence.Document{Collection: collection}
		if err := rows.Scan(&doc.ID, &doc.Data, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan %s: %w", collection, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list %s: %w", collection, err)
	}
	return docs, nil
}
