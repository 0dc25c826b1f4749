// Package stores opens the document and lock stores selected by
// configuration.
package stores

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/example/staff-dashboard/internal/application"
	"github.com/example/staff-dashboard/internal/config"
	"github.com/example/staff-dashboard/internal/persistence"
	"github.com/example/staff-dashboard/internal/persistence/memory"
	"github.com/example/staff-dashboard/internal/persistence/mongo"
	"github.com/example/staff-dashboard/internal/persistence/postgres"
	"github.com/example/staff-dashboard/internal/persistence/redislock"
	"github.com/example/staff-dashboard/internal/persistence/sqlite"
)

// OpenDocuments opens cfg.Store and applies its migrations.
func OpenDocuments(ctx context.Context, cfg config.Config, logger *slog.Logger) (persistence.DocumentStore, error) {
	switch cfg.Store {
	case config.StoreMemory:
		logger.WarnContext(ctx, "using in-memory store; data is lost on restart")
		return memory.New(), nil
	case config.StoreSQLite:
		store, err := sqlite.Open(ctx, sqlite.DefaultConfig(cfg.SQLiteDSN))
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		return store, nil
	case config.StorePostgres:
		if err := postgres.Migrate(cfg.PostgresDSN, logger); err != nil {
			return nil, err
		}
		return postgres.Connect(ctx, cfg.PostgresDSN, logger)
	case config.StoreMongo:
		return mongo.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	default:
		return nil, fmt.Errorf("stores: unknown store %q", cfg.Store)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// OpenLocks returns the lock store selected by cfg.LockStore. The document
// option keeps locks next to the records in repo.
func OpenLocks(ctx context.Context, cfg config.Config, repo *application.DocumentRepository) (application.LockStore, io.Closer, error) {
	switch cfg.LockStore {
	case config.LockStoreDocument:
		return repo, nopCloser{}, nil
	case config.LockStoreRedis:
		store, err := redislock.Connect(ctx, redislock.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("stores: unknown lock store %q", cfg.LockStore)
	}
}
