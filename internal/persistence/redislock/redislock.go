// Package redislock keeps edit locks in Redis so that expiry is enforced by
// the key TTL rather than by lazy cleanup.
package redislock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/staff-dashboard/internal/application"
)

// KeyPrefix namespaces lock keys.
const KeyPrefix = "editlock:"

// Store implements application.LockStore on a Redis client.
type Store struct {
	client *redis.Client
}

var _ application.LockStore = (*Store)(nil)

// Options configures Connect.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Connect dials Redis and verifies it answers PING.
func Connect(ctx context.Context, opts Options) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redislock: ping %s: %w", opts.Addr, err)
	}
	return &Store{client: client}, nil
}

// New wraps an existing client.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

// Key returns the Redis key for recordID.
func Key(recordID string) string {
	return KeyPrefix + recordID
}

// GetLock loads the lock for recordID.
func (s *Store) GetLock(ctx context.Context, recordID string) (application.EditLock, error) {
	raw, err := s.client.Get(ctx, Key(recordID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return application.EditLock{}, application.ErrNotFound
		}
		return application.EditLock{}, fmt.Errorf("redislock: get %s: %w", recordID, err)
	}
	var lock application.EditLock
	if err := json.Unmarshal(raw, &lock); err != nil {
		return application.EditLock{}, fmt.Errorf("redislock: decode %s: %w", recordID, err)
	}
	return lock, nil
}

// PutLock stores lock with a key TTL of ttl.
func (s *Store) PutLock(ctx context.Context, lock application.EditLock, ttl time.Duration) error {
	data, err := json.Marshal(lock)
	if err != nil {
		return fmt.Errorf("redislock: encode %s: %w", lock.RecordID, err)
	}
	if ttl < time.Millisecond {
		ttl = time.Millisecond
	}
	if err := s.client.Set(ctx, Key(lock.RecordID), data, ttl).Err(); err != nil {
		return fmt.Errorf("redislock: set %s: %w", lock.RecordID, err)
	}
	return nil
}

// DeleteLock removes the lock for recordID.
func (s *Store) DeleteLock(ctx context.Context, recordID string) error {
	n, err := s.client.Del(ctx, Key(recordID)).Result()
	if err != nil {
		return fmt.Errorf("redislock: del %s: %w", recordID, err)
	}
	if n == 0 {
		return application.ErrNotFound
	}
	return nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}
