package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/example/staff-dashboard/internal/logging"
)

// Cache reads and writes the session record through a Storage.
type Cache struct {
	mu          sync.Mutex
	store       Storage
	name        string
	ttl         time.Duration
	maxLifetime time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides the sliding inactivity window.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithMaxLifetime caps a session at d after IssuedAt regardless of activity.
// Zero disables the ceiling.
func WithMaxLifetime(d time.Duration) Option {
	return func(c *Cache) { c.maxLifetime = d }
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the fallback logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithName overrides the storage key.
func WithName(name string) Option {
	return func(c *Cache) {
		if strings.TrimSpace(name) != "" {
			c.name = name
		}
	}
}

// NewCache returns a Cache over store.
func NewCache(store Storage, opts ...Option) *Cache {
	c := &Cache{
		store:  store,
		name:   DefaultName,
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) log(ctx context.Context, operation string) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = c.logger
	}
	return logger.With("component", "session", "operation", operation)
}

// Save persists identity with IssuedAt and LastActivity set to now. An
// identity without email or name yields ErrIncompleteIdentity; write
// failures wrap ErrStorage.
func (c *Cache) Save(ctx context.Context, identity Identity) (Record, error) {
	now := c.now()
	rec := Record{
		Email:        strings.TrimSpace(identity.Email),
		Name:         strings.TrimSpace(identity.Name),
		IsManager:    identity.IsManager,
		Token:        identity.Token,
		IssuedAt:     now,
		LastActivity: now,
	}
	if !rec.Complete() {
		return Record{}, ErrIncompleteIdentity
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.write(rec); err != nil {
		c.log(ctx, "Save").WarnContext(ctx, "failed to persist session", "error", err)
		return rec, err
	}
	c.log(ctx, "Save").InfoContext(ctx, "session saved", "email", rec.Email)
	return rec, nil
}

// Load returns the stored record when it is present, well formed, complete
// and fresh. Expired or unreadable records are removed.
func (c *Cache) Load(ctx context.Context) (Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load(ctx)
}

// Touch slides LastActivity to now. It reports false when there is no valid
// session. A failed write keeps the in-memory result and is only logged.
func (c *Cache) Touch(ctx context.Context) (Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.load(ctx)
	if !ok {
		return Record{}, false
	}
	rec.LastActivity = c.now()
	if err := c.write(rec); err != nil {
		c.log(ctx, "Touch").WarnContext(ctx, "failed to refresh session activity", "error", err)
	}
	return rec, true
}

// Clear removes the stored record.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		return nil
	}
	if err := c.store.Remove(c.name); err != nil {
		c.log(ctx, "Clear").WarnContext(ctx, "failed to remove session", "error", err)
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

func (c *Cache) load(ctx context.Context) (Record, bool) {
	logger := c.log(ctx, "Load")
	if c.store == nil {
		return Record{}, false
	}

	data, err := c.store.Read(c.name)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotExist):
		return Record{}, false
	case errors.Is(err, ErrInvalidSealedData):
		logger.WarnContext(ctx, "discarding undecryptable session", "error", err)
		c.discard(ctx)
		return Record{}, false
	default:
		logger.WarnContext(ctx, "failed to read session", "error", err)
		return Record{}, false
	}

	rec, err := decodeRecord(data)
	if err != nil {
		logger.WarnContext(ctx, "discarding malformed session", "error", err)
		c.discard(ctx)
		return Record{}, false
	}

	now := c.now()
	switch {
	case !rec.Complete():
		logger.InfoContext(ctx, "discarding incomplete session")
	case !rec.Fresh(now, c.ttl):
		logger.InfoContext(ctx, "session expired", "last_activity", rec.LastActivity)
	case c.maxLifetime > 0 && now.Sub(rec.IssuedAt) >= c.maxLifetime:
		logger.InfoContext(ctx, "session reached maximum lifetime", "issued_at", rec.IssuedAt)
	default:
		return rec, true
	}
	c.discard(ctx)
	return Record{}, false
}

func (c *Cache) discard(ctx context.Context) {
	if err := c.store.Remove(c.name); err != nil {
		c.log(ctx, "Load").WarnContext(ctx, "failed to remove stale session", "error", err)
	}
}

func (c *Cache) write(rec Record) error {
	if c.store == nil {
		return fmt.Errorf("%w: storage not configured", ErrStorage)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if err := c.store.Write(c.name, data); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}
