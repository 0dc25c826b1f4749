package editlock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/example/staff-dashboard/internal/logging"
)

const (
	// DefaultRenewInterval applies when the granted lock carries no TTL.
	DefaultRenewInterval = 30 * time.Second
	// DefaultMaxRenewFailures is the number of consecutive failed renewals
	// tolerated before the lock is treated as lost.
	DefaultMaxRenewFailures = 2
	// DefaultReleaseTimeout bounds the best-effort release in Close.
	DefaultReleaseTimeout = 3 * time.Second
)

// LostEvent is delivered when a held lock is lost.
type LostEvent struct {
	RecordID string
	Err      error
	At       time.Time
}

// Client holds at most one lock on behalf of one editor. Acquire starts a
// renewal task that runs until Release or Close, or until the lock is lost.
type Client struct {
	backend        Backend
	now            func() time.Time
	logger         *slog.Logger
	interval       time.Duration
	maxFailures    int
	releaseTimeout time.Duration
	onLost         func(LostEvent)

	mu       sync.Mutex
	state    State
	recordID string
	lock     Lock
	failures int
	lostErr  error
	cancel   context.CancelFunc
	done     chan struct{}
}

// Option configures a Client.
type Option func(*Client)

// WithClock injects the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the fallback logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRenewInterval fixes the renewal period instead of half the lock TTL.
func WithRenewInterval(d time.Duration) Option {
	return func(c *Client) { c.interval = d }
}

// WithMaxRenewFailures sets how many consecutive renewal failures are
// tolerated before the lock is lost.
func WithMaxRenewFailures(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxFailures = n
		}
	}
}

// WithReleaseTimeout bounds the release attempted by Close.
func WithReleaseTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.releaseTimeout = d
		}
	}
}

// WithOnLost registers a callback for lock loss. It runs on the renewal
// goroutine or on the caller of Renew.
func WithOnLost(fn func(LostEvent)) Option {
	return func(c *Client) { c.onLost = fn }
}

// NewClient returns an unlocked client.
func NewClient(backend Backend, opts ...Option) *Client {
	c := &Client{
		backend:        backend,
		now:            time.Now,
		logger:         slog.Default(),
		maxFailures:    DefaultMaxRenewFailures,
		releaseTimeout: DefaultReleaseTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) log(ctx context.Context, operation string) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = c.logger
	}
	return logger.With("component", "editlock", "operation", operation, "record_id", c.RecordID())
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// RecordID returns the record the client is bound to, if any.
func (c *Client) RecordID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recordID
}

// Current returns the held lock.
func (c *Client) Current() (Lock, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Held {
		return Lock{}, false
	}
	return c.lock, true
}

// LostErr returns the error that caused the lock to be lost, or nil.
func (c *Client) LostErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lostErr
}

// Acquire requests a lock on recordID. A denied request returns an error
// matching ErrLockConflict and leaves the client unlocked. Acquiring the
// record already held is a no-op.
func (c *Client) Acquire(ctx context.Context, recordID string) (Lock, error) {
	recordID = strings.TrimSpace(recordID)
	if recordID == "" {
		return Lock{}, errors.New("editlock: record id is required")
	}
	if c == nil || c.backend == nil {
		return Lock{}, errors.New("editlock: backend not configured")
	}

	c.mu.Lock()
	switch c.state {
	case Held:
		if c.recordID == recordID {
			lock := c.lock
			c.mu.Unlock()
			return lock, nil
		}
		held := c.recordID
		c.mu.Unlock()
		return Lock{}, fmt.Errorf("%w: holding %s", ErrBusy, held)
	case Acquiring, Releasing:
		state := c.state
		c.mu.Unlock()
		return Lock{}, fmt.Errorf("%w: %s", ErrBusy, state)
	}
	c.state = Acquiring
	c.recordID = recordID
	c.lostErr = nil
	c.mu.Unlock()

	logger := c.log(ctx, "Acquire")
	lock, err := c.backend.Acquire(ctx, recordID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = Unlocked
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			logger.InfoContext(ctx, "lock denied", "holder", conflict.Holder)
		} else {
			logger.WarnContext(ctx, "lock acquisition failed", "error", err)
		}
		return Lock{}, err
	}

	c.state = Held
	c.lock = lock
	c.failures = 0

	interval := c.renewInterval(lock)
	c.startRenewalLocked(context.WithoutCancel(ctx), interval)
	logger.InfoContext(ctx, "lock acquired", "ttl", lock.TTL, "renew_interval", interval)
	return lock, nil
}

func (c *Client) renewInterval(lock Lock) time.Duration {
	if c.interval > 0 {
		return c.interval
	}
	if lock.TTL > 0 {
		return lock.TTL / 2
	}
	return DefaultRenewInterval
}

func (c *Client) startRenewalLocked(base context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(base)
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done

	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tickCtx, tickCancel := context.WithTimeout(ctx, interval)
				err := c.renew(tickCtx)
				tickCancel()
				if errors.Is(err, ErrLockLost) {
					return
				}
			}
		}
	}()
}

// Renew refreshes the held lock immediately. Losing ownership, exceeding
// the failure budget or passing the lock's expiry moves the client to
// Expired and returns an error matching ErrLockLost.
func (c *Client) Renew(ctx context.Context) error {
	return c.renew(ctx)
}

func (c *Client) renew(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case Held:
	case Expired:
		err := c.lostErr
		c.mu.Unlock()
		return err
	default:
		c.mu.Unlock()
		return ErrNotHeld
	}
	recordID := c.recordID
	c.mu.Unlock()

	lock, err := c.backend.Renew(ctx, recordID)

	c.mu.Lock()
	if c.state != Held || c.recordID != recordID {
		c.mu.Unlock()
		return ErrNotHeld
	}
	if err == nil {
		c.lock = lock
		c.failures = 0
		c.mu.Unlock()
		return nil
	}

	c.failures++
	now := c.now()
	ownershipLost := errors.Is(err, ErrNotHeld) || errors.Is(err, ErrLockConflict)
	if !ownershipLost && c.failures < c.maxFailures && now.Before(c.lock.ExpiresAt()) {
		failures := c.failures
		c.mu.Unlock()
		c.log(ctx, "Renew").WarnContext(ctx, "lock renewal failed, will retry", "error", err, "failures", failures)
		return err
	}

	lostErr := fmt.Errorf("%w: %w", ErrLockLost, err)
	c.state = Expired
	c.lostErr = lostErr
	cancel := c.cancel
	c.cancel = nil
	onLost := c.onLost
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.log(ctx, "Renew").WarnContext(ctx, "lock lost", "error", err, "ownership_lost", ownershipLost)
	if onLost != nil {
		onLost(LostEvent{RecordID: recordID, Err: lostErr, At: now})
	}
	return lostErr
}

// Release gives up the lock and stops renewal. Releasing when nothing is
// held, or after the lock was lost, returns nil. A backend failure is
// returned but the client still ends Unlocked since the lock will lapse.
func (c *Client) Release(ctx context.Context) error {
	if c == nil {
		return nil
	}

	c.mu.Lock()
	switch c.state {
	case Unlocked, Releasing:
		c.mu.Unlock()
		return nil
	case Acquiring:
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrBusy, Acquiring)
	case Expired:
		recordID := c.recordID
		c.state = Unlocked
		c.lock = Lock{}
		c.mu.Unlock()
		// The lock may still be ours remotely when it was lost to network
		// errors; a foreign lock is left untouched by the backend.
		if err := c.backend.Release(ctx, recordID); err != nil {
			c.log(ctx, "Release").DebugContext(ctx, "release after loss failed", "error", err)
		}
		return nil
	}

	c.state = Releasing
	recordID := c.recordID
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	err := c.backend.Release(ctx, recordID)

	c.mu.Lock()
	c.state = Unlocked
	c.lock = Lock{}
	c.failures = 0
	c.mu.Unlock()

	logger := c.log(ctx, "Release")
	if err != nil {
		logger.WarnContext(ctx, "lock release failed", "error", err)
		return err
	}
	logger.InfoContext(ctx, "lock released")
	return nil
}

// Close releases the lock with a bounded timeout, for editor teardown where
// the caller cannot wait long.
func (c *Client) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.releaseTimeout)
	defer cancel()
	return c.Release(ctx)
}
