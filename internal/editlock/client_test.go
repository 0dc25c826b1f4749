package editlock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var errUnreachable = errors.New("network unreachable")

// lockTable mimics the remote lock documents shared by several editors.
type lockTable struct {
	mu         sync.Mutex
	now        func() time.Time
	ttl        time.Duration
	locks      map[string]Lock
	renewCalls int
}

func newLockTable(now func() time.Time, ttl time.Duration) *lockTable {
	return &lockTable{now: now, ttl: ttl, locks: make(map[string]Lock)}
}

func (t *lockTable) set(lock Lock) {
	t.mu.Lock()
	t.locks[lock.RecordID] = lock
	t.mu.Unlock()
}

func (t *lockTable) get(recordID string) (Lock, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	lock, ok := t.locks[recordID]
	return lock, ok
}

func (t *lockTable) renewals() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.renewCalls
}

type tableBackend struct {
	table      *lockTable
	identity   string
	acquireErr error
	renewErr   error
	releaseErr error
}

func (b *tableBackend) Acquire(_ context.Context, recordID string) (Lock, error) {
	if b.acquireErr != nil {
		return Lock{}, b.acquireErr
	}
	t := b.table
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	if existing, ok := t.locks[recordID]; ok && existing.Holder != b.identity && !existing.Expired(now) {
		return Lock{}, &ConflictError{RecordID: recordID, Holder: existing.Holder, ExpiresAt: existing.ExpiresAt()}
	}
	lock := Lock{RecordID: recordID, Holder: b.identity, AcquiredAt: now, RenewedAt: now, TTL: t.ttl}
	t.locks[recordID] = lock
	return lock, nil
}

func (b *tableBackend) Renew(_ context.Context, recordID string) (Lock, error) {
	t := b.table
	t.mu.Lock()
	defer t.mu.Unlock()
	t.renewCalls++
	if b.renewErr != nil {
		return Lock{}, b.renewErr
	}
	existing, ok := t.locks[recordID]
	if !ok || existing.Holder != b.identity {
		return Lock{}, ErrNotHeld
	}
	existing.RenewedAt = t.now()
	t.locks[recordID] = existing
	return existing, nil
}

func (b *tableBackend) Release(_ context.Context, recordID string) error {
	if b.releaseErr != nil {
		return b.releaseErr
	}
	t := b.table
	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.locks[recordID]; ok && existing.Holder == b.identity {
		delete(t.locks, recordID)
	}
	return nil
}

type testClock struct {
	mu      sync.Mutex
	current time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	c.mu.Unlock()
}

func newFixture(t *testing.T) (*testClock, *lockTable) {
	t.Helper()
	clock := &testClock{current: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	return clock, newLockTable(clock.Now, 2*time.Minute)
}

func TestAcquireConflict(t *testing.T) {
	t.Parallel()

	clock, table := newFixture(t)
	ctx := context.Background()

	alice := NewClient(&tableBackend{table: table, identity: "alice@x.com"}, WithClock(clock.Now), WithRenewInterval(time.Hour))
	bob := NewClient(&tableBackend{table: table, identity: "bob@x.com"}, WithClock(clock.Now), WithRenewInterval(time.Hour))
	t.Cleanup(func() {
		alice.Close()
		bob.Close()
	})

	lock, err := alice.Acquire(ctx, "shift:42")
	if err != nil {
		t.Fatalf("alice acquire: %v", err)
	}
	if lock.Holder != "alice@x.com" || alice.State() != Held {
		t.Fatalf("expected alice to hold lock, got %+v state=%s", lock, alice.State())
	}

	_, err = bob.Acquire(ctx, "shift:42")
	if !errors.Is(err, ErrLockConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	var conflict *ConflictError
	if !errors.As(err, &conflict) || conflict.Holder != "alice@x.com" {
		t.Fatalf("expected holder alice, got %+v", conflict)
	}
	if bob.State() != Unlocked {
		t.Fatalf("expected bob to stay unlocked, got %s", bob.State())
	}

	again, err := alice.Acquire(ctx, "shift:42")
	if err != nil || again.Holder != "alice@x.com" {
		t.Fatalf("expected re-acquire of held record to be a no-op, got %+v %v", again, err)
	}
	if _, err := alice.Acquire(ctx, "shift:43"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy for second record, got %v", err)
	}
}

func TestAcquireAfterExpiry(t *testing.T) {
	t.Parallel()

	clock, table := newFixture(t)
	ctx := context.Background()
	table.set(Lock{RecordID: "shift:42", Holder: "alice@x.com", RenewedAt: clock.Now(), TTL: time.Minute})
	clock.Advance(time.Minute)

	bob := NewClient(&tableBackend{table: table, identity: "bob@x.com"}, WithClock(clock.Now), WithRenewInterval(time.Hour))
	defer bob.Close()

	if _, err := bob.Acquire(ctx, "shift:42"); err != nil {
		t.Fatalf("expected expired lock to be taken over, got %v", err)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	t.Parallel()

	clock, table := newFixture(t)
	ctx := context.Background()
	client := NewClient(&tableBackend{table: table, identity: "alice@x.com"}, WithClock(clock.Now), WithRenewInterval(time.Hour))

	if err := client.Release(ctx); err != nil {
		t.Fatalf("release before acquire: %v", err)
	}
	if _, err := client.Acquire(ctx, "shift:42"); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := client.Release(ctx); err != nil {
		t.Fatalf("first release: %v", err)
	}
	if err := client.Release(ctx); err != nil {
		t.Fatalf("second release: %v", err)
	}
	if client.State() != Unlocked {
		t.Fatalf("expected unlocked, got %s", client.State())
	}
	if _, ok := table.get("shift:42"); ok {
		t.Fatalf("expected remote lock to be removed")
	}
}

func TestReleaseFailureStillUnlocks(t *testing.T) {
	t.Parallel()

	clock, table := newFixture(t)
	backend := &tableBackend{table: table, identity: "alice@x.com"}
	client := NewClient(backend, WithClock(clock.Now), WithRenewInterval(time.Hour))

	if _, err := client.Acquire(context.Background(), "shift:42"); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	backend.releaseErr = errUnreachable
	if err := client.Close(); !errors.Is(err, errUnreachable) {
		t.Fatalf("expected release error to surface, got %v", err)
	}
	if client.State() != Unlocked {
		t.Fatalf("expected unlocked after failed release, got %s", client.State())
	}
}

func TestRenewalRunsInBackground(t *testing.T) {
	t.Parallel()

	clock, table := newFixture(t)
	client := NewClient(&tableBackend{table: table, identity: "alice@x.com"}, WithClock(clock.Now), WithRenewInterval(5*time.Millisecond))

	if _, err := client.Acquire(context.Background(), "shift:42"); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for table.renewals() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("expected background renewals, got %d", table.renewals())
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := client.Release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
	after := table.renewals()
	time.Sleep(30 * time.Millisecond)
	if table.renewals() != after {
		t.Fatalf("expected renewal to stop after release")
	}
}

func TestRenewIntervalIsHalfTTL(t *testing.T) {
	t.Parallel()

	client := NewClient(nil)
	if got := client.renewInterval(Lock{TTL: 2 * time.Minute}); got != time.Minute {
		t.Fatalf("expected half TTL, got %s", got)
	}
	if got := client.renewInterval(Lock{}); got != DefaultRenewInterval {
		t.Fatalf("expected default interval, got %s", got)
	}
}

func TestRenewOwnershipLoss(t *testing.T) {
	t.Parallel()

	clock, table := newFixture(t)
	ctx := context.Background()

	var events []LostEvent
	client := NewClient(&tableBackend{table: table, identity: "alice@x.com"},
		WithClock(clock.Now),
		WithRenewInterval(time.Hour),
		WithOnLost(func(ev LostEvent) { events = append(events, ev) }),
	)
	if _, err := client.Acquire(ctx, "shift:42"); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	// Another editor overwrote the lock document.
	table.set(Lock{RecordID: "shift:42", Holder: "bob@x.com", RenewedAt: clock.Now(), TTL: time.Minute})

	err := client.Renew(ctx)
	if !errors.Is(err, ErrLockLost) || !errors.Is(err, ErrNotHeld) {
		t.Fatalf("expected lock lost wrapping not held, got %v", err)
	}
	if client.State() != Expired {
		t.Fatalf("expected expired state, got %s", client.State())
	}
	if len(events) != 1 || events[0].RecordID != "shift:42" {
		t.Fatalf("expected one lost event, got %+v", events)
	}
	if !errors.Is(client.LostErr(), ErrLockLost) {
		t.Fatalf("expected LostErr to be recorded")
	}
	if err := client.Renew(ctx); !errors.Is(err, ErrLockLost) {
		t.Fatalf("expected renew after loss to keep reporting loss, got %v", err)
	}

	if err := client.Release(ctx); err != nil {
		t.Fatalf("release after loss: %v", err)
	}
	if client.State() != Unlocked {
		t.Fatalf("expected unlocked after release, got %s", client.State())
	}
	if lock, ok := table.get("shift:42"); !ok || lock.Holder != "bob@x.com" {
		t.Fatalf("expected bob's lock to survive, got %+v %v", lock, ok)
	}
}

func TestRenewToleratesSingleNetworkFailure(t *testing.T) {
	t.Parallel()

	clock, table := newFixture(t)
	ctx := context.Background()
	backend := &tableBackend{table: table, identity: "alice@x.com"}
	client := NewClient(backend, WithClock(clock.Now), WithRenewInterval(time.Hour))
	defer client.Close()

	if _, err := client.Acquire(ctx, "shift:42"); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	backend.renewErr = errUnreachable
	if err := client.Renew(ctx); !errors.Is(err, errUnreachable) || errors.Is(err, ErrLockLost) {
		t.Fatalf("expected retryable failure, got %v", err)
	}
	if client.State() != Held {
		t.Fatalf("expected lock to remain held after one failure, got %s", client.State())
	}

	backend.renewErr = nil
	if err := client.Renew(ctx); err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}

	backend.renewErr = errUnreachable
	client.Renew(ctx)
	if err := client.Renew(ctx); !errors.Is(err, ErrLockLost) {
		t.Fatalf("expected loss after consecutive failures, got %v", err)
	}
}

func TestRenewFailurePastExpiryLosesLock(t *testing.T) {
	t.Parallel()

	clock, table := newFixture(t)
	ctx := context.Background()
	backend := &tableBackend{table: table, identity: "alice@x.com"}
	client := NewClient(backend, WithClock(clock.Now), WithRenewInterval(time.Hour), WithMaxRenewFailures(5))

	if _, err := client.Acquire(ctx, "shift:42"); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	clock.Advance(3 * time.Minute)
	backend.renewErr = errUnreachable

	if err := client.Renew(ctx); !errors.Is(err, ErrLockLost) {
		t.Fatalf("expected loss once the lock has lapsed, got %v", err)
	}
}

func TestAcquireNetworkFailure(t *testing.T) {
	t.Parallel()

	_, table := newFixture(t)
	client := NewClient(&tableBackend{table: table, identity: "alice@x.com", acquireErr: errUnreachable})

	if _, err := client.Acquire(context.Background(), "shift:42"); !errors.Is(err, errUnreachable) {
		t.Fatalf("expected network error, got %v", err)
	}
	if client.State() != Unlocked {
		t.Fatalf("expected unlocked, got %s", client.State())
	}
	if _, err := client.Acquire(context.Background(), " "); err == nil {
		t.Fatalf("expected error for empty record id")
	}
}

func TestStateString(t *testing.T) {
	t.Parallel()

	want := map[State]string{
		Unlocked:  "unlocked",
		Acquiring: "acquiring",
		Held:      "held",
		Releasing: "releasing",
		Expired:   "expired",
		State(99): "unknown",
	}
	for state, name := range want {
		if state.String() != name {
			t.Fatalf("State(%d).String() = %q, want %q", int(state), state.String(), name)
		}
	}
}
