package redislock

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/example/staff-dashboard/internal/application"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store := New(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestKey(t *testing.T) {
	if got := Key("shift:42"); got != "editlock:shift:42" {
		t.Fatalf("Key() = %q", got)
	}
}

func TestStore(t *testing.T) {
	t.Parallel()

	store, mr := newTestStore(t)
	ctx := context.Background()
	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	now := time.Date(2024, time.January, 2, 9, 0, 0, 0, time.UTC)
	lock := application.EditLock{
		RecordID:   "shift:1",
		Holder:     "alice@x.com",
		HolderName: "Alice",
		AcquiredAt: now,
		RenewedAt:  now,
		ExpiresAt:  now.Add(time.Minute),
	}

	if err := store.PutLock(ctx, lock, time.Minute); err != nil {
		t.Fatalf("PutLock: %v", err)
	}
	if ttl := mr.TTL(Key("shift:1")); ttl != time.Minute {
		t.Fatalf("expected key TTL of one minute, got %s", ttl)
	}
	got, err := store.GetLock(ctx, "shift:1")
	if err != nil {
		t.Fatalf("GetLock: %v", err)
	}
	if got.Holder != "alice@x.com" || got.HolderName != "Alice" || !got.ExpiresAt.Equal(lock.ExpiresAt) {
		t.Fatalf("unexpected lock %+v", got)
	}

	if err := store.DeleteLock(ctx, "shift:1"); err != nil {
		t.Fatalf("DeleteLock: %v", err)
	}
	if _, err := store.GetLock(ctx, "shift:1"); !errors.Is(err, application.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.DeleteLock(ctx, "shift:1"); !errors.Is(err, application.ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
	}

	if err := store.PutLock(ctx, lock, 50*time.Millisecond); err != nil {
		t.Fatalf("PutLock short ttl: %v", err)
	}
	mr.FastForward(100 * time.Millisecond)
	if _, err := store.GetLock(ctx, "shift:1"); !errors.Is(err, application.ErrNotFound) {
		t.Fatalf("expected key TTL to expire the lock, got %v", err)
	}
}

func TestStoreRejectsCorruptValue(t *testing.T) {
	t.Parallel()

	store, mr := newTestStore(t)
	if err := mr.Set(Key("shift:9"), "not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	_, err := store.GetLock(context.Background(), "shift:9")
	if err == nil || errors.Is(err, application.ErrNotFound) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestLockServiceOverRedis(t *testing.T) {
	t.Parallel()

	store, mr := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, time.January, 2, 9, 0, 0, 0, time.UTC)
	advance := func(d time.Duration) {
		now = now.Add(d)
		mr.FastForward(d)
	}
	svc := application.NewLockService(store, time.Minute, func() time.Time { return now }, slog.New(slog.NewTextHandler(io.Discard, nil)))

	alice := application.Principal{Email: "Alice@x.com", Name: "Alice"}
	bob := application.Principal{Email: "bob@x.com", Name: "Bob"}

	lock, err := svc.Acquire(ctx, alice, "shift:1")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if lock.Holder != "alice@x.com" || !lock.ExpiresAt.Equal(now.Add(time.Minute)) {
		t.Fatalf("unexpected lock %+v", lock)
	}

	var conflict *application.LockConflictError
	if _, err := svc.Acquire(ctx, bob, "shift:1"); !errors.As(err, &conflict) || conflict.Lock.HolderName != "Alice" {
		t.Fatalf("expected conflict naming alice, got %v", err)
	}

	advance(30 * time.Second)
	renewed, err := svc.Renew(ctx, alice, "shift:1")
	if err != nil {
		t.Fatalf("Renew: %v", err)
	}
	if !renewed.ExpiresAt.Equal(now.Add(time.Minute)) || !renewed.AcquiredAt.Equal(lock.AcquiredAt) {
		t.Fatalf("expected renewal to slide expiry only, got %+v", renewed)
	}
	if ttl := mr.TTL(Key("shift:1")); ttl != time.Minute {
		t.Fatalf("expected renewal to reset key TTL, got %s", ttl)
	}
	if _, err := svc.Renew(ctx, bob, "shift:1"); !errors.Is(err, application.ErrLockNotHeld) {
		t.Fatalf("expected ErrLockNotHeld for bob, got %v", err)
	}

	advance(61 * time.Second)
	if mr.Exists(Key("shift:1")) {
		t.Fatalf("expected redis to expire the key")
	}
	if _, ok, err := svc.Status(ctx, "shift:1"); err != nil || ok {
		t.Fatalf("expected no live lock, got %v %v", ok, err)
	}
	if _, err := svc.Renew(ctx, alice, "shift:1"); !errors.Is(err, application.ErrLockNotHeld) {
		t.Fatalf("expected ErrLockNotHeld after expiry, got %v", err)
	}
	if _, err := svc.Acquire(ctx, bob, "shift:1"); err != nil {
		t.Fatalf("expected bob to take the expired lock, got %v", err)
	}
	if err := svc.Release(ctx, bob, "shift:1"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if mr.Exists(Key("shift:1")) {
		t.Fatalf("expected release to delete the key")
	}
}
