package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/example/staff-dashboard/internal/identity"
	"github.com/example/staff-dashboard/internal/persistence/memory"
)

var (
	alice = Principal{Email: "a@x.com", Name: "Alice", IsManager: true}
	bob   = Principal{Email: "bob@x.com", Name: "Bob"}
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

type testEnv struct {
	clock     *testClock
	repo      *DocumentRepository
	directory *Directory
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.New()
	t.Cleanup(func() { _ = store.Close() })

	env := &testEnv{
		clock: newTestClock(),
		repo:  NewDocumentRepository(store, discardLogger()),
	}
	env.directory = NewDirectory(env.repo, 16, time.Minute)

	for _, p := range []Person{
		{Email: "a@x.com", Name: "Alice", IsManager: true, Active: true, Channels: []string{"Phone"}},
		{Email: "bob@x.com", Name: "Bob", Active: true, Channels: []string{"Chat"}},
		{Email: "carol@x.com", Name: "Carol", Active: false},
	} {
		if err := env.repo.PutPerson(context.Background(), p); err != nil {
			t.Fatalf("seed person: %v", err)
		}
	}
	return env
}

// stubVerifier accepts a fixed set of credentials.
type stubVerifier map[string]identity.Claims

func (s stubVerifier) Verify(_ context.Context, credential string) (identity.Claims, error) {
	claims, ok := s[credential]
	if !ok {
		return identity.Claims{}, identity.ErrInvalidToken
	}
	return claims, nil
}

func at(day, hour int) time.Time {
	return time.Date(2024, time.January, day, hour, 0, 0, 0, time.UTC)
}
