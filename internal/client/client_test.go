package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/staff-dashboard/internal/api"
	"github.com/example/staff-dashboard/internal/client"
	"github.com/example/staff-dashboard/internal/editlock"
	"github.com/example/staff-dashboard/internal/testfixtures"
)

func newBackendClient(t *testing.T) (*testfixtures.Backend, string) {
	t.Helper()
	backend := testfixtures.NewBackend(t)
	srv := backend.Server(t)
	return backend, srv.URL
}

func signedIn(t *testing.T, baseURL, credential string) *client.Client {
	t.Helper()
	c, err := client.New(baseURL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.SignIn(context.Background(), credential); err != nil {
		t.Fatalf("SignIn(%s): %v", credential, err)
	}
	return c
}

func TestSignInKeepsToken(t *testing.T) {
	t.Parallel()
	_, baseURL := newBackendClient(t)

	c, err := client.New(baseURL + "/")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	resp, err := c.SignIn(context.Background(), "tok1")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if resp.UserEmail != "a@x.com" || resp.MatchedPerson != "Alice" || !resp.IsManager {
		t.Fatalf("unexpected response %+v", resp)
	}
	if c.Token() != resp.Token {
		t.Fatalf("expected client to keep the session token")
	}

	session, err := c.Session(context.Background())
	if err != nil || session.Email != "a@x.com" {
		t.Fatalf("Session: %+v %v", session, err)
	}
}

func TestAuthFailures(t *testing.T) {
	t.Parallel()
	_, baseURL := newBackendClient(t)
	ctx := context.Background()

	c, err := client.New(baseURL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = c.SignIn(ctx, "stranger")
	var authErr *client.AuthError
	if !errors.Is(err, client.ErrAuth) || !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if authErr.Status != http.StatusForbidden || authErr.Code != api.CodeUnknownPerson {
		t.Fatalf("unexpected auth error %+v", authErr)
	}

	if _, err := c.Shifts(ctx, client.ShiftQuery{}); !errors.Is(err, client.ErrAuth) {
		t.Fatalf("expected missing token to be an auth error, got %v", err)
	}

	c.SetToken("garbage")
	if _, err := c.People(ctx); !errors.Is(err, client.ErrAuth) {
		t.Fatalf("expected bad token to be an auth error, got %v", err)
	}
	if errors.Is(err, client.ErrNetwork) {
		t.Fatalf("auth errors must not read as network errors")
	}
}

func TestNetworkFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := client.New(srv.URL, client.WithToken("t"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Coverage(ctx, time.Now()); !errors.Is(err, client.ErrNetwork) {
		t.Fatalf("expected 5xx to be a network error, got %v", err)
	}

	closed := httptest.NewServer(http.NotFoundHandler())
	url := closed.URL
	closed.Close()
	c, err = client.New(url, client.WithToken("t"), client.WithTimeout(time.Second))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Channels(ctx); !errors.Is(err, client.ErrNetwork) {
		t.Fatalf("expected unreachable server to be a network error, got %v", err)
	}

	if _, err := client.New("not a url"); err == nil {
		t.Fatalf("expected invalid base url to be rejected")
	}
}

func TestValidationErrorsCarryFields(t *testing.T) {
	t.Parallel()
	_, baseURL := newBackendClient(t)
	c := signedIn(t, baseURL, "tok1")

	_, err := c.SaveShift(context.Background(), "", api.ShiftRequest{AgentEmail: "bob@x.com", Channel: "Phone"})
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnprocessableEntity || apiErr.Fields["start"] == "" {
		t.Fatalf("unexpected api error %+v", apiErr)
	}
	if errors.Is(err, client.ErrNetwork) || errors.Is(err, client.ErrAuth) {
		t.Fatalf("validation errors are neither auth nor network errors")
	}
}

func TestShiftRoundTrip(t *testing.T) {
	t.Parallel()
	_, baseURL := newBackendClient(t)
	c := signedIn(t, baseURL, "tok1")
	ctx := context.Background()

	saved, err := c.SaveShift(ctx, "", api.ShiftRequest{
		AgentEmail: "bob@x.com",
		Channel:    "Chat",
		Start:      "2024-01-02T09:00:00Z",
		End:        "2024-01-02T12:00:00Z",
	})
	if err != nil {
		t.Fatalf("SaveShift: %v", err)
	}

	day := time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)
	shifts, err := c.Shifts(ctx, client.ShiftQuery{From: day, To: day})
	if err != nil || len(shifts) != 1 || shifts[0].ID != saved.Shift.ID {
		t.Fatalf("Shifts: %+v %v", shifts, err)
	}

	coverage, err := c.Coverage(ctx, day)
	if err != nil || coverage.Date != "2024-01-02" {
		t.Fatalf("Coverage: %+v %v", coverage, err)
	}

	if err := c.DeleteShift(ctx, saved.Shift.ID); err != nil {
		t.Fatalf("DeleteShift: %v", err)
	}
	err = c.DeleteShift(ctx, saved.Shift.ID)
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || !apiErr.NotFound() {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLockBackend(t *testing.T) {
	t.Parallel()
	_, baseURL := newBackendClient(t)
	alice := signedIn(t, baseURL, "tok1")
	bob := signedIn(t, baseURL, "bob-tok")
	ctx := context.Background()

	lock, err := alice.Acquire(ctx, "shift:42")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if lock.Holder != "a@x.com" || lock.TTL != 2*time.Minute {
		t.Fatalf("unexpected lock %+v", lock)
	}

	_, err = bob.Acquire(ctx, "shift:42")
	var conflict *editlock.ConflictError
	if !errors.Is(err, editlock.ErrLockConflict) || !errors.As(err, &conflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if conflict.Holder != "a@x.com" || conflict.HolderName != "Alice" || !conflict.ExpiresAt.Equal(lock.ExpiresAt()) {
		t.Fatalf("unexpected conflict %+v", conflict)
	}

	if _, err := bob.Renew(ctx, "shift:42"); !errors.Is(err, editlock.ErrNotHeld) {
		t.Fatalf("expected ErrNotHeld, got %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := alice.Release(ctx, "shift:42"); err != nil {
			t.Fatalf("Release %d: %v", i, err)
		}
	}
	if status, err := bob.LockStatus(ctx, "shift:42"); err != nil || status.Locked {
		t.Fatalf("expected record to be free, got %+v %v", status, err)
	}
}

func TestEditLockClientOverHTTP(t *testing.T) {
	t.Parallel()
	_, baseURL := newBackendClient(t)
	alice := signedIn(t, baseURL, "tok1")
	bob := signedIn(t, baseURL, "bob-tok")
	ctx := context.Background()

	editor := editlock.NewClient(alice, editlock.WithRenewInterval(time.Hour))
	if _, err := editor.Acquire(ctx, "shift:7"); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := editor.Renew(ctx); err != nil {
		t.Fatalf("Renew: %v", err)
	}

	other := editlock.NewClient(bob)
	if _, err := other.Acquire(ctx, "shift:7"); !errors.Is(err, editlock.ErrLockConflict) {
		t.Fatalf("expected Bob to be denied, got %v", err)
	}
	if other.State() != editlock.Unlocked {
		t.Fatalf("expected denied client to stay unlocked, got %v", other.State())
	}

	if err := editor.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := other.Acquire(ctx, "shift:7"); err != nil {
		t.Fatalf("expected Bob to acquire after release, got %v", err)
	}
	if err := other.Release(ctx); err != nil {
		t.Fatalf("Release: %v", err)
	}
}
