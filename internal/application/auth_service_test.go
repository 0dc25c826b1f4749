package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/staff-dashboard/internal/identity"
)

func newTestAuthService(t *testing.T, env *testEnv) (*AuthService, *identity.TokenIssuer) {
	t.Helper()
	tokens, err := identity.NewTokenIssuer("test-secret", "staff-dashboard", 8*time.Hour, env.clock.Now)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	verifier := stubVerifier{
		"tok1":    {Email: "A@X.com", Name: "Alice Example", EmailVerified: true},
		"bobtok":  {Email: "bob@x.com", Name: "Bob", EmailVerified: true},
		"carol":   {Email: "carol@x.com", Name: "Carol", EmailVerified: true},
		"unknown": {Email: "stranger@x.com", Name: "Stranger", EmailVerified: true},
	}
	return NewAuthService(verifier, tokens, env.directory, discardLogger()), tokens
}

func TestAuthService_SignIn(t *testing.T) {
	t.Parallel()

	t.Run("matches roster entry", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		svc, tokens := newTestAuthService(t, env)

		result, err := svc.SignIn(context.Background(), "tok1")
		if err != nil {
			t.Fatalf("SignIn failed: %v", err)
		}
		if result.UserEmail != "a@x.com" || result.MatchedPerson != "Alice" || !result.IsManager {
			t.Fatalf("unexpected result %+v", result)
		}
		if !result.ExpiresAt.Equal(env.clock.Now().Add(8 * time.Hour)) {
			t.Fatalf("expected 8h session, got %v", result.ExpiresAt)
		}
		claims, err := tokens.Parse(result.Token)
		if err != nil || claims.Email != "a@x.com" {
			t.Fatalf("expected issued token to parse, got %+v %v", claims, err)
		}
	})

	tests := []struct {
		name       string
		credential string
		wantErr    error
	}{
		{name: "empty credential", credential: " ", wantErr: ErrInvalidCredentials},
		{name: "unverifiable credential", credential: "forged", wantErr: ErrInvalidCredentials},
		{name: "not on roster", credential: "unknown", wantErr: ErrUnknownPerson},
		{name: "inactive person", credential: "carol", wantErr: ErrAccountDisabled},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t)
			svc, _ := newTestAuthService(t, env)
			if _, err := svc.SignIn(context.Background(), tc.credential); !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestAuthService_ValidateSession(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	svc, _ := newTestAuthService(t, env)
	ctx := context.Background()

	result, err := svc.SignIn(ctx, "bobtok")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}

	principal, err := svc.ValidateSession(ctx, result.Token)
	if err != nil {
		t.Fatalf("ValidateSession failed: %v", err)
	}
	if principal.Email != "bob@x.com" || principal.IsManager {
		t.Fatalf("unexpected principal %+v", principal)
	}

	promoted := Person{Email: "bob@x.com", Name: "Bob", IsManager: true, Active: true}
	if err := env.repo.PutPerson(ctx, promoted); err != nil {
		t.Fatalf("PutPerson: %v", err)
	}
	env.directory.Invalidate("bob@x.com")
	if principal, err = svc.ValidateSession(ctx, result.Token); err != nil || !principal.IsManager {
		t.Fatalf("expected roster promotion to apply, got %+v %v", principal, err)
	}

	promoted.Active = false
	if err := env.repo.PutPerson(ctx, promoted); err != nil {
		t.Fatalf("PutPerson: %v", err)
	}
	env.directory.Invalidate("bob@x.com")
	if _, err := svc.ValidateSession(ctx, result.Token); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}

	if _, err := svc.ValidateSession(ctx, "garbage"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_ValidateSessionExpired(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	svc, _ := newTestAuthService(t, env)
	ctx := context.Background()

	result, err := svc.SignIn(ctx, "tok1")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	env.clock.Advance(8 * time.Hour)
	if _, err := svc.ValidateSession(ctx, result.Token); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
}
