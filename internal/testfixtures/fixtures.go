// Package testfixtures provides deterministic clocks, identifiers, rosters and
// a fully wired in-process backend for tests.
package testfixtures

import (
	"context"
	"testing"
	"time"

	"github.com/example/staff-dashboard/internal/application"
	"github.com/example/staff-dashboard/internal/identity"
	"github.com/example/staff-dashboard/internal/seed"
)

var referenceTime = time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// Well known roster members.
var (
	Alice = application.Person{Email: "a@x.com", Name: "Alice", IsManager: true, Active: true, Channels: []string{"Phone"}}
	Bob   = application.Person{Email: "bob@x.com", Name: "Bob", Active: true, Channels: []string{"Chat"}}
	Carol = application.Person{Email: "carol@x.com", Name: "Carol", Active: false, Channels: []string{"Email"}}
)

// Roster returns copies of Alice, Bob and Carol.
func Roster() []application.Person {
	out := []application.Person{Alice, Bob, Carol}
	for i := range out {
		out[i].Channels = append([]string(nil), out[i].Channels...)
		out[i].UpdatedAt = referenceTime
	}
	return out
}

// Credentials maps identity-provider credentials to the roster members they
// verify as. "tok1" signs in as Alice.
func Credentials() map[string]identity.Claims {
	return map[string]identity.Claims{
		"tok1":     {Subject: "1", Email: "a@x.com", Name: "Alice A.", EmailVerified: true},
		"bob-tok":  {Subject: "2", Email: "bob@x.com", Name: "Bob B.", EmailVerified: true},
		"carol-tk": {Subject: "3", Email: "carol@x.com", Name: "Carol C.", EmailVerified: true},
		"stranger": {Subject: "4", Email: "stranger@x.com", Name: "Stranger", EmailVerified: true},
	}
}

// Verifier accepts a fixed set of credentials.
type Verifier map[string]identity.Claims

// Verify implements application.TokenVerifier.
func (v Verifier) Verify(_ context.Context, credential string) (identity.Claims, error) {
	claims, ok := v[credential]
	if !ok {
		return identity.Claims{}, identity.ErrInvalidToken
	}
	return claims, nil
}

// SeedRoster writes the fixed roster plus n generated agents and returns the
// generated ones.
func SeedRoster(tb testing.TB, w seed.Writer, n int) []application.Person {
	tb.Helper()
	ctx := context.Background()
	for _, person := range Roster() {
		if err := w.PutPerson(ctx, person); err != nil {
			tb.Fatalf("seed roster: %v", err)
		}
	}
	if n <= 0 {
		return nil
	}
	generated := seed.New(1, nil, referenceTime).People(n, 0, "fixtures.test")
	if err := seed.Load(ctx, w, seed.Dataset{People: generated}); err != nil {
		tb.Fatalf("seed generated people: %v", err)
	}
	return generated
}
