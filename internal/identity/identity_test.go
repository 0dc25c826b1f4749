package identity

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

const (
	testKeyID    = "test-key"
	testAudience = "dashboard-client.apps.example.com"
)

var testNow = time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)

func generateTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	return key
}

func buildJWKSetJSON(pub *rsa.PublicKey, kid string) json.RawMessage {
	jwks := map[string]any{
		"keys": []map[string]any{
			{
				"kty": "RSA",
				"kid": kid,
				"use": "sig",
				"alg": "RS256",
				"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			},
		},
	}
	data, _ := json.Marshal(jwks)
	return data
}

func newTestVerifier(t *testing.T, key *rsa.PrivateKey) *Verifier {
	t.Helper()
	kf, err := keyfunc.NewJWKSetJSON(buildJWKSetJSON(&key.PublicKey, testKeyID))
	if err != nil {
		t.Fatalf("keyfunc: %v", err)
	}
	return NewVerifierWithKeyfunc(kf, testAudience, nil, 0).WithClock(func() time.Time { return testNow })
}

func signIDToken(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKeyID
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func baseClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"iss":            "https://accounts.google.com",
		"aud":            testAudience,
		"sub":            "1234567890",
		"email":          "A@X.com",
		"email_verified": true,
		"name":           "Alice",
		"iat":            testNow.Add(-time.Minute).Unix(),
		"exp":            testNow.Add(time.Hour).Unix(),
	}
}

func TestVerifierAcceptsValidToken(t *testing.T) {
	t.Parallel()

	key := generateTestKey(t)
	verifier := newTestVerifier(t, key)

	claims, err := verifier.Verify(context.Background(), signIDToken(t, key, baseClaims()))
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if claims.Email != "a@x.com" || claims.Name != "Alice" || claims.Subject != "1234567890" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestVerifierRejects(t *testing.T) {
	t.Parallel()

	key := generateTestKey(t)
	other := generateTestKey(t)
	verifier := newTestVerifier(t, key)

	tests := []struct {
		name    string
		key     *rsa.PrivateKey
		mutate  func(jwt.MapClaims)
		wantErr error
	}{
		{name: "expired", key: key, mutate: func(c jwt.MapClaims) { c["exp"] = testNow.Add(-time.Minute).Unix() }, wantErr: ErrInvalidToken},
		{name: "missing expiry", key: key, mutate: func(c jwt.MapClaims) { delete(c, "exp") }, wantErr: ErrInvalidToken},
		{name: "wrong audience", key: key, mutate: func(c jwt.MapClaims) { c["aud"] = "someone-else" }, wantErr: ErrInvalidToken},
		{name: "wrong issuer", key: key, mutate: func(c jwt.MapClaims) { c["iss"] = "https://evil.example.com" }, wantErr: ErrInvalidToken},
		{name: "no email", key: key, mutate: func(c jwt.MapClaims) { delete(c, "email") }, wantErr: ErrInvalidToken},
		{name: "unverified email", key: key, mutate: func(c jwt.MapClaims) { c["email_verified"] = false }, wantErr: ErrEmailNotVerified},
		{name: "foreign signature", key: other, mutate: func(jwt.MapClaims) {}, wantErr: ErrInvalidToken},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			claims := baseClaims()
			tc.mutate(claims)
			_, err := verifier.Verify(context.Background(), signIDToken(t, tc.key, claims))
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}

	if _, err := verifier.Verify(context.Background(), "   "); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for blank credential, got %v", err)
	}
	if _, err := verifier.Verify(context.Background(), "not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for garbage, got %v", err)
	}
}

func TestTokenIssuerRoundTrip(t *testing.T) {
	t.Parallel()

	current := testNow
	issuer, err := NewTokenIssuer("secret", "staff-dashboard", 8*time.Hour, func() time.Time { return current })
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}

	token, expiresAt, err := issuer.Issue("A@X.com", "Alice", true)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !expiresAt.Equal(testNow.Add(8 * time.Hour)) {
		t.Fatalf("unexpected expiry %v", expiresAt)
	}

	claims, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Email != "a@x.com" || claims.Name != "Alice" || !claims.IsManager {
		t.Fatalf("unexpected claims %+v", claims)
	}

	current = testNow.Add(8 * time.Hour)
	_, err = issuer.Parse(token)
	if !errors.Is(err, ErrInvalidToken) || !Expired(err) {
		t.Fatalf("expected expired token error, got %v", err)
	}
}

func TestTokenIssuerRejectsForeignTokens(t *testing.T) {
	t.Parallel()

	now := func() time.Time { return testNow }
	mine, _ := NewTokenIssuer("secret", "staff-dashboard", time.Hour, now)
	theirs, _ := NewTokenIssuer("other-secret", "staff-dashboard", time.Hour, now)
	otherIssuer, _ := NewTokenIssuer("secret", "someone-else", time.Hour, now)

	for name, source := range map[string]*TokenIssuer{"secret": theirs, "issuer": otherIssuer} {
		token, _, err := source.Issue("a@x.com", "Alice", false)
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}
		if _, err := mine.Parse(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}

	if _, err := NewTokenIssuer("", "x", time.Hour, nil); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
