package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the identity carried in a dashboard session token.
type SessionClaims struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	IsManager bool   `json:"is_manager"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and parses HS256 session tokens.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer returns an issuer for tokens valid for ttl.
func NewTokenIssuer(secret, issuer string, ttl time.Duration, now func() time.Time) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("identity: session secret is required")
	}
	if ttl <= 0 {
		return nil, errors.New("identity: session ttl must be positive")
	}
	if now == nil {
		now = time.Now
	}
	return &TokenIssuer{secret: []byte(secret), issuer: issuer, ttl: ttl, now: now}, nil
}

// TTL returns the lifetime of issued tokens.
func (i *TokenIssuer) TTL() time.Duration {
	return i.ttl
}

// Issue signs a token for the given identity.
func (i *TokenIssuer) Issue(email, name string, isManager bool) (string, time.Time, error) {
	now := i.now().UTC()
	expiresAt := now.Add(i.ttl)
	claims := SessionClaims{
		Email:     strings.ToLower(email),
		Name:      name,
		IsManager: isManager,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strings.ToLower(email),
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("identity: sign session token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse validates token and returns its claims.
func (i *TokenIssuer) Parse(token string) (*SessionClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}
	parsed, err := jwt.ParseWithClaims(token, &SessionClaims{}, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok || !parsed.Valid || claims.Email == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Expired reports whether err came from an expired token.
func Expired(err error) bool {
	return errors.Is(err, jwt.ErrTokenExpired)
}
