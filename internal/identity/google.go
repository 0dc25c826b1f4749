// Package identity verifies identity-provider ID tokens and issues the
// dashboard's own session tokens.
package identity

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// GoogleIssuers are the issuer values Google places in ID tokens.
var GoogleIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

// Claims is the verified subset of an ID token.
type Claims struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

type idTokenClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified,omitempty"`
	Name          string `json:"name"`
}

// Verifier validates RS256 ID tokens against a JWKS.
type Verifier struct {
	jwks     keyfunc.Keyfunc
	audience string
	issuers  []string
	leeway   time.Duration
	now      func() time.Time
}

// VerifierOptions configures NewVerifier.
type VerifierOptions struct {
	JWKSURL         string
	Audience        string
	Issuers         []string
	RefreshInterval time.Duration
	Leeway          time.Duration
	HTTPClient      *http.Client
	Logger          *slog.Logger
}

// NewVerifier fetches keys from opts.JWKSURL and refreshes them in the
// background until ctx is cancelled. Startup does not fail when the JWKS
// endpoint is unreachable; verification fails until keys arrive.
func NewVerifier(ctx context.Context, opts VerifierOptions) (*Verifier, error) {
	if strings.TrimSpace(opts.Audience) == "" {
		return nil, fmt.Errorf("identity: audience is required")
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	storage, err := jwkset.NewStorageFromHTTP(opts.JWKSURL, jwkset.HTTPClientStorageOptions{
		Client:                    client,
		Ctx:                       ctx,
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           opts.RefreshInterval,
		RefreshErrorHandler: func(ctx context.Context, err error) {
			logger.ErrorContext(ctx, "jwks refresh failed", "error", err, "url", opts.JWKSURL)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("identity: jwks storage: %w", err)
	}

	k, err := keyfunc.New(keyfunc.Options{Ctx: ctx, Storage: storage})
	if err != nil {
		return nil, fmt.Errorf("identity: keyfunc: %w", err)
	}
	return NewVerifierWithKeyfunc(k, opts.Audience, opts.Issuers, opts.Leeway), nil
}

// NewVerifierWithKeyfunc builds a Verifier around an existing key source.
// Empty issuers default to GoogleIssuers.
func NewVerifierWithKeyfunc(k keyfunc.Keyfunc, audience string, issuers []string, leeway time.Duration) *Verifier {
	if len(issuers) == 0 {
		issuers = GoogleIssuers
	}
	return &Verifier{jwks: k, audience: audience, issuers: issuers, leeway: leeway, now: time.Now}
}

// WithClock overrides the time used for expiry checks.
func (v *Verifier) WithClock(now func() time.Time) *Verifier {
	if now != nil {
		v.now = now
	}
	return v
}

// Verify validates credential and returns its claims.
func (v *Verifier) Verify(ctx context.Context, credential string) (Claims, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return Claims{}, fmt.Errorf("%w: empty credential", ErrInvalidToken)
	}

	raw := &idTokenClaims{}
	token, err := jwt.ParseWithClaims(credential, raw, v.jwks.KeyfuncCtx(ctx),
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
		jwt.WithAudience(v.audience),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return Claims{}, ErrInvalidToken
	}
	if !slices.Contains(v.issuers, raw.Issuer) {
		return Claims{}, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidToken, raw.Issuer)
	}

	email := strings.ToLower(strings.TrimSpace(raw.Email))
	if email == "" {
		return Claims{}, fmt.Errorf("%w: token has no email", ErrInvalidToken)
	}
	verified := raw.EmailVerified == nil || *raw.EmailVerified
	if !verified {
		return Claims{}, ErrEmailNotVerified
	}

	return Claims{
		Subject:       raw.Subject,
		Email:         email,
		EmailVerified: verified,
		Name:          strings.TrimSpace(raw.Name),
	}, nil
}
