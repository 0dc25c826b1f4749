package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/staff-dashboard/internal/identity"
)

// TokenVerifier validates identity-provider credentials.
type TokenVerifier interface {
	Verify(ctx context.Context, credential string) (identity.Claims, error)
}

// SessionTokens issues and parses dashboard session tokens.
type SessionTokens interface {
	Issue(email, name string, isManager bool) (string, time.Time, error)
	Parse(token string) (*identity.SessionClaims, error)
}

// AuthService coordinates sign-in and session validation.
type AuthService struct {
	verifier  TokenVerifier
	tokens    SessionTokens
	directory *Directory
	logger    *slog.Logger
}

// NewAuthService constructs an AuthService.
func NewAuthService(verifier TokenVerifier, tokens SessionTokens, directory *Directory, logger *slog.Logger) *AuthService {
	return &AuthService{
		verifier:  verifier,
		tokens:    tokens,
		directory: directory,
		logger:    defaultLogger(logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// SignIn exchanges an identity-provider credential for a dashboard session.
// The verified email must match an active roster entry.
func (s *AuthService) SignIn(ctx context.Context, credential string) (result SignInResult, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.verifier == nil || s.tokens == nil {
		err = fmt.Errorf("auth service not configured")
		return
	}

	logger := s.loggerWith(ctx, "SignIn")
	defer func() {
		signInsTotal.WithLabelValues(outcomeLabel(err)).Inc()
		if err != nil {
			logger.WarnContext(ctx, "sign-in failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("email", result.UserEmail, "is_manager", result.IsManager).InfoContext(ctx, "sign-in succeeded")
	}()

	if strings.TrimSpace(credential) == "" {
		err = ErrInvalidCredentials
		return
	}

	var claims identity.Claims
	claims, err = s.verifier.Verify(ctx, credential)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		return
	}
	email := strings.ToLower(strings.TrimSpace(claims.Email))

	var person Person
	person, err = s.directory.Lookup(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			err = fmt.Errorf("%w: %s", ErrUnknownPerson, email)
		}
		return
	}
	if !person.Active {
		err = ErrAccountDisabled
		return
	}

	name := person.Name
	if name == "" {
		name = claims.Name
	}

	var token string
	var expiresAt time.Time
	token, expiresAt, err = s.tokens.Issue(email, name, person.IsManager)
	if err != nil {
		return
	}

	result = SignInResult{
		UserEmail:     email,
		MatchedPerson: name,
		IsManager:     person.IsManager,
		Token:         token,
		ExpiresAt:     expiresAt,
	}
	return
}

// ValidateSession resolves a session token to the current principal. Roster
// changes made after sign-in apply immediately: a deactivated person is
// rejected and manager status follows the roster, not the token.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (Principal, error) {
	if s == nil || s.tokens == nil {
		return Principal{}, fmt.Errorf("auth service not configured")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return Principal{}, ErrInvalidCredentials
	}

	claims, err := s.tokens.Parse(token)
	if err != nil {
		if identity.Expired(err) {
			return Principal{}, ErrSessionExpired
		}
		return Principal{}, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	}

	person, err := s.directory.Lookup(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Principal{}, ErrUnknownPerson
		}
		return Principal{}, err
	}
	if !person.Active {
		return Principal{}, ErrAccountDisabled
	}

	name := person.Name
	if name == "" {
		name = claims.Name
	}
	return Principal{Email: person.Email, Name: name, IsManager: person.IsManager}, nil
}
