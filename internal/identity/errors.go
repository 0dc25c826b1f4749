package identity

import "errors"

var (
	// ErrInvalidToken is returned for tokens that fail signature, audience,
	// issuer or expiry checks.
	ErrInvalidToken = errors.New("identity: invalid token")
	// ErrEmailNotVerified is returned when the identity provider has not
	// verified the address in the token.
	ErrEmailNotVerified = errors.New("identity: email not verified")
)
