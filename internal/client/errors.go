package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/example/staff-dashboard/internal/api"
)

var (
	// ErrAuth matches every authentication or authorization failure. The
	// concrete error is *AuthError.
	ErrAuth = errors.New("client: not authenticated")
	// ErrNetwork matches transport failures and server-side errors.
	ErrNetwork = errors.New("client: network error")
)

// AuthError is returned for 401 and 403 responses.
type AuthError struct {
	Status  int
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("client: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("client: %d: %s", e.Status, e.Message)
}

// Is matches ErrAuth.
func (e *AuthError) Is(target error) bool {
	return target == ErrAuth
}

// Expired reports whether the backend rejected the session as expired.
func (e *AuthError) Expired() bool {
	return e.Code == "AUTH_SESSION_EXPIRED"
}

// APIError is any other non-2xx response. Server errors match ErrNetwork.
type APIError struct {
	Status  int
	Code    string
	Message string
	Fields  map[string]string

	conflict *api.LockConflictResponse
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("client: unexpected status %d", e.Status)
	}
	return fmt.Sprintf("client: %d: %s", e.Status, e.Message)
}

// Is matches ErrNetwork for 5xx responses.
func (e *APIError) Is(target error) bool {
	return target == ErrNetwork && e.Status >= http.StatusInternalServerError
}

// NotFound reports whether the resource does not exist.
func (e *APIError) NotFound() bool {
	return e.Status == http.StatusNotFound
}
