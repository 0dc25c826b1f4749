package application

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrInvalidCredentials is returned when a sign-in credential or session token cannot be verified.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrUnknownPerson is returned when a verified identity is not on the roster.
	ErrUnknownPerson = errors.New("application: person not on roster")
	// ErrAccountDisabled is returned for roster entries marked inactive.
	ErrAccountDisabled = errors.New("application: account disabled")
	// ErrSessionExpired is returned for session tokens past their expiry.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrLockConflict is matched by LockConflictError.
	ErrLockConflict = errors.New("application: record locked by another user")
	// ErrLockNotHeld is returned when renewing a lock the caller does not hold.
	ErrLockNotHeld = errors.New("application: lock not held")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error. The first message per field wins.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; exists {
		return
	}
	v.FieldErrors[field] = message
}

// LockConflictError reports the live lock that denied an acquisition.
type LockConflictError struct {
	Lock EditLock
}

func (e *LockConflictError) Error() string {
	return fmt.Sprintf("application: %s is locked by %s until %s",
		e.Lock.RecordID, e.Lock.Holder, e.Lock.ExpiresAt.Format("15:04:05"))
}

// Is matches ErrLockConflict.
func (e *LockConflictError) Is(target error) bool {
	return target == ErrLockConflict
}
