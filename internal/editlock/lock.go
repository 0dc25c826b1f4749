// Package editlock coordinates advisory edit locks on schedule records.
//
// A lock is guidance for cooperating editors only. The backing store does not
// make acquisition atomic and does not reject unlocked writes, so two editors
// can still overwrite each other and the last write wins. Callers must not
// treat a granted lock as a correctness guarantee.
package editlock

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrLockConflict matches acquisitions denied because another identity
	// holds a live lock. The concrete error is *ConflictError.
	ErrLockConflict = errors.New("editlock: record is locked by another editor")
	// ErrLockLost is returned once renewal has failed and the lock can no
	// longer be assumed held.
	ErrLockLost = errors.New("editlock: lock lost")
	// ErrNotHeld is returned by backends when the caller does not own a live
	// lock on the record.
	ErrNotHeld = errors.New("editlock: lock not held")
	// ErrBusy is returned when the client is already locking or releasing.
	ErrBusy = errors.New("editlock: client busy")
)

// Lock is the state of a granted lock.
type Lock struct {
	RecordID   string
	Holder     string
	HolderName string
	AcquiredAt time.Time
	RenewedAt  time.Time
	TTL        time.Duration
}

// ExpiresAt is the instant the lock lapses without renewal.
func (l Lock) ExpiresAt() time.Time {
	return l.RenewedAt.Add(l.TTL)
}

// Expired reports whether the lock has lapsed at now.
func (l Lock) Expired(now time.Time) bool {
	return !now.Before(l.ExpiresAt())
}

// ConflictError describes a denied acquisition.
type ConflictError struct {
	RecordID   string
	Holder     string
	HolderName string
	ExpiresAt  time.Time
}

func (e *ConflictError) Error() string {
	if e.HolderName != "" {
		return fmt.Sprintf("editlock: %s is being edited by %s (%s)", e.RecordID, e.HolderName, e.Holder)
	}
	return fmt.Sprintf("editlock: %s is being edited by %s", e.RecordID, e.Holder)
}

// Is matches ErrLockConflict.
func (e *ConflictError) Is(target error) bool {
	return target == ErrLockConflict
}

// Backend performs lock operations against the remote store on behalf of the
// signed-in identity.
type Backend interface {
	Acquire(ctx context.Context, recordID string) (Lock, error)
	Renew(ctx context.Context, recordID string) (Lock, error)
	Release(ctx context.Context, recordID string) error
}
