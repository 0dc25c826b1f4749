package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// DefaultLockTTL is the lifetime of an edit lock between renewals.
const DefaultLockTTL = 2 * time.Minute

// LockService is the server side of advisory edit locks. Acquisition is a
// read followed by a write with no compare-and-set, so two simultaneous
// acquisitions of a free record can both succeed and the later write wins.
type LockService struct {
	store  LockStore
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewLockService wires the lock store.
func NewLockService(store LockStore, ttl time.Duration, now func() time.Time, logger *slog.Logger) *LockService {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	if now == nil {
		now = time.Now
	}
	return &LockService{store: store, ttl: ttl, now: now, logger: defaultLogger(logger)}
}

// TTL returns the lock lifetime granted on acquire and renew.
func (s *LockService) TTL() time.Duration {
	return s.ttl
}

func (s *LockService) observe(ctx context.Context, operation, recordID string, principal Principal, err error) {
	lockOperationsTotal.WithLabelValues(operation, outcomeLabel(err)).Inc()
	logger := serviceLogger(ctx, s.logger, "LockService", operation, "record_id", recordID, "actor", principal.Email)
	if err != nil {
		logger.InfoContext(ctx, "lock operation refused", "error", err, "error_kind", ErrorKind(err))
		return
	}
	logger.DebugContext(ctx, "lock operation succeeded")
}

// Acquire grants principal the lock on recordID unless another person holds
// a live lock, in which case a *LockConflictError naming the holder is
// returned. Re-acquiring a lock already held refreshes it.
func (s *LockService) Acquire(ctx context.Context, principal Principal, recordID string) (lock EditLock, err error) {
	defer func() { s.observe(ctx, "Acquire", recordID, principal, err) }()

	if err = s.validate(principal, recordID); err != nil {
		return
	}
	now := s.now()
	holder := strings.ToLower(principal.Email)

	existing, found, err := s.load(ctx, recordID)
	if err != nil {
		return
	}

	lock = EditLock{
		RecordID:   recordID,
		Holder:     holder,
		HolderName: principal.Name,
		AcquiredAt: now,
		RenewedAt:  now,
		ExpiresAt:  now.Add(s.ttl),
	}
	if found && !existing.Expired(now) {
		if existing.Holder != holder {
			err = &LockConflictError{Lock: existing}
			return EditLock{}, err
		}
		lock.AcquiredAt = existing.AcquiredAt
	}

	if err = s.store.PutLock(ctx, lock, s.ttl); err != nil {
		return EditLock{}, err
	}
	return lock, nil
}

// Renew extends a live lock held by principal. Anything else returns
// ErrLockNotHeld.
func (s *LockService) Renew(ctx context.Context, principal Principal, recordID string) (lock EditLock, err error) {
	defer func() { s.observe(ctx, "Renew", recordID, principal, err) }()

	if err = s.validate(principal, recordID); err != nil {
		return
	}
	now := s.now()

	existing, found, err := s.load(ctx, recordID)
	if err != nil {
		return
	}
	if !found || existing.Expired(now) || existing.Holder != strings.ToLower(principal.Email) {
		err = ErrLockNotHeld
		return
	}

	lock = existing
	lock.RenewedAt = now
	lock.ExpiresAt = now.Add(s.ttl)
	if err = s.store.PutLock(ctx, lock, s.ttl); err != nil {
		return EditLock{}, err
	}
	return lock, nil
}

// Release drops principal's lock on recordID. Releasing a missing lock or
// one held by someone else is a no-op.
func (s *LockService) Release(ctx context.Context, principal Principal, recordID string) (err error) {
	defer func() { s.observe(ctx, "Release", recordID, principal, err) }()

	if err = s.validate(principal, recordID); err != nil {
		return
	}
	existing, found, err := s.load(ctx, recordID)
	if err != nil || !found {
		return
	}
	if existing.Holder != strings.ToLower(principal.Email) {
		return nil
	}
	if err = s.store.DeleteLock(ctx, recordID); err != nil && errors.Is(err, ErrNotFound) {
		err = nil
	}
	return
}

// Status returns the live lock on recordID, if any. Expired records are
// deleted on the way.
func (s *LockService) Status(ctx context.Context, recordID string) (EditLock, bool, error) {
	recordID = strings.TrimSpace(recordID)
	if recordID == "" {
		return EditLock{}, false, s.recordIDError()
	}
	existing, found, err := s.load(ctx, recordID)
	if err != nil || !found {
		return EditLock{}, false, err
	}
	if existing.Expired(s.now()) {
		if err := s.store.DeleteLock(ctx, recordID); err != nil && !errors.Is(err, ErrNotFound) {
			serviceLogger(ctx, s.logger, "LockService", "Status", "record_id", recordID).
				WarnContext(ctx, "failed to delete expired lock", "error", err)
		}
		return EditLock{}, false, nil
	}
	return existing, true, nil
}

func (s *LockService) load(ctx context.Context, recordID string) (EditLock, bool, error) {
	if s.store == nil {
		return EditLock{}, false, fmt.Errorf("lock store not configured")
	}
	lock, err := s.store.GetLock(ctx, recordID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return EditLock{}, false, nil
		}
		return EditLock{}, false, err
	}
	return lock, true, nil
}

func (s *LockService) validate(principal Principal, recordID string) error {
	if strings.TrimSpace(principal.Email) == "" {
		return ErrUnauthorized
	}
	if strings.TrimSpace(recordID) == "" {
		return s.recordIDError()
	}
	return nil
}

func (s *LockService) recordIDError() error {
	vErr := &ValidationError{}
	vErr.add("recordId", "record id is required")
	return vErr
}
