package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/example/staff-dashboard/internal/api"
	"github.com/example/staff-dashboard/internal/editlock"
)

var _ editlock.Backend = (*Client)(nil)

func lockPath(recordID string) string {
	return "/api/locks/" + url.PathEscape(recordID)
}

// LockStatus reports who, if anyone, holds recordID.
func (c *Client) LockStatus(ctx context.Context, recordID string) (api.LockStatus, error) {
	var out api.LockStatus
	err := c.call(ctx, http.MethodGet, lockPath(recordID), nil, nil, &out)
	return out, err
}

// Acquire implements editlock.Backend. A 409 becomes *editlock.ConflictError.
func (c *Client) Acquire(ctx context.Context, recordID string) (editlock.Lock, error) {
	payload, err := c.do(ctx, http.MethodPost, lockPath(recordID), nil, nil, true)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
			return editlock.Lock{}, c.conflictFrom(ctx, recordID, apiErr)
		}
		return editlock.Lock{}, err
	}
	var out api.Lock
	if err := decodeInto(payload, &out); err != nil {
		return editlock.Lock{}, err
	}
	return toEditLock(out), nil
}

// conflictFrom prefers the holder in the 409 body and falls back to a status
// read when the body did not carry one.
func (c *Client) conflictFrom(ctx context.Context, recordID string, apiErr *APIError) error {
	conflict := &editlock.ConflictError{RecordID: recordID}
	if apiErr.conflict != nil {
		conflict.Holder = apiErr.conflict.Holder
		conflict.HolderName = apiErr.conflict.HolderName
		conflict.ExpiresAt = apiErr.conflict.ExpiresAt
		return conflict
	}
	if status, err := c.LockStatus(ctx, recordID); err == nil && status.Lock != nil {
		conflict.Holder = status.Lock.Holder
		conflict.HolderName = status.Lock.HolderName
		conflict.ExpiresAt = status.Lock.ExpiresAt
	}
	return conflict
}

// Renew implements editlock.Backend. A 409 means the lock is no longer ours.
func (c *Client) Renew(ctx context.Context, recordID string) (editlock.Lock, error) {
	payload, err := c.do(ctx, http.MethodPost, lockPath(recordID)+"/renew", nil, nil, true)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
			return editlock.Lock{}, editlock.ErrNotHeld
		}
		return editlock.Lock{}, err
	}
	var out api.Lock
	if err := decodeInto(payload, &out); err != nil {
		return editlock.Lock{}, err
	}
	return toEditLock(out), nil
}

// Release implements editlock.Backend.
func (c *Client) Release(ctx context.Context, recordID string) error {
	_, err := c.do(ctx, http.MethodDelete, lockPath(recordID), nil, nil, true)
	return err
}

func toEditLock(l api.Lock) editlock.Lock {
	ttl := time.Duration(l.TTLSeconds) * time.Second
	if ttl <= 0 && !l.ExpiresAt.IsZero() {
		ttl = l.ExpiresAt.Sub(l.RenewedAt)
	}
	return editlock.Lock{
		RecordID:   l.RecordID,
		Holder:     l.Holder,
		HolderName: l.HolderName,
		AcquiredAt: l.AcquiredAt,
		RenewedAt:  l.RenewedAt,
		TTL:        ttl,
	}
}
