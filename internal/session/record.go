// Package session persists the signed-in identity on the local device so a
// restart can skip sign-in while the session is still fresh.
//
// A record is valid only while now-LastActivity is below the TTL (8h by
// default) and both email and name are present. Anything else reads as
// absent, and expired records are removed lazily on the next read.
package session

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// DefaultTTL is the sliding inactivity window of a session.
const DefaultTTL = 8 * time.Hour

// DefaultName is the fixed key the session record is stored under.
const DefaultName = "staff-dashboard-session"

var (
	// ErrStorage wraps local persistence failures.
	ErrStorage = errors.New("session: storage failure")
	// ErrNotExist is returned by storages when no record is stored.
	ErrNotExist = errors.New("session: record does not exist")
	// ErrIncompleteIdentity is returned by Save when email or name is missing.
	ErrIncompleteIdentity = errors.New("session: identity requires email and name")
)

// Identity is the result of a successful sign-in.
type Identity struct {
	Email     string
	Name      string
	IsManager bool
	Token     string
}

// Record is the persisted session.
type Record struct {
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	IsManager    bool      `json:"isManager"`
	Token        string    `json:"token,omitempty"`
	IssuedAt     time.Time `json:"issuedAt"`
	LastActivity time.Time `json:"lastActivity"`
}

// Identity returns the identity portion of the record.
func (r Record) Identity() Identity {
	return Identity{Email: r.Email, Name: r.Name, IsManager: r.IsManager, Token: r.Token}
}

// Complete reports whether the record carries both email and name.
func (r Record) Complete() bool {
	return strings.TrimSpace(r.Email) != "" && strings.TrimSpace(r.Name) != ""
}

// Fresh reports whether the record is within ttl of its last activity.
func (r Record) Fresh(now time.Time, ttl time.Duration) bool {
	if r.LastActivity.IsZero() {
		return false
	}
	return now.Sub(r.LastActivity) < ttl
}

// decodeRecord parses a stored record. Records written before lastActivity
// existed carry a single "timestamp" field, which is used for both times.
func decodeRecord(data []byte) (Record, error) {
	var raw struct {
		Record
		Timestamp *time.Time `json:"timestamp,omitempty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Record{}, err
	}
	rec := raw.Record
	if rec.LastActivity.IsZero() && raw.Timestamp != nil {
		rec.LastActivity = *raw.Timestamp
	}
	if rec.IssuedAt.IsZero() {
		rec.IssuedAt = rec.LastActivity
	}
	return rec, nil
}
