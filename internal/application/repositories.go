package application

import (
	"context"
	"time"
)

// PersonRepository persists roster entries keyed by lowercased email.
type PersonRepository interface {
	GetPerson(ctx context.Context, email string) (Person, error)
	PutPerson(ctx context.Context, person Person) error
	DeletePerson(ctx context.Context, email string) error
	ListPeople(ctx context.Context) ([]Person, error)
}

// ShiftRepository persists shifts.
type ShiftRepository interface {
	GetShift(ctx context.Context, id string) (Shift, error)
	PutShift(ctx context.Context, shift Shift) error
	DeleteShift(ctx context.Context, id string) error
	ListShifts(ctx context.Context) ([]Shift, error)
}

// TimeOffRepository persists time-off requests.
type TimeOffRepository interface {
	GetTimeOff(ctx context.Context, id string) (TimeOff, error)
	PutTimeOff(ctx context.Context, request TimeOff) error
	DeleteTimeOff(ctx context.Context, id string) error
	ListTimeOff(ctx context.Context) ([]TimeOff, error)
}

// LockStore persists edit locks. Put overwrites unconditionally; ttl lets
// stores with native expiry drop the record on their own.
type LockStore interface {
	GetLock(ctx context.Context, recordID string) (EditLock, error)
	PutLock(ctx context.Context, lock EditLock, ttl time.Duration) error
	DeleteLock(ctx context.Context, recordID string) error
}
