package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/example/staff-dashboard/internal/persistence"
)

// DocumentRepository implements the application repositories as JSON
// documents in a persistence.DocumentStore.
type DocumentRepository struct {
	store  persistence.DocumentStore
	logger *slog.Logger
}

var (
	_ PersonRepository  = (*DocumentRepository)(nil)
	_ ShiftRepository   = (*DocumentRepository)(nil)
	_ TimeOffRepository = (*DocumentRepository)(nil)
	_ LockStore         = (*DocumentRepository)(nil)
)

// NewDocumentRepository wraps store.
func NewDocumentRepository(store persistence.DocumentStore, logger *slog.Logger) *DocumentRepository {
	return &DocumentRepository{store: store, logger: defaultLogger(logger)}
}

func mapStoreError(err error) error {
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func get[T any](ctx context.Context, r *DocumentRepository, collection, id string) (T, error) {
	value, err := persistence.GetJSON[T](ctx, r.store, collection, id)
	return value, mapStoreError(err)
}

func list[T any](ctx context.Context, r *DocumentRepository, collection string) ([]T, error) {
	return persistence.ListJSON[T](ctx, r.store, collection, func(id string, err error) {
		r.logger.WarnContext(ctx, "skipping undecodable document", "collection", collection, "id", id, "error", err)
	})
}

// GetPerson loads a roster entry.
func (r *DocumentRepository) GetPerson(ctx context.Context, email string) (Person, error) {
	return get[Person](ctx, r, persistence.CollectionPeople, strings.ToLower(email))
}

// PutPerson stores a roster entry.
func (r *DocumentRepository) PutPerson(ctx context.Context, person Person) error {
	person.Email = strings.ToLower(person.Email)
	return persistence.PutJSON(ctx, r.store, persistence.CollectionPeople, person.Email, person, person.UpdatedAt)
}

// DeletePerson removes a roster entry.
func (r *DocumentRepository) DeletePerson(ctx context.Context, email string) error {
	return mapStoreError(r.store.DeleteDocument(ctx, persistence.CollectionPeople, strings.ToLower(email)))
}

// ListPeople returns the roster ordered by email.
func (r *DocumentRepository) ListPeople(ctx context.Context) ([]Person, error) {
	return list[Person](ctx, r, persistence.CollectionPeople)
}

// GetShift loads a shift.
func (r *DocumentRepository) GetShift(ctx context.Context, id string) (Shift, error) {
	return get[Shift](ctx, r, persistence.CollectionShifts, id)
}

// PutShift stores a shift.
func (r *DocumentRepository) PutShift(ctx context.Context, shift Shift) error {
	return persistence.PutJSON(ctx, r.store, persistence.CollectionShifts, shift.ID, shift, shift.UpdatedAt)
}

// DeleteShift removes a shift.
func (r *DocumentRepository) DeleteShift(ctx context.Context, id string) error {
	return mapStoreError(r.store.DeleteDocument(ctx, persistence.CollectionShifts, id))
}

// ListShifts returns every shift.
func (r *DocumentRepository) ListShifts(ctx context.Context) ([]Shift, error) {
	return list[Shift](ctx, r, persistence.CollectionShifts)
}

// GetTimeOff loads a time-off request.
func (r *DocumentRepository) GetTimeOff(ctx context.Context, id string) (TimeOff, error) {
	return get[TimeOff](ctx, r, persistence.CollectionTimeOff, id)
}

// PutTimeOff stores a time-off request.
func (r *DocumentRepository) PutTimeOff(ctx context.Context, request TimeOff) error {
	updated := request.CreatedAt
	if request.DecidedAt != nil {
		updated = *request.DecidedAt
	}
	return persistence.PutJSON(ctx, r.store, persistence.CollectionTimeOff, request.ID, request, updated)
}

// DeleteTimeOff removes a time-off request.
func (r *DocumentRepository) DeleteTimeOff(ctx context.Context, id string) error {
	return mapStoreError(r.store.DeleteDocument(ctx, persistence.CollectionTimeOff, id))
}

// ListTimeOff returns every time-off request.
func (r *DocumentRepository) ListTimeOff(ctx context.Context) ([]TimeOff, error) {
	return list[TimeOff](ctx, r, persistence.CollectionTimeOff)
}

// GetLock loads a lock record, expired or not.
func (r *DocumentRepository) GetLock(ctx context.Context, recordID string) (EditLock, error) {
	return get[EditLock](ctx, r, persistence.CollectionLocks, recordID)
}

// PutLock stores a lock record. Expiry is carried in the record itself.
func (r *DocumentRepository) PutLock(ctx context.Context, lock EditLock, _ time.Duration) error {
	return persistence.PutJSON(ctx, r.store, persistence.CollectionLocks, lock.RecordID, lock, lock.RenewedAt)
}

// DeleteLock removes a lock record.
func (r *DocumentRepository) DeleteLock(ctx context.Context, recordID string) error {
	return mapStoreError(r.store.DeleteDocument(ctx, persistence.CollectionLocks, recordID))
}
