package dashboard

import (
	"context"
	"errors"
	"sync"

	"github.com/example/staff-dashboard/internal/api"
	"github.com/example/staff-dashboard/internal/editlock"
)

// ErrEditorClosed is returned by writes on a closed editor.
var ErrEditorClosed = errors.New("dashboard: editor closed")

// Editor edits one record under an advisory lock. The lock is released when
// a write succeeds or the editor is cancelled or closed.
type Editor struct {
	app      *App
	sess     *SessionContext
	recordID string
	lock     *editlock.Client

	mu             sync.Mutex
	closed         bool
	unsynchronized bool
}

// OpenEditor acquires the edit lock on recordID. A record held by someone
// else yields an error matching editlock.ErrLockConflict.
func (a *App) OpenEditor(ctx context.Context, sess *SessionContext, recordID string) (*Editor, error) {
	if err := a.requireSession(ctx, sess); err != nil {
		return nil, err
	}
	e := &Editor{app: a, sess: sess, recordID: recordID}

	opts := append([]editlock.Option{
		editlock.WithClock(a.now),
		editlock.WithLogger(a.logger),
	}, a.lockOpts...)
	opts = append(opts, editlock.WithOnLost(e.lost))
	e.lock = editlock.NewClient(a.backend, opts...)

	if _, err := e.lock.Acquire(ctx, recordID); err != nil {
		return nil, a.fail(ctx, err)
	}
	a.touch(ctx, sess)
	return e, nil
}

func (e *Editor) lost(ev editlock.LostEvent) {
	e.mu.Lock()
	e.unsynchronized = true
	e.mu.Unlock()
	e.app.notify(context.Background(), Notification{
		Kind:    KindLockLost,
		Message: messageFor(KindLockLost, ev.Err),
		Err:     ev.Err,
		At:      ev.At,
	})
}

// RecordID returns the locked record.
func (e *Editor) RecordID() string {
	return e.recordID
}

// Lock exposes the edit lock client.
func (e *Editor) Lock() *editlock.Client {
	return e.lock
}

// Unsynchronized reports whether the lock was lost while editing. Writes are
// still allowed but may overwrite someone else's changes.
func (e *Editor) Unsynchronized() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.unsynchronized
}

func (e *Editor) open() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEditorClosed
	}
	return nil
}

// SaveShift creates (empty id) or replaces a shift and ends the edit. A
// failed release is reported but does not fail the save.
func (e *Editor) SaveShift(ctx context.Context, id string, req api.ShiftRequest) (api.ShiftResponse, error) {
	if err := e.open(); err != nil {
		return api.ShiftResponse{}, err
	}
	out, err := e.app.backend.SaveShift(ctx, id, req)
	if err != nil {
		return api.ShiftResponse{}, e.app.fail(ctx, err)
	}

	if id == "" {
		e.app.invalidateSpan(out.Shift.Start, out.Shift.End)
	} else {
		// The previous span of an updated shift is unknown here.
		e.app.invalidateViews(ViewSchedule, ViewCoverage, ViewMetrics)
	}
	e.app.touch(ctx, e.sess)
	_ = e.finish(ctx)
	return out, nil
}

// DeleteShift removes a shift and ends the edit.
func (e *Editor) DeleteShift(ctx context.Context, id string) error {
	if err := e.open(); err != nil {
		return err
	}
	if err := e.app.backend.DeleteShift(ctx, id); err != nil {
		return e.app.fail(ctx, err)
	}
	e.app.invalidateViews(ViewSchedule, ViewCoverage, ViewMetrics)
	e.app.touch(ctx, e.sess)
	_ = e.finish(ctx)
	return nil
}

// Cancel abandons the edit and releases the lock.
func (e *Editor) Cancel(ctx context.Context) error {
	return e.finish(ctx)
}

// Close releases the lock with a bounded timeout, for teardown paths.
func (e *Editor) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()
	if err := e.lock.Close(); err != nil {
		return e.app.report(context.Background(), err)
	}
	return nil
}

func (e *Editor) finish(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()
	if err := e.lock.Release(ctx); err != nil {
		return e.app.report(ctx, err)
	}
	return nil
}
