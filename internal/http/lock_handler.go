package http

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/staff-dashboard/internal/api"
	"github.com/example/staff-dashboard/internal/application"
)

type lockService interface {
	Acquire(ctx context.Context, principal application.Principal, recordID string) (application.EditLock, error)
	Renew(ctx context.Context, principal application.Principal, recordID string) (application.EditLock, error)
	Release(ctx context.Context, principal application.Principal, recordID string) error
	Status(ctx context.Context, recordID string) (application.EditLock, bool, error)
	TTL() time.Duration
}

type LockHandler struct {
	service   lockService
	responder responder
	logger    *slog.Logger
}

func NewLockHandler(service lockService, logger *slog.Logger) *LockHandler {
	base := defaultLogger(logger)
	return &LockHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *LockHandler) recordID(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "recordID")
	id, err := url.PathUnescape(raw)
	if err != nil || strings.TrimSpace(id) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRecordID)
		return "", false
	}
	return strings.TrimSpace(id), true
}

func (h *LockHandler) Status(w http.ResponseWriter, r *http.Request) {
	id, ok := h.recordID(w, r)
	if !ok {
		return
	}
	lock, held, err := h.service.Status(r.Context(), id)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	out := api.LockStatus{RecordID: id, Locked: held}
	if held {
		dto := h.toLockDTO(lock)
		out.Lock = &dto
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, out)
}

func (h *LockHandler) Acquire(w http.ResponseWriter, r *http.Request) {
	id, ok := h.recordID(w, r)
	if !ok {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	lock, err := h.service.Acquire(r.Context(), principal, id)
	if err != nil {
		handlerLogger(r.Context(), h.logger, "LockHandler", "Acquire", "record_id", id).
			InfoContext(r.Context(), "lock not granted", "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.toLockDTO(lock))
}

func (h *LockHandler) Renew(w http.ResponseWriter, r *http.Request) {
	id, ok := h.recordID(w, r)
	if !ok {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	lock, err := h.service.Renew(r.Context(), principal, id)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.toLockDTO(lock))
}

func (h *LockHandler) Release(w http.ResponseWriter, r *http.Request) {
	id, ok := h.recordID(w, r)
	if !ok {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.Release(r.Context(), principal, id); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *LockHandler) toLockDTO(lock application.EditLock) api.Lock {
	ttl := lock.ExpiresAt.Sub(lock.RenewedAt)
	if ttl <= 0 {
		ttl = h.service.TTL()
	}
	return api.Lock{
		RecordID:   lock.RecordID,
		Holder:     lock.Holder,
		HolderName: lock.HolderName,
		AcquiredAt: lock.AcquiredAt.UTC(),
		RenewedAt:  lock.RenewedAt.UTC(),
		ExpiresAt:  lock.ExpiresAt.UTC(),
		TTLSeconds: int64(ttl / time.Second),
	}
}
