package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/staff-dashboard/internal/api"
	"github.com/example/staff-dashboard/internal/application"
)

type timeOffService interface {
	Submit(ctx context.Context, principal application.Principal, input application.TimeOffInput) (application.TimeOff, error)
	List(ctx context.Context, principal application.Principal, filter application.TimeOffFilter) ([]application.TimeOff, error)
	Decide(ctx context.Context, principal application.Principal, id string, status application.TimeOffStatus) (application.TimeOff, error)
	Delete(ctx context.Context, principal application.Principal, id string) error
}

type TimeOffHandler struct {
	service   timeOffService
	responder responder
}

func NewTimeOffHandler(service timeOffService, logger *slog.Logger) *TimeOffHandler {
	return &TimeOffHandler{service: service, responder: newResponder(logger)}
}

func (h *TimeOffHandler) List(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r.URL.Query())
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRange)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	requests, err := h.service.List(r.Context(), principal, application.TimeOffFilter{
		From:       from,
		To:         to,
		AgentEmail: strings.TrimSpace(r.URL.Query().Get("agent")),
		Status:     application.TimeOffStatus(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status")))),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := api.TimeOffList{Requests: make([]api.TimeOff, 0, len(requests))}
	for _, req := range requests {
		out.Requests = append(out.Requests, toTimeOffDTO(req))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, out)
}

func (h *TimeOffHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req api.TimeOffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	request, err := h.service.Submit(r.Context(), principal, application.TimeOffInput{
		AgentEmail: req.AgentEmail,
		Start:      api.ParseTime(strings.TrimSpace(req.Start)),
		End:        api.ParseTime(strings.TrimSpace(req.End)),
		Reason:     req.Reason,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toTimeOffDTO(request))
}

func (h *TimeOffHandler) Decide(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTimeOffID)
		return
	}

	var req api.DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	status := application.TimeOffStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	request, err := h.service.Decide(r.Context(), principal, id, status)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toTimeOffDTO(request))
}

func (h *TimeOffHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTimeOffID)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.Delete(r.Context(), principal, id); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func toTimeOffDTO(req application.TimeOff) api.TimeOff {
	dto := api.TimeOff{
		ID:         req.ID,
		AgentEmail: req.AgentEmail,
		Start:      req.Start.UTC(),
		End:        req.End.UTC(),
		Reason:     req.Reason,
		Status:     string(req.Status),
		CreatedAt:  req.CreatedAt.UTC(),
		DecidedBy:  req.DecidedBy,
	}
	if req.DecidedAt != nil {
		decided := req.DecidedAt.UTC()
		dto.DecidedAt = &decided
	}
	return dto
}
