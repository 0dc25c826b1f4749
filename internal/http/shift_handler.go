package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/staff-dashboard/internal/api"
	"github.com/example/staff-dashboard/internal/application"
)

type shiftService interface {
	ListShifts(ctx context.Context, principal application.Principal, filter application.ShiftFilter) ([]application.Shift, error)
	SaveShift(ctx context.Context, principal application.Principal, input application.ShiftInput) (application.SaveShiftResult, error)
	DeleteShift(ctx context.Context, principal application.Principal, id string) error
}

type ShiftHandler struct {
	service   shiftService
	responder responder
	logger    *slog.Logger
}

func NewShiftHandler(service shiftService, logger *slog.Logger) *ShiftHandler {
	base := defaultLogger(logger)
	return &ShiftHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ShiftHandler) List(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r.URL.Query())
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRange)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	shifts, err := h.service.ListShifts(r.Context(), principal, application.ShiftFilter{
		From:       from,
		To:         to,
		AgentEmail: strings.TrimSpace(r.URL.Query().Get("agent")),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := api.ShiftList{Shifts: make([]api.Shift, 0, len(shifts))}
	for _, shift := range shifts {
		out.Shifts = append(out.Shifts, toShiftDTO(shift))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, out)
}

func (h *ShiftHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, "")
}

func (h *ShiftHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidShiftID)
		return
	}
	h.save(w, r, id)
}

func (h *ShiftHandler) save(w http.ResponseWriter, r *http.Request, id string) {
	var req api.ShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	result, err := h.service.SaveShift(r.Context(), principal, application.ShiftInput{
		ID:         id,
		AgentEmail: req.AgentEmail,
		Channel:    req.Channel,
		Start:      api.ParseTime(strings.TrimSpace(req.Start)),
		End:        api.ParseTime(strings.TrimSpace(req.End)),
		Notes:      req.Notes,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	if len(result.Warnings) > 0 {
		handlerLogger(r.Context(), h.logger, "ShiftHandler", "Save", "shift_id", result.Shift.ID).
			InfoContext(r.Context(), "shift saved with overlap warnings", "warnings", len(result.Warnings))
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	h.responder.writeJSON(r.Context(), w, status, api.ShiftResponse{
		Shift:    toShiftDTO(result.Shift),
		Warnings: toWarningDTOs(result.Warnings),
	})
}

func (h *ShiftHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidShiftID)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.DeleteShift(r.Context(), principal, id); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func toShiftDTO(shift application.Shift) api.Shift {
	return api.Shift{
		ID:         shift.ID,
		AgentEmail: shift.AgentEmail,
		Channel:    shift.Channel,
		Start:      shift.Start.UTC(),
		End:        shift.End.UTC(),
		Notes:      shift.Notes,
		UpdatedBy:  shift.UpdatedBy,
		UpdatedAt:  shift.UpdatedAt.UTC(),
	}
}

func toWarningDTOs(warnings []application.ConflictWarning) []api.ConflictWarning {
	if len(warnings) == 0 {
		return nil
	}
	out := make([]api.ConflictWarning, 0, len(warnings))
	for _, warning := range warnings {
		out = append(out, api.ConflictWarning{
			WithID:     warning.WithID,
			Type:       warning.Type,
			AgentEmail: warning.AgentEmail,
			Channel:    warning.Channel,
		})
	}
	return out
}

const dateLayout = "2006-01-02"

// parseRange reads the from and to query parameters. Each accepts RFC 3339 or
// a calendar date; a date-only "to" includes that whole day.
func parseRange(values url.Values) (time.Time, time.Time, error) {
	from, err := parseBound(values.Get("from"), false)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := parseBound(values.Get("to"), true)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

func parseBound(value string, inclusiveDay bool) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if day, err := time.Parse(dateLayout, value); err == nil {
		if inclusiveDay {
			day = day.AddDate(0, 0, 1)
		}
		return day, nil
	}
	if ts := api.ParseTime(value); !ts.IsZero() {
		return ts, nil
	}
	return time.Time{}, errInvalidRange
}
