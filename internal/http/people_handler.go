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

type peopleService interface {
	ListPeople(ctx context.Context, principal application.Principal) ([]application.Person, error)
	PutPerson(ctx context.Context, principal application.Principal, input application.PersonInput) (application.Person, error)
	DeletePerson(ctx context.Context, principal application.Principal, email string) error
}

type PeopleHandler struct {
	service   peopleService
	responder responder
}

func NewPeopleHandler(service peopleService, logger *slog.Logger) *PeopleHandler {
	return &PeopleHandler{service: service, responder: newResponder(logger)}
}

func (h *PeopleHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	people, err := h.service.ListPeople(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	out := make([]api.Person, 0, len(people))
	for _, p := range people {
		out = append(out, toPersonDTO(p))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, out)
}

func (h *PeopleHandler) Put(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(chi.URLParam(r, "email"))
	if email == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEmail)
		return
	}

	var req api.PersonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	principal, _ := PrincipalFromContext(r.Context())
	person, err := h.service.PutPerson(r.Context(), principal, application.PersonInput{
		Email:     email,
		Name:      req.Name,
		IsManager: req.IsManager,
		Active:    active,
		Channels:  req.Channels,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toPersonDTO(person))
}

func (h *PeopleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(chi.URLParam(r, "email"))
	if email == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEmail)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.DeletePerson(r.Context(), principal, email); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func toPersonDTO(p application.Person) api.Person {
	return api.Person{
		Email:     p.Email,
		Name:      p.Name,
		IsManager: p.IsManager,
		Active:    p.Active,
		Channels:  append([]string(nil), p.Channels...),
		UpdatedAt: p.UpdatedAt.UTC(),
	}
}
