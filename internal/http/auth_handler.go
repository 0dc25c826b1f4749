package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/example/staff-dashboard/internal/api"
	"github.com/example/staff-dashboard/internal/application"
)

type authService interface {
	SignIn(ctx context.Context, credential string) (application.SignInResult, error)
}

type AuthHandler struct {
	service   authService
	responder responder
	logger    *slog.Logger
}

func NewAuthHandler(service authService, logger *slog.Logger) *AuthHandler {
	base := defaultLogger(logger)
	return &AuthHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AuthHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AuthHandler", operation, attrs...)
}

// SignIn serves POST /config.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req api.SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "SignIn", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode sign-in request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	result, err := h.service.SignIn(r.Context(), req.Credential)
	if err != nil {
		h.log(r.Context(), "SignIn").WarnContext(r.Context(), "sign-in rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, api.SignInResponse{
		UserEmail:     result.UserEmail,
		MatchedPerson: result.MatchedPerson,
		IsManager:     result.IsManager,
		Token:         result.Token,
		ExpiresAt:     result.ExpiresAt.UTC(),
	})
}

// Session serves GET /api/session.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, api.SessionResponse{
		Email:     principal.Email,
		Name:      principal.Name,
		IsManager: principal.IsManager,
	})
}
