package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/daylink/internal/application"
	"github.com/example/daylink/internal/identity"
)

type sessionService interface {
	IsAuthenticated() bool
	Profile() (application.Profile, bool)
	Register(ctx context.Context, params application.RegisterParams) (application.Profile, error)
	Login(ctx context.Context, phrase string) (application.Profile, error)
	Logout(ctx context.Context) error
	DeleteAccount(ctx context.Context) error
}

// SessionHandler serves phrase generation, login, logout and registration.
type SessionHandler struct {
	service   sessionService
	generate  func() (string, error)
	responder responder
	logger    *slog.Logger
}

// NewSessionHandler builds a SessionHandler. A nil generate uses
// identity.GeneratePhrase.
func NewSessionHandler(service sessionService, generate func() (string, error), logger *slog.Logger) *SessionHandler {
	if generate == nil {
		generate = identity.GeneratePhrase
	}
	base := defaultLogger(logger)
	return &SessionHandler{service: service, generate: generate, responder: newResponder(base), logger: base}
}

func (h *SessionHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "SessionHandler", operation, attrs...)
}

// GeneratePhrase handles POST /phrases.
func (h *SessionHandler) GeneratePhrase(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.generate == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	phrase, err := h.generate()
	if err != nil {
		h.log(r.Context(), "GeneratePhrase").ErrorContext(r.Context(), "phrase generation failed", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusInternalServerError, nil)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, phraseResponse{Phrase: phrase})
}

// Status handles GET /session.
func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := sessionResponse{Authenticated: h.service.IsAuthenticated()}
	if profile, ok := h.service.Profile(); ok {
		dto := toProfileDTO(profile)
		resp.Profile = &dto
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

// Login handles POST /session.
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req phraseRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Login", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode login request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	profile, err := h.service.Login(r.Context(), req.Phrase)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Login", "meetings", len(profile.Meetings)).InfoContext(r.Context(), "profile unlocked")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionResponse{Authenticated: true, Profile: ptr(toProfileDTO(profile))})
}

// Register handles POST /session/register.
func (h *SessionHandler) Register(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Register", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode register request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	profile, err := h.service.Register(r.Context(), application.RegisterParams{Phrase: req.Phrase, Username: req.Username})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Register").InfoContext(r.Context(), "profile registered")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, sessionResponse{Authenticated: true, Profile: ptr(toProfileDTO(profile))})
}

// Logout handles DELETE /session.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if err := h.service.Logout(r.Context()); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// DeleteAccount handles DELETE /account.
func (h *SessionHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if err := h.service.DeleteAccount(r.Context()); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.log(r.Context(), "DeleteAccount").InfoContext(r.Context(), "account deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type phraseRequest struct {
	Phrase string `json:"phrase"`
}

type registerRequest struct {
	Phrase   string `json:"phrase"`
	Username string `json:"username"`
}

type phraseResponse struct {
	Phrase string `json:"phrase"`
}

type sessionResponse struct {
	Authenticated bool        `json:"authenticated"`
	Profile       *profileDTO `json:"profile,omitempty"`
}

// profileDTO is the profile without its phrase.
type profileDTO struct {
	Username    string                        `json:"username,omitempty"`
	Meetings    []application.Meeting         `json:"meetings"`
	Templates   []application.MeetingTemplate `json:"templates"`
	Preferences application.Preferences       `json:"preferences"`
	CreatedAt   string                        `json:"createdAt"`
	UpdatedAt   string                        `json:"updatedAt"`
}

func toProfileDTO(p application.Profile) profileDTO {
	meetings := p.Meetings
	if meetings == nil {
		meetings = []application.Meeting{}
	}
	templates := p.Templates
	if templates == nil {
		templates = []application.MeetingTemplate{}
	}
	return profileDTO{
		Username:    p.Username,
		Meetings:    meetings,
		Templates:   templates,
		Preferences: p.Preferences,
		CreatedAt:   p.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:   p.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func ptr[T any](v T) *T {
	return &v
}
