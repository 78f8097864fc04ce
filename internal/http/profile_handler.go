package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/daylink/internal/application"
)

type profileService interface {
	Profile() (application.Profile, bool)
	UpdateProfile(ctx context.Context, update application.ProfileUpdate) (application.Profile, error)
	Export(ctx context.Context) (application.ExportedProfile, error)
	Import(ctx context.Context, backup application.ExportedProfile, phrase string) (application.Profile, error)
	Theme(ctx context.Context) (application.Theme, error)
	SetTheme(ctx context.Context, theme application.Theme) (application.Theme, error)
}

// ProfileHandler serves the active profile, its backup and the theme.
type ProfileHandler struct {
	service   profileService
	responder responder
	logger    *slog.Logger
}

// NewProfileHandler builds a ProfileHandler.
func NewProfileHandler(service profileService, logger *slog.Logger) *ProfileHandler {
	base := defaultLogger(logger)
	return &ProfileHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ProfileHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ProfileHandler", operation, attrs...)
}

// Get handles GET /profile.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	profile, ok := h.service.Profile()
	if !ok {
		h.responder.handleServiceError(r.Context(), w, application.ErrNotLoggedIn)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toProfileDTO(profile))
}

// Patch handles PATCH /profile. Omitted fields are left untouched.
func (h *ProfileHandler) Patch(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req profilePatchRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Patch", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode profile patch", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	current, ok := h.service.Profile()
	if !ok {
		h.responder.handleServiceError(r.Context(), w, application.ErrNotLoggedIn)
		return
	}

	update := application.ProfileUpdate{Username: req.Username}
	if req.Preferences != nil {
		prefs := req.Preferences.apply(current.Preferences)
		update.Preferences = &prefs
	}

	profile, err := h.service.UpdateProfile(r.Context(), update)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toProfileDTO(profile))
}

// Export handles GET /backup.
func (h *ProfileHandler) Export(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	backup, err := h.service.Export(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="daylink-backup.json"`)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, backup)
}

// Import handles POST /backup.
func (h *ProfileHandler) Import(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req importRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Import", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode import request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	profile, err := h.service.Import(r.Context(), req.Backup, req.Phrase)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionResponse{Authenticated: true, Profile: ptr(toProfileDTO(profile))})
}

// GetTheme handles GET /theme.
func (h *ProfileHandler) GetTheme(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	theme, err := h.service.Theme(r.Context())
	if err != nil {
		h.log(r.Context(), "GetTheme").WarnContext(r.Context(), "theme read failed, using fallback", "error", err)
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, themePayload{Theme: theme})
}

// PutTheme handles PUT /theme.
func (h *ProfileHandler) PutTheme(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req themePayload
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	theme, err := h.service.SetTheme(r.Context(), req.Theme)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, themePayload{Theme: theme})
}

type profilePatchRequest struct {
	Username    *string             `json:"username"`
	Preferences *preferencesRequest `json:"preferences"`
}

type preferencesRequest struct {
	Theme         *application.Theme    `json:"theme"`
	Notifications *notificationsRequest `json:"notifications"`
}

type notificationsRequest struct {
	Enabled     *bool `json:"enabled"`
	Before15Min *bool `json:"before15Min"`
	Before5Min  *bool `json:"before5Min"`
	AtTime      *bool `json:"atTime"`
}

func (p preferencesRequest) apply(prefs application.Preferences) application.Preferences {
	if p.Theme != nil {
		prefs.Theme = *p.Theme
	}
	if n := p.Notifications; n != nil {
		setBool(&prefs.Notifications.Enabled, n.Enabled)
		setBool(&prefs.Notifications.Before15Min, n.Before15Min)
		setBool(&prefs.Notifications.Before5Min, n.Before5Min)
		setBool(&prefs.Notifications.AtTime, n.AtTime)
	}
	return prefs
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

type importRequest struct {
	Backup application.ExportedProfile `json:"backup"`
	Phrase string                      `json:"phrase"`
}

type themePayload struct {
	Theme application.Theme `json:"theme"`
}
