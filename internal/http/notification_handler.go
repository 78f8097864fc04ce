package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/example/daylink/internal/application"
	"github.com/example/daylink/internal/notify"
)

type reminderScheduler interface {
	Permission() notify.Permission
	RequestPermission(ctx context.Context, prompter notify.Prompter) (notify.Permission, error)
	ScheduleForToday(ctx context.Context, meetings []application.Meeting, prefs application.NotificationPreferences) int
	Pending() []notify.Pending
}

// NotificationHandler exposes reminder permission and pending timers.
type NotificationHandler struct {
	scheduler reminderScheduler
	profiles  profileSource
	prompter  notify.Prompter
	responder responder
	logger    *slog.Logger
}

// NewNotificationHandler builds a NotificationHandler. prompter answers
// permission requests that carry no explicit decision.
func NewNotificationHandler(scheduler reminderScheduler, profiles profileSource, prompter notify.Prompter, logger *slog.Logger) *NotificationHandler {
	base := defaultLogger(logger)
	return &NotificationHandler{scheduler: scheduler, profiles: profiles, prompter: prompter, responder: newResponder(base), logger: base}
}

func (h *NotificationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "NotificationHandler", operation, attrs...)
}

// Status handles GET /notifications.
func (h *NotificationHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.scheduler == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.status())
}

// RequestPermission handles POST /notifications/permission. An optional
// body {"decision":"granted"|"denied"} answers on the user's behalf.
func (h *NotificationHandler) RequestPermission(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.scheduler == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req permissionRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	prompter := h.prompter
	if req.Decision != "" {
		decision, err := notify.ParsePermission(req.Decision)
		if err != nil || decision == notify.PermissionDefault {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errors.New("decision must be granted or denied"))
			return
		}
		prompter = notify.PrompterFunc(func(context.Context) (notify.Permission, error) {
			return decision, nil
		})
	}

	permission, err := h.scheduler.RequestPermission(r.Context(), prompter)
	if err != nil {
		h.log(r.Context(), "RequestPermission").WarnContext(r.Context(), "permission prompt failed", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusInternalServerError, nil)
		return
	}

	if permission == notify.PermissionGranted {
		if profile, ok := h.profiles.Profile(); ok {
			h.scheduler.ScheduleForToday(r.Context(), profile.Meetings, profile.Preferences.Notifications)
		}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.status())
}

func (h *NotificationHandler) status() notificationsResponse {
	resp := notificationsResponse{
		Permission: h.scheduler.Permission(),
		Pending:    h.scheduler.Pending(),
	}
	if h.profiles != nil {
		if profile, ok := h.profiles.Profile(); ok {
			prefs := profile.Preferences.Notifications
			resp.Preferences = &prefs
		}
	}
	return resp
}

type permissionRequest struct {
	Decision string `json:"decision"`
}

type notificationsResponse struct {
	Permission  notify.Permission                    `json:"permission"`
	Preferences *application.NotificationPreferences `json:"preferences,omitempty"`
	Pending     []notify.Pending                     `json:"pending"`
}
