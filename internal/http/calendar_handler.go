package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/daylink/internal/application"
	"github.com/example/daylink/internal/ics"
)

// maxCalendarBytes caps uploaded iCalendar documents.
const maxCalendarBytes = 4 << 20

type meetingCreator interface {
	AddMeeting(ctx context.Context, input application.MeetingInput) (application.Meeting, error)
}

// CalendarHandler exports meetings as iCalendar and imports VEVENTs.
type CalendarHandler struct {
	profiles  profileSource
	meetings  meetingCreator
	now       func() time.Time
	responder responder
	logger    *slog.Logger
}

// NewCalendarHandler builds a CalendarHandler. A nil now uses time.Now.
func NewCalendarHandler(profiles profileSource, meetings meetingCreator, now func() time.Time, logger *slog.Logger) *CalendarHandler {
	if now == nil {
		now = time.Now
	}
	base := defaultLogger(logger)
	return &CalendarHandler{profiles: profiles, meetings: meetings, now: now, responder: newResponder(base), logger: base}
}

func (h *CalendarHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "CalendarHandler", operation, attrs...)
}

// Export handles GET /calendar.ics.
func (h *CalendarHandler) Export(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.profiles == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	profile, ok := h.profiles.Profile()
	if !ok {
		h.responder.handleServiceError(r.Context(), w, application.ErrNotLoggedIn)
		return
	}

	now := h.now()
	data, err := ics.Export(profile.Meetings, now, ics.ExportOptions{Stamp: now})
	if err != nil {
		h.log(r.Context(), "Export").ErrorContext(r.Context(), "calendar export failed", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="daylink.ics"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.log(r.Context(), "Export").WarnContext(r.Context(), "failed to write calendar", "error", err)
	}
}

// Import handles POST /calendar.ics. Each representable VEVENT becomes a
// meeting; the rest are reported as skipped or failed.
func (h *CalendarHandler) Import(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.meetings == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	result, err := ics.Import(io.LimitReader(r.Body, maxCalendarBytes), h.now().Location())
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	resp := calendarImportResponse{
		Created: []application.Meeting{},
		Skipped: result.Skipped,
		Failed:  []importFailure{},
	}
	if resp.Skipped == nil {
		resp.Skipped = []ics.Skipped{}
	}
	for _, input := range result.Meetings {
		meeting, err := h.meetings.AddMeeting(r.Context(), input)
		if err != nil {
			if errors.Is(err, application.ErrNotLoggedIn) {
				h.responder.handleServiceError(r.Context(), w, err)
				return
			}
			resp.Failed = append(resp.Failed, importFailure{Title: input.Title, Reason: application.ErrorKind(err)})
			continue
		}
		resp.Created = append(resp.Created, meeting)
	}

	h.log(r.Context(), "Import", "created", len(resp.Created), "skipped", len(resp.Skipped), "failed", len(resp.Failed)).
		InfoContext(r.Context(), "calendar imported")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

type importFailure struct {
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

type calendarImportResponse struct {
	Created []application.Meeting `json:"created"`
	Skipped []ics.Skipped         `json:"skipped"`
	Failed  []importFailure       `json:"failed"`
}
