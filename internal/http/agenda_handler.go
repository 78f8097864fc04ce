package http

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/example/daylink/internal/application"
	"github.com/example/daylink/internal/recurrence"
	"github.com/example/daylink/internal/scheduler"
)

// maxRangeDays bounds /agenda/range expansions.
const maxRangeDays = 366

type profileSource interface {
	Profile() (application.Profile, bool)
}

// AgendaHandler answers day, next-meeting and range queries.
type AgendaHandler struct {
	profiles  profileSource
	engine    *recurrence.Engine[application.Meeting]
	responder responder
	logger    *slog.Logger
}

// NewAgendaHandler builds an AgendaHandler. A nil now uses time.Now.
func NewAgendaHandler(profiles profileSource, now func() time.Time, logger *slog.Logger) *AgendaHandler {
	base := defaultLogger(logger)
	return &AgendaHandler{
		profiles:  profiles,
		engine:    recurrence.NewEngine[application.Meeting](now),
		responder: newResponder(base),
		logger:    base,
	}
}

func (h *AgendaHandler) meetings(ctx context.Context, w http.ResponseWriter) ([]application.Meeting, bool) {
	profile, ok := h.profiles.Profile()
	if !ok {
		h.responder.handleServiceError(ctx, w, application.ErrNotLoggedIn)
		return nil, false
	}
	return profile.Meetings, true
}

// Today handles GET /agenda/today.
func (h *AgendaHandler) Today(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.profiles == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	meetings, ok := h.meetings(r.Context(), w)
	if !ok {
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.day(meetings, h.engine.Now(), true))
}

// Date handles GET /agenda/date?date=YYYY-MM-DD.
func (h *AgendaHandler) Date(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.profiles == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	now := h.engine.Now()
	date, err := time.ParseInLocation(recurrence.DateLayout, strings.TrimSpace(r.URL.Query().Get("date")), now.Location())
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}

	meetings, ok := h.meetings(r.Context(), w)
	if !ok {
		return
	}
	isToday := recurrence.DateKey(date) == recurrence.DateKey(now)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.day(meetings, date, isToday))
}

// Next handles GET /agenda/next. Only today's meetings are considered.
func (h *AgendaHandler) Next(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.profiles == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	meetings, ok := h.meetings(r.Context(), w)
	if !ok {
		return
	}

	resp := nextResponse{}
	if next, found := h.engine.NextUpcoming(meetings); found {
		item := h.item(next, h.engine.Now(), true)
		resp.Next = &item
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

// Range handles GET /agenda/range?from=&to= with inclusive dates.
func (h *AgendaHandler) Range(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.profiles == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	loc := h.engine.Now().Location()
	query := r.URL.Query()
	from, errFrom := time.ParseInLocation(recurrence.DateLayout, strings.TrimSpace(query.Get("from")), loc)
	to, errTo := time.ParseInLocation(recurrence.DateLayout, strings.TrimSpace(query.Get("to")), loc)
	if errFrom != nil || errTo != nil || to.Before(from) {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRange)
		return
	}
	if to.Sub(from) > maxRangeDays*24*time.Hour {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errRangeTooLong)
		return
	}

	meetings, ok := h.meetings(r.Context(), w)
	if !ok {
		return
	}

	end := to.AddDate(0, 0, 1).Add(-time.Nanosecond)
	occurrences := []occurrenceDTO{}
	for _, m := range meetings {
		starts, err := h.engine.Occurrences(m, from, end)
		if err != nil {
			h.log(r.Context(), "Range", "meeting_id", m.ID).WarnContext(r.Context(), "skipping meeting with invalid rule", "error", err)
			continue
		}
		for _, start := range starts {
			occurrences = append(occurrences, occurrenceDTO{
				MeetingID: m.ID,
				Title:     m.Title,
				Type:      m.Type,
				Link:      m.Link,
				Start:     start,
				End:       start.Add(recurrence.AssumedDuration),
			})
		}
	}
	sort.SliceStable(occurrences, func(i, j int) bool {
		return occurrences[i].Start.Before(occurrences[j].Start)
	})

	h.responder.writeJSON(r.Context(), w, http.StatusOK, rangeResponse{
		From:        recurrence.DateKey(from),
		To:          recurrence.DateKey(to),
		Occurrences: occurrences,
	})
}

func (h *AgendaHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AgendaHandler", operation, attrs...)
}

func (h *AgendaHandler) day(meetings []application.Meeting, date time.Time, isToday bool) dayResponse {
	resp := dayResponse{
		Date:      recurrence.DateKey(date),
		Meetings:  []agendaItem{},
		Conflicts: scheduler.DetectConflicts(meetings, date),
	}
	if isToday {
		resp.Greeting = recurrence.Greeting(h.engine.Now())
	}
	for _, m := range h.engine.MeetingsOn(meetings, date) {
		resp.Meetings = append(resp.Meetings, h.item(m, date, isToday))
	}
	if resp.Conflicts == nil {
		resp.Conflicts = []scheduler.Conflict{}
	}
	return resp
}

func (h *AgendaHandler) item(m application.Meeting, date time.Time, isToday bool) agendaItem {
	item := agendaItem{
		Meeting:     m,
		DisplayTime: recurrence.DisplayClock(m.Time),
		Recurrence:  recurrence.Describe(m.Recurrence()),
		Icon:        m.Type.Icon(),
	}
	if start, err := recurrence.StartOn(m.Time, date); err == nil {
		item.Start = &start
	}
	if isToday {
		item.Active = h.engine.IsActive(m)
		if remaining, ok := h.engine.TimeUntil(m); ok {
			item.StartsIn = &remaining
		}
	}
	return item
}

type agendaItem struct {
	Meeting     application.Meeting   `json:"meeting"`
	Start       *time.Time            `json:"start,omitempty"`
	DisplayTime string                `json:"displayTime"`
	Recurrence  string                `json:"recurrence"`
	Icon        string                `json:"icon"`
	Active      bool                  `json:"active"`
	StartsIn    *recurrence.Remaining `json:"startsIn,omitempty"`
}

type dayResponse struct {
	Date      string               `json:"date"`
	Greeting  string               `json:"greeting,omitempty"`
	Meetings  []agendaItem         `json:"meetings"`
	Conflicts []scheduler.Conflict `json:"conflicts"`
}

type nextResponse struct {
	Next *agendaItem `json:"next"`
}

type occurrenceDTO struct {
	MeetingID string               `json:"meetingId"`
	Title     string               `json:"title"`
	Type      application.Platform `json:"type"`
	Link      string               `json:"link"`
	Start     time.Time            `json:"start"`
	End       time.Time            `json:"end"`
}

type rangeResponse struct {
	From        string          `json:"from"`
	To          string          `json:"to"`
	Occurrences []occurrenceDTO `json:"occurrences"`
}
