package http

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/daylink/internal/application"
	"github.com/example/daylink/internal/notify"
	"github.com/example/daylink/internal/testfixtures"
)

type apiHarness struct {
	handler   http.Handler
	clock     *testfixtures.Clock
	profiles  *application.ProfileService
	scheduler *notify.Scheduler
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAPIHarness(t *testing.T, permission notify.Permission) *apiHarness {
	t.Helper()

	logger := discardLogger()
	factory := testfixtures.NewServiceFactory(testfixtures.WithLogger(logger))
	clock := factory.Clock

	scheduler := notify.NewScheduler(notify.LogNotifier{Logger: logger},
		notify.WithClock(clock.Now),
		notify.WithAfterFunc(func(d time.Duration, f func()) notify.Timer { return clock.AfterFunc(d, f) }),
		notify.WithPermission(permission),
		notify.WithLogger(logger),
	)
	profiles := factory.NewProfileService()
	profiles.Observe(scheduler)
	meetings := factory.NewMeetingService(profiles, scheduler)

	handler := NewRouter(RouterConfig{
		Session:       NewSessionHandler(profiles, func() (string, error) { return testfixtures.PhraseBravo, nil }, logger),
		Profile:       NewProfileHandler(profiles, logger),
		Meetings:      NewMeetingHandler(meetings, logger),
		Agenda:        NewAgendaHandler(profiles, clock.Now, logger),
		Calendar:      NewCalendarHandler(profiles, meetings, clock.Now, logger),
		Notifications: NewNotificationHandler(scheduler, profiles, nil, logger),
		Auth:          RequireSession(profiles, logger),
		Middleware:    []func(http.Handler) http.Handler{Recoverer(logger), RequestLogger(logger)},
	})

	return &apiHarness{handler: handler, clock: clock, profiles: profiles, scheduler: scheduler}
}

func (h *apiHarness) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func (h *apiHarness) register(t *testing.T) {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/session/register", `{"phrase":"`+testfixtures.PhraseAlpha+`","username":"Robin"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func (h *apiHarness) addMeeting(t *testing.T, body string) application.Meeting {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/meetings", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create meeting: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp meetingResponse
	decodeBody(t, rec, &resp)
	return resp.Meeting
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to decode %q: %v", rec.Body.String(), err)
	}
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func TestSessionHandlers(t *testing.T) {
	t.Parallel()

	t.Run("health and phrase generation need no session", func(t *testing.T) {
		t.Parallel()
		h := newAPIHarness(t, notify.PermissionDefault)

		expectStatus(t, h.do(t, http.MethodGet, "/health", ""), http.StatusOK)

		rec := h.do(t, http.MethodPost, "/phrases", "")
		expectStatus(t, rec, http.StatusCreated)
		var resp phraseResponse
		decodeBody(t, rec, &resp)
		if resp.Phrase != testfixtures.PhraseBravo {
			t.Fatalf("unexpected phrase %q", resp.Phrase)
		}
	})

	t.Run("register login and logout", func(t *testing.T) {
		t.Parallel()
		h := newAPIHarness(t, notify.PermissionDefault)

		h.register(t)

		rec := h.do(t, http.MethodGet, "/session", "")
		expectStatus(t, rec, http.StatusOK)
		var status sessionResponse
		decodeBody(t, rec, &status)
		if !status.Authenticated || status.Profile == nil || status.Profile.Username != "Robin" {
			t.Fatalf("unexpected session status: %+v", status)
		}
		if strings.Contains(rec.Body.String(), testfixtures.PhraseAlpha) {
			t.Fatalf("session response must not echo the phrase: %s", rec.Body.String())
		}

		expectStatus(t, h.do(t, http.MethodDelete, "/session", ""), http.StatusNoContent)
		expectStatus(t, h.do(t, http.MethodGet, "/profile", ""), http.StatusUnauthorized)

		rec = h.do(t, http.MethodPost, "/session", `{"phrase":"abcde-12345"}`)
		expectStatus(t, rec, http.StatusOK)
		expectStatus(t, h.do(t, http.MethodGet, "/profile", ""), http.StatusOK)
	})

	t.Run("maps service errors to statuses", func(t *testing.T) {
		t.Parallel()
		h := newAPIHarness(t, notify.PermissionDefault)

		rec := h.do(t, http.MethodPost, "/session/register", `{"phrase":"nope"}`)
		expectStatus(t, rec, http.StatusBadRequest)
		var errResp errorResponse
		decodeBody(t, rec, &errResp)
		if errResp.ErrorCode != "INVALID_PHRASE" {
			t.Fatalf("unexpected error code %q", errResp.ErrorCode)
		}

		h.register(t)
		expectStatus(t, h.do(t, http.MethodPost, "/session/register", `{"phrase":"`+testfixtures.PhraseAlpha+`"}`), http.StatusConflict)

		expectStatus(t, h.do(t, http.MethodDelete, "/session", ""), http.StatusNoContent)
		expectStatus(t, h.do(t, http.MethodPost, "/session", `{"phrase":"`+testfixtures.PhraseBravo+`"}`), http.StatusUnauthorized)
		expectStatus(t, h.do(t, http.MethodPost, "/session", `{"phrase":`), http.StatusBadRequest)
		expectStatus(t, h.do(t, http.MethodPut, "/session", ""), http.StatusMethodNotAllowed)
	})

	t.Run("delete account removes the profile", func(t *testing.T) {
		t.Parallel()
		h := newAPIHarness(t, notify.PermissionDefault)

		h.register(t)
		expectStatus(t, h.do(t, http.MethodDelete, "/account", ""), http.StatusNoContent)
		expectStatus(t, h.do(t, http.MethodPost, "/session", `{"phrase":"`+testfixtures.PhraseAlpha+`"}`), http.StatusUnauthorized)
	})
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	t.Parallel()
	h := newAPIHarness(t, notify.PermissionDefault)

	paths := []struct{ method, path string }{
		{http.MethodGet, "/profile"},
		{http.MethodGet, "/meetings"},
		{http.MethodPut, "/meetings/order"},
		{http.MethodGet, "/templates"},
		{http.MethodGet, "/agenda/today"},
		{http.MethodGet, "/backup"},
		{http.MethodGet, "/calendar.ics"},
		{http.MethodGet, "/notifications"},
		{http.MethodGet, "/theme"},
		{http.MethodDelete, "/account"},
	}
	for _, p := range paths {
		rec := h.do(t, p.method, p.path, "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", p.method, p.path, rec.Code)
		}
	}
}

func TestMeetingHandlers(t *testing.T) {
	t.Parallel()

	t.Run("create update reorder and delete", func(t *testing.T) {
		t.Parallel()
		h := newAPIHarness(t, notify.PermissionDefault)
		h.register(t)

		first := h.addMeeting(t, `{"type":"Zoom","title":"Sync","link":"https://zoom.us/j/1","time":"10:00","recurringType":"everyday"}`)
		second := h.addMeeting(t, `{"type":"Google Meet","title":"Review","link":"https://meet.google.com/a","time":"11:00","recurringType":"specificDays","specificDays":["Monday"]}`)

		rec := h.do(t, http.MethodPut, "/meetings/"+first.ID, `{"title":"Daily sync"}`)
		expectStatus(t, rec, http.StatusOK)
		var updated meetingResponse
		decodeBody(t, rec, &updated)
		if updated.Meeting.Title != "Daily sync" || updated.Meeting.Time != "10:00" {
			t.Fatalf("unexpected update result: %+v", updated.Meeting)
		}

		rec = h.do(t, http.MethodPut, "/meetings/order", `{"ids":["`+second.ID+`","`+first.ID+`"]}`)
		expectStatus(t, rec, http.StatusOK)
		var list meetingsResponse
		decodeBody(t, rec, &list)
		if len(list.Meetings) != 2 || list.Meetings[0].ID != second.ID {
			t.Fatalf("unexpected order: %+v", list.Meetings)
		}

		expectStatus(t, h.do(t, http.MethodDelete, "/meetings/"+first.ID, ""), http.StatusNoContent)
		expectStatus(t, h.do(t, http.MethodGet, "/meetings/"+first.ID, ""), http.StatusNotFound)
		expectStatus(t, h.do(t, http.MethodPut, "/meetings/missing", `{"title":"x"}`), http.StatusNotFound)
	})

	t.Run("validation errors are reported per field", func(t *testing.T) {
		t.Parallel()
		h := newAPIHarness(t, notify.PermissionDefault)
		h.register(t)

		rec := h.do(t, http.MethodPost, "/meetings", `{"type":"Zoom","title":"","link":"https://zoom.us/j/1","time":"25:00","recurringType":"specificDays"}`)
		expectStatus(t, rec, http.StatusUnprocessableEntity)
		var errResp errorResponse
		decodeBody(t, rec, &errResp)
		for _, field := range []string{"title", "time", "specificDays"} {
			if _, ok := errResp.Errors[field]; !ok {
				t.Fatalf("expected %s error, got %+v", field, errResp.Errors)
			}
		}

		expectStatus(t, h.do(t, http.MethodPost, "/meetings", `{"unknown":true}`), http.StatusBadRequest)
	})

	t.Run("templates seed new meetings", func(t *testing.T) {
		t.Parallel()
		h := newAPIHarness(t, notify.PermissionDefault)
		h.register(t)

		rec := h.do(t, http.MethodPost, "/templates", `{"type":"Microsoft Teams","title":"1:1","time":"15:00","recurringType":"weekdays"}`)
		expectStatus(t, rec, http.StatusCreated)
		var created templateResponse
		decodeBody(t, rec, &created)

		meeting := h.addMeeting(t, `{"templateId":"`+created.Template.ID+`","link":"https://teams.microsoft.com/l/1"}`)
		if meeting.Title != "1:1" || meeting.Time != "15:00" || meeting.Type != application.PlatformTeams {
			t.Fatalf("template fields not applied: %+v", meeting)
		}

		expectStatus(t, h.do(t, http.MethodDelete, "/templates/"+created.Template.ID, ""), http.StatusNoContent)
		expectStatus(t, h.do(t, http.MethodDelete, "/templates/"+created.Template.ID, ""), http.StatusNotFound)
	})
}

func TestAgendaHandlers(t *testing.T) {
	t.Parallel()
	h := newAPIHarness(t, notify.PermissionDefault)
	h.register(t)

	// The clock reads Wednesday 08:00.
	h.addMeeting(t, `{"type":"Zoom","title":"Early","link":"https://zoom.us/j/1","time":"07:30","recurringType":"everyday"}`)
	h.addMeeting(t, `{"type":"Zoom","title":"Planning","link":"https://zoom.us/j/2","time":"09:00","recurringType":"weekdays"}`)
	h.addMeeting(t, `{"type":"Zoom","title":"Overlap","link":"https://zoom.us/j/3","time":"09:15","recurringType":"everyday"}`)
	h.addMeeting(t, `{"type":"Zoom","title":"Weekend","link":"https://zoom.us/j/4","time":"10:00","recurringType":"weekends"}`)

	t.Run("today lists meetings with conflicts", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/agenda/today", "")
		expectStatus(t, rec, http.StatusOK)
		var day dayResponse
		decodeBody(t, rec, &day)
		if day.Date != "2026-03-04" || len(day.Meetings) != 3 {
			t.Fatalf("unexpected day: %+v", day)
		}
		if day.Meetings[0].Meeting.Title != "Early" || day.Meetings[0].StartsIn != nil {
			t.Fatalf("past meeting should have no countdown: %+v", day.Meetings[0])
		}
		if day.Meetings[1].StartsIn == nil || day.Meetings[1].StartsIn.Hours != 1 || day.Meetings[1].StartsIn.Minutes != 0 {
			t.Fatalf("unexpected countdown: %+v", day.Meetings[1])
		}
		if len(day.Conflicts) != 1 || day.Conflicts[0].Title != "Planning" {
			t.Fatalf("unexpected conflicts: %+v", day.Conflicts)
		}
	})

	t.Run("next skips past meetings", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/agenda/next", "")
		expectStatus(t, rec, http.StatusOK)
		var next nextResponse
		decodeBody(t, rec, &next)
		if next.Next == nil || next.Next.Meeting.Title != "Planning" {
			t.Fatalf("unexpected next: %+v", next.Next)
		}
	})

	t.Run("date and range queries", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/agenda/date?date=2026-03-07", "")
		expectStatus(t, rec, http.StatusOK)
		var day dayResponse
		decodeBody(t, rec, &day)
		if len(day.Meetings) != 3 || day.Greeting != "" {
			t.Fatalf("unexpected saturday agenda: %+v", day)
		}

		expectStatus(t, h.do(t, http.MethodGet, "/agenda/date?date=03/07/2026", ""), http.StatusBadRequest)

		rec = h.do(t, http.MethodGet, "/agenda/range?from=2026-03-04&to=2026-03-05", "")
		expectStatus(t, rec, http.StatusOK)
		var rng rangeResponse
		decodeBody(t, rec, &rng)
		if len(rng.Occurrences) != 6 {
			t.Fatalf("expected six occurrences over two weekdays, got %d", len(rng.Occurrences))
		}
		for i := 1; i < len(rng.Occurrences); i++ {
			if rng.Occurrences[i].Start.Before(rng.Occurrences[i-1].Start) {
				t.Fatalf("occurrences out of order: %+v", rng.Occurrences)
			}
		}

		expectStatus(t, h.do(t, http.MethodGet, "/agenda/range?from=2026-03-05&to=2026-03-04", ""), http.StatusBadRequest)
		expectStatus(t, h.do(t, http.MethodGet, "/agenda/range?from=2026-01-01&to=2027-06-01", ""), http.StatusBadRequest)
	})
}

func TestBackupAndCalendarHandlers(t *testing.T) {
	t.Parallel()

	t.Run("backup export and import", func(t *testing.T) {
		t.Parallel()
		h := newAPIHarness(t, notify.PermissionDefault)
		h.register(t)
		h.addMeeting(t, `{"type":"Zoom","title":"Sync","link":"https://zoom.us/j/1","time":"10:00","recurringType":"everyday"}`)

		rec := h.do(t, http.MethodGet, "/backup", "")
		expectStatus(t, rec, http.StatusOK)
		var backup application.ExportedProfile
		decodeBody(t, rec, &backup)
		if backup.EncryptedData == "" || backup.Version == "" {
			t.Fatalf("unexpected backup: %+v", backup)
		}

		expectStatus(t, h.do(t, http.MethodDelete, "/session", ""), http.StatusNoContent)

		payload, err := json.Marshal(importRequest{Backup: backup, Phrase: testfixtures.PhraseBravo})
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		expectStatus(t, h.do(t, http.MethodPost, "/backup", string(payload)), http.StatusUnauthorized)

		expectStatus(t, h.do(t, http.MethodPost, "/backup", `{"backup":{"version":"1.0.0"},"phrase":"ABCDE-12345"}`), http.StatusBadRequest)

		payload, err = json.Marshal(importRequest{Backup: backup, Phrase: testfixtures.PhraseAlpha})
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rec = h.do(t, http.MethodPost, "/backup", string(payload))
		expectStatus(t, rec, http.StatusOK)
		var session sessionResponse
		decodeBody(t, rec, &session)
		if session.Profile == nil || len(session.Profile.Meetings) != 1 {
			t.Fatalf("unexpected imported profile: %+v", session.Profile)
		}
	})

	t.Run("calendar export and import", func(t *testing.T) {
		t.Parallel()
		h := newAPIHarness(t, notify.PermissionDefault)
		h.register(t)
		h.addMeeting(t, `{"type":"Zoom","title":"Sync","link":"https://zoom.us/j/1","time":"10:00","recurringType":"weekdays"}`)

		rec := h.do(t, http.MethodGet, "/calendar.ics", "")
		expectStatus(t, rec, http.StatusOK)
		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
			t.Fatalf("unexpected content type %q", ct)
		}
		calendar := rec.Body.Bytes()
		if !bytes.Contains(calendar, []byte("BEGIN:VEVENT")) {
			t.Fatalf("expected an event, got %s", calendar)
		}

		rec = h.do(t, http.MethodPost, "/calendar.ics", string(calendar))
		expectStatus(t, rec, http.StatusOK)
		var imported calendarImportResponse
		decodeBody(t, rec, &imported)
		if len(imported.Created) != 1 || imported.Created[0].Title != "Sync" {
			t.Fatalf("unexpected import result: %+v", imported)
		}

		expectStatus(t, h.do(t, http.MethodPost, "/calendar.ics", "garbage"), http.StatusBadRequest)
	})
}

func TestNotificationHandlers(t *testing.T) {
	t.Parallel()
	h := newAPIHarness(t, notify.PermissionDefault)
	h.register(t)
	h.addMeeting(t, `{"type":"Zoom","title":"Sync","link":"https://zoom.us/j/1","time":"09:00","recurringType":"everyday"}`)

	rec := h.do(t, http.MethodGet, "/notifications", "")
	expectStatus(t, rec, http.StatusOK)
	var status notificationsResponse
	decodeBody(t, rec, &status)
	if status.Permission != notify.PermissionDefault || len(status.Pending) != 0 {
		t.Fatalf("expected nothing armed before permission: %+v", status)
	}

	expectStatus(t, h.do(t, http.MethodPost, "/notifications/permission", `{"decision":"maybe"}`), http.StatusBadRequest)

	rec = h.do(t, http.MethodPost, "/notifications/permission", `{"decision":"granted"}`)
	expectStatus(t, rec, http.StatusOK)
	decodeBody(t, rec, &status)
	if status.Permission != notify.PermissionGranted || len(status.Pending) != 3 {
		t.Fatalf("expected three reminders after grant: %+v", status)
	}

	rec = h.do(t, http.MethodPatch, "/profile", `{"preferences":{"notifications":{"enabled":false}}}`)
	expectStatus(t, rec, http.StatusOK)
	if pending := h.scheduler.Pending(); len(pending) != 0 {
		t.Fatalf("disabling notifications should cancel reminders, got %+v", pending)
	}
}

func TestThemeHandlers(t *testing.T) {
	t.Parallel()
	h := newAPIHarness(t, notify.PermissionDefault)
	h.register(t)

	rec := h.do(t, http.MethodPut, "/theme", `{"theme":"light"}`)
	expectStatus(t, rec, http.StatusOK)
	expectStatus(t, h.do(t, http.MethodPut, "/theme", `{"theme":"neon"}`), http.StatusUnprocessableEntity)

	rec = h.do(t, http.MethodGet, "/theme", "")
	var theme themePayload
	decodeBody(t, rec, &theme)
	if theme.Theme != application.ThemeLight {
		t.Fatalf("expected light theme, got %q", theme.Theme)
	}

	profile, _ := h.profiles.Profile()
	if profile.Preferences.Theme != application.ThemeLight {
		t.Fatalf("expected profile preference to follow, got %q", profile.Preferences.Theme)
	}
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
	}{
		{application.ErrInvalidPhrase, http.StatusBadRequest},
		{application.ErrProfileNotFound, http.StatusUnauthorized},
		{application.ErrInvalidBackup, http.StatusBadRequest},
		{application.ErrPersistFailed, http.StatusInternalServerError},
		{&application.ValidationError{FieldErrors: map[string]string{"title": "title is required"}}, http.StatusUnprocessableEntity},
		{application.ErrNotLoggedIn, http.StatusUnauthorized},
		{application.ErrNotFound, http.StatusNotFound},
		{application.ErrPhraseInUse, http.StatusConflict},
		{context.Canceled, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got, _ := statusFor(tt.err); got != tt.want {
			t.Fatalf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
