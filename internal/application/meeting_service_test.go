package application

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/example/daylink/internal/recurrence"
)

type cancellerStub struct {
	cancelled []string
}

func (c *cancellerStub) CancelForMeeting(id string) {
	c.cancelled = append(c.cancelled, id)
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func newMeetingHarness(t *testing.T) (*MeetingService, *profileHarness, *cancellerStub) {
	t.Helper()
	h := newProfileHarness(t)
	h.register(t, testPhrase)
	canceller := &cancellerStub{}
	svc := NewMeetingService(h.service, canceller, sequentialIDs("m"), h.service.now)
	return svc, h, canceller
}

func standupInput() MeetingInput {
	return MeetingInput{
		Type:          PlatformGoogleMeet,
		Title:         " Standup ",
		Link:          "https://meet.google.com/abc-defg-hij",
		Time:          "09:00",
		RecurringType: recurrence.KindWeekdays,
		SpecificDays:  []string{"Monday"},
	}
}

func TestMeetingService_AddMeeting(t *testing.T) {
	t.Parallel()

	t.Run("requires a login", func(t *testing.T) {
		t.Parallel()
		h := newProfileHarness(t)
		svc := NewMeetingService(h.service, nil, sequentialIDs("m"), nil)
		if _, err := svc.AddMeeting(context.Background(), standupInput()); !errors.Is(err, ErrNotLoggedIn) {
			t.Fatalf("expected ErrNotLoggedIn, got %v", err)
		}
	})

	t.Run("assigns id and order and drops unrelated selections", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := newMeetingHarness(t)
		ctx := context.Background()

		first, err := svc.AddMeeting(ctx, standupInput())
		if err != nil {
			t.Fatalf("AddMeeting returned error: %v", err)
		}
		second, err := svc.AddMeeting(ctx, standupInput())
		if err != nil {
			t.Fatalf("AddMeeting returned error: %v", err)
		}

		if first.ID != "m-1" || second.ID != "m-2" {
			t.Fatalf("unexpected ids %q, %q", first.ID, second.ID)
		}
		if first.Order != 0 || second.Order != 1 {
			t.Fatalf("unexpected order %d, %d", first.Order, second.Order)
		}
		if first.Title != "Standup" {
			t.Fatalf("expected trimmed title, got %q", first.Title)
		}
		if first.SpecificDays != nil {
			t.Fatalf("expected weekday selection dropped for weekdays kind, got %v", first.SpecificDays)
		}
		if !first.CreatedAt.Equal(testNow) {
			t.Fatalf("unexpected createdAt %v", first.CreatedAt)
		}
	})

	t.Run("validates the schedule", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := newMeetingHarness(t)
		input := standupInput()
		input.RecurringType = recurrence.KindSpecificDates
		input.SpecificDates = []string{"2026-02-30"}

		_, err := svc.AddMeeting(context.Background(), input)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := verr.FieldErrors["specificDates"]; !ok {
			t.Fatalf("expected specificDates error, got %v", verr.FieldErrors)
		}
	})

	t.Run("returns the meeting alongside a persistence failure", func(t *testing.T) {
		t.Parallel()
		svc, h, _ := newMeetingHarness(t)
		h.store.FailWrites(errors.New("quota exceeded"))

		meeting, err := svc.AddMeeting(context.Background(), standupInput())
		if !errors.Is(err, ErrPersistFailed) {
			t.Fatalf("expected ErrPersistFailed, got %v", err)
		}
		if meeting.ID == "" {
			t.Fatal("expected the meeting to be returned")
		}
		if meetings, _ := svc.Meetings(context.Background()); len(meetings) != 1 {
			t.Fatalf("expected in-memory meeting kept, got %d", len(meetings))
		}
	})
}

func TestMeetingService_UpdateMeeting(t *testing.T) {
	t.Parallel()

	svc, h, canceller := newMeetingHarness(t)
	ctx := context.Background()
	added, err := svc.AddMeeting(ctx, standupInput())
	if err != nil {
		t.Fatalf("AddMeeting returned error: %v", err)
	}

	kind := recurrence.KindSpecificDays
	days := []string{"Tuesday", "Thursday"}
	clock := "14:15"
	updated, err := svc.UpdateMeeting(ctx, added.ID, MeetingPatch{RecurringType: &kind, SpecificDays: &days, Time: &clock})
	if err != nil {
		t.Fatalf("UpdateMeeting returned error: %v", err)
	}
	if updated.Time != "14:15" || len(updated.SpecificDays) != 2 || updated.Title != "Standup" {
		t.Fatalf("unexpected updated meeting %+v", updated)
	}
	if len(canceller.cancelled) != 1 || canceller.cancelled[0] != added.ID {
		t.Fatalf("expected reminders cancelled, got %v", canceller.cancelled)
	}
	if len(h.observer.updated) == 0 {
		t.Fatal("expected ProfileUpdated callback")
	}

	if _, err := svc.UpdateMeeting(ctx, "missing", MeetingPatch{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	empty := []string{}
	if _, err := svc.UpdateMeeting(ctx, added.ID, MeetingPatch{SpecificDays: &empty}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for empty day selection, got %v", err)
	}
	if len(canceller.cancelled) != 1 {
		t.Fatalf("expected no cancellation for a rejected patch, got %v", canceller.cancelled)
	}
}

func TestMeetingService_DeleteMeeting(t *testing.T) {
	t.Parallel()

	svc, _, canceller := newMeetingHarness(t)
	ctx := context.Background()
	added, _ := svc.AddMeeting(ctx, standupInput())

	if err := svc.DeleteMeeting(ctx, added.ID); err != nil {
		t.Fatalf("DeleteMeeting returned error: %v", err)
	}
	if _, err := svc.Meeting(ctx, added.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if len(canceller.cancelled) != 1 {
		t.Fatalf("expected one cancellation, got %v", canceller.cancelled)
	}
	if err := svc.DeleteMeeting(ctx, added.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestMeetingService_ReorderMeetings(t *testing.T) {
	t.Parallel()

	svc, _, _ := newMeetingHarness(t)
	ctx := context.Background()
	a, _ := svc.AddMeeting(ctx, standupInput())
	b, _ := svc.AddMeeting(ctx, standupInput())
	c, _ := svc.AddMeeting(ctx, standupInput())

	reordered, err := svc.ReorderMeetings(ctx, []string{c.ID, a.ID, b.ID})
	if err != nil {
		t.Fatalf("ReorderMeetings returned error: %v", err)
	}
	want := []string{c.ID, a.ID, b.ID}
	for i, m := range reordered {
		if m.ID != want[i] || m.Order != i {
			t.Fatalf("position %d: got %s/%d", i, m.ID, m.Order)
		}
	}

	listed, _ := svc.Meetings(ctx)
	if listed[0].ID != c.ID {
		t.Fatalf("expected Meetings sorted by order, got %s first", listed[0].ID)
	}

	for _, ids := range [][]string{{a.ID, b.ID}, {a.ID, a.ID, b.ID}, {a.ID, b.ID, "zzz"}} {
		if _, err := svc.ReorderMeetings(ctx, ids); !errors.Is(err, ErrValidation) {
			t.Fatalf("ids %v: expected validation error, got %v", ids, err)
		}
	}
}

func TestMeetingService_Templates(t *testing.T) {
	t.Parallel()

	svc, _, _ := newMeetingHarness(t)
	ctx := context.Background()

	templates, err := svc.Templates(ctx)
	if err != nil || len(templates) != len(DefaultTemplates()) {
		t.Fatalf("expected default templates, got %d (%v)", len(templates), err)
	}

	if _, err := svc.AddTemplate(ctx, TemplateInput{Type: PlatformTeams, Title: "Retro", Time: "16:00", RecurringType: recurrence.KindSpecificDates}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected templates to refuse specific dates, got %v", err)
	}

	tpl, err := svc.AddTemplate(ctx, TemplateInput{
		Type: PlatformTeams, Title: "Retro", Time: "16:00",
		RecurringType: recurrence.KindSpecificDays, SpecificDays: []string{"Friday"},
	})
	if err != nil {
		t.Fatalf("AddTemplate returned error: %v", err)
	}

	input, err := svc.MeetingFromTemplate(ctx, tpl.ID)
	if err != nil {
		t.Fatalf("MeetingFromTemplate returned error: %v", err)
	}
	if input.Title != "Retro" || input.Link != "" || len(input.SpecificDays) != 1 {
		t.Fatalf("unexpected prefilled input %+v", input)
	}

	if err := svc.DeleteTemplate(ctx, tpl.ID); err != nil {
		t.Fatalf("DeleteTemplate returned error: %v", err)
	}
	if _, err := svc.MeetingFromTemplate(ctx, tpl.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := svc.DeleteTemplate(ctx, tpl.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}
