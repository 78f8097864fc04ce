package testfixtures

import (
	"context"
	"testing"

	"github.com/example/daylink/internal/application"
	"github.com/example/daylink/internal/persistence"
)

type countingCanceller struct {
	cancelled []string
}

func (c *countingCanceller) CancelForMeeting(id string) {
	c.cancelled = append(c.cancelled, id)
}

func TestServiceFactoryBuildsWiredServices(t *testing.T) {
	ctx := context.Background()
	factory := NewServiceFactory()
	profiles := factory.NewProfileService()
	canceller := &countingCanceller{}
	meetings := factory.NewMeetingService(profiles, canceller)

	if _, err := profiles.Register(ctx, application.RegisterParams{Phrase: PhraseAlpha, Username: "Sam"}); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	meeting, err := meetings.AddMeeting(ctx, NewMeetingFixture().Input())
	if err != nil {
		t.Fatalf("AddMeeting returned error: %v", err)
	}
	if meeting.ID != "id-1" {
		t.Fatalf("expected generated ID id-1, got %q", meeting.ID)
	}
	if !meeting.CreatedAt.Equal(factory.Clock.Now()) {
		t.Fatalf("expected timestamp %v, got %v", factory.Clock.Now(), meeting.CreatedAt)
	}

	if err := meetings.DeleteMeeting(ctx, meeting.ID); err != nil {
		t.Fatalf("DeleteMeeting returned error: %v", err)
	}
	if len(canceller.cancelled) != 1 || canceller.cancelled[0] != meeting.ID {
		t.Fatalf("expected reminders cancelled for %q, got %v", meeting.ID, canceller.cancelled)
	}

	phrase, err := factory.Store.GetSessionPhrase(ctx)
	if err != nil || phrase != PhraseAlpha {
		t.Fatalf("expected session pointer %q, got %q (%v)", PhraseAlpha, phrase, err)
	}
	if len(factory.Store.ProfileKeys()) != 1 {
		t.Fatalf("expected one stored profile, got %v", factory.Store.ProfileKeys())
	}
}

func TestNewProfileFixtureOrdersMeetings(t *testing.T) {
	profile := NewProfileFixture(PhraseBravo,
		NewMeetingFixture(WithMeetingTime("10:00")),
		NewMeetingFixture(WithMeetingDays("Monday", "Friday")),
	)
	if profile.UniquePhrase != PhraseBravo {
		t.Fatalf("unexpected phrase %q", profile.UniquePhrase)
	}
	if len(profile.Meetings) != 2 {
		t.Fatalf("expected 2 meetings, got %d", len(profile.Meetings))
	}
	for i, m := range profile.Meetings {
		if m.Order != i {
			t.Fatalf("meeting %d has order %d", i, m.Order)
		}
	}
	if len(profile.Templates) == 0 {
		t.Fatal("expected default templates")
	}
}

func TestSQLiteHarnessOpensMigratedStore(t *testing.T) {
	harness := NewSQLiteHarness(t)
	ctx := context.Background()

	record := persistence.ProfileRecord{Key: "daylink_abc", Encrypted: "blob", UpdatedAt: ReferenceTime()}
	if err := harness.Profiles.PutProfile(ctx, record); err != nil {
		t.Fatalf("PutProfile returned error: %v", err)
	}
	got, err := harness.Profiles.GetProfile(ctx, record.Key)
	if err != nil {
		t.Fatalf("GetProfile returned error: %v", err)
	}
	if got.Encrypted != record.Encrypted {
		t.Fatalf("unexpected record %+v", got)
	}
}
