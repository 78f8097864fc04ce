package notify

import (
	"context"
	"testing"
	"time"

	"github.com/example/daylink/internal/application"
	"github.com/example/daylink/internal/testfixtures"
)

type staticProfiles struct {
	profile application.Profile
	ok      bool
}

func (s staticProfiles) Profile() (application.Profile, bool) {
	return s.profile, s.ok
}

func TestDailyRearm(t *testing.T) {
	t.Parallel()

	if _, err := NewDailyRearm(nil, staticProfiles{}, "every tuesday", nil); err == nil {
		t.Fatal("expected invalid cron expression to be rejected")
	}

	clock := testfixtures.NewClock(time.Time{})
	s := newTestScheduler(clock, &recordingNotifier{}, PermissionGranted)

	loggedOut, err := NewDailyRearm(s, staticProfiles{}, "", nil)
	if err != nil {
		t.Fatalf("NewDailyRearm returned error: %v", err)
	}
	if armed := loggedOut.Rearm(context.Background()); armed != 0 {
		t.Fatalf("expected nothing armed without a profile, got %d", armed)
	}

	profile := testfixtures.NewProfileFixture(testfixtures.PhraseAlpha, testfixtures.NewMeetingFixture())
	rearm, err := NewDailyRearm(s, staticProfiles{profile: profile, ok: true}, "5 0 * * *", nil)
	if err != nil {
		t.Fatalf("NewDailyRearm returned error: %v", err)
	}
	if armed := rearm.Rearm(context.Background()); armed != 3 {
		t.Fatalf("expected 3 reminders, got %d", armed)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rearm.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}
