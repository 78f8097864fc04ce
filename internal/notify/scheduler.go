package notify

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/example/daylink/internal/application"
	"github.com/example/daylink/internal/recurrence"
)

// Kind names a reminder offset.
type Kind string

const (
	Kind15Min Kind = "15min"
	Kind5Min  Kind = "5min"
	KindNow   Kind = "now"
)

// Offset returns how long before the start the reminder fires.
func (k Kind) Offset() time.Duration {
	switch k {
	case Kind15Min:
		return 15 * time.Minute
	case Kind5Min:
		return 5 * time.Minute
	default:
		return 0
	}
}

// Timer is the subset of *time.Timer the scheduler needs.
type Timer interface {
	Stop() bool
}

// AfterFunc arms f to run once after d.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Pending describes an armed reminder.
type Pending struct {
	MeetingID string    `json:"meetingId"`
	Kind      Kind      `json:"kind"`
	FireAt    time.Time `json:"fireAt"`
}

type timerKey struct {
	meetingID string
	kind      Kind
}

type entry struct {
	timer     Timer
	fireAt    time.Time
	cancelled bool
}

// Scheduler owns the reminder timers of one session.
type Scheduler struct {
	notifier  Notifier
	now       func() time.Time
	afterFunc AfterFunc
	logger    *slog.Logger

	mu         sync.Mutex
	permission Permission
	timers     map[timerKey]*entry
}

var (
	_ application.ProfileObserver  = (*Scheduler)(nil)
	_ application.MeetingCanceller = (*Scheduler)(nil)
)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithAfterFunc overrides how timers are armed.
func WithAfterFunc(fn AfterFunc) Option {
	return func(s *Scheduler) {
		if fn != nil {
			s.afterFunc = fn
		}
	}
}

// WithLogger sets the scheduler logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPermission sets the initial permission state.
func WithPermission(p Permission) Option {
	return func(s *Scheduler) {
		s.permission = p
	}
}

// NewScheduler builds a scheduler delivering through notifier. Permission
// starts in the default state unless WithPermission says otherwise.
func NewScheduler(notifier Notifier, opts ...Option) *Scheduler {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	s := &Scheduler{
		notifier:   notifier,
		now:        time.Now,
		afterFunc:  realAfterFunc,
		logger:     slog.Default(),
		permission: PermissionDefault,
		timers:     make(map[timerKey]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "notify")
	return s
}

// Permission reports the current permission state.
func (s *Scheduler) Permission() Permission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.permission
}

// RequestPermission asks prompter once while the state is default. A
// granted or denied state is returned as-is without asking again.
func (s *Scheduler) RequestPermission(ctx context.Context, prompter Prompter) (Permission, error) {
	s.mu.Lock()
	current := s.permission
	s.mu.Unlock()
	if current != PermissionDefault || prompter == nil {
		return current, nil
	}

	answer, err := prompter.Prompt(ctx)
	if err != nil {
		return current, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.permission == PermissionDefault {
		s.permission = answer
	}
	s.logger.InfoContext(ctx, "notification permission decided", "permission", s.permission)
	return s.permission, nil
}

// ScheduleForToday replaces every pending reminder with reminders for
// today's meetings. Nothing is armed unless permission is granted and
// prefs are enabled. It returns the number of timers armed.
func (s *Scheduler) ScheduleForToday(ctx context.Context, meetings []application.Meeting, prefs application.NotificationPreferences) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelAllLocked()
	if s.permission != PermissionGranted || !prefs.Enabled {
		return 0
	}

	now := s.now()
	armed := 0
	for _, m := range recurrence.MeetingsOn(meetings, now) {
		armed += s.armLocked(m, prefs, now)
	}
	s.logger.DebugContext(ctx, "reminders scheduled", "meetings", len(meetings), "armed", armed)
	return armed
}

// Reschedule cancels the meeting's reminders and arms them again when it
// occurs today.
func (s *Scheduler) Reschedule(ctx context.Context, meeting application.Meeting, prefs application.NotificationPreferences) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelMeetingLocked(meeting.ID)
	if s.permission != PermissionGranted || !prefs.Enabled {
		return 0
	}
	now := s.now()
	if !recurrence.OccursOn(meeting.Recurrence(), now) {
		return 0
	}
	return s.armLocked(meeting, prefs, now)
}

// CancelForMeeting drops every pending reminder of one meeting.
func (s *Scheduler) CancelForMeeting(meetingID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelMeetingLocked(meetingID)
}

// CancelAll drops every pending reminder.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelAllLocked()
}

// Pending returns the armed reminders ordered by fire time.
func (s *Scheduler) Pending() []Pending {
	s.mu.Lock()
	out := make([]Pending, 0, len(s.timers))
	for key, e := range s.timers {
		out = append(out, Pending{MeetingID: key.meetingID, Kind: key.kind, FireAt: e.fireAt})
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].FireAt.Equal(out[j].FireAt) {
			return out[i].FireAt.Before(out[j].FireAt)
		}
		return out[i].MeetingID < out[j].MeetingID
	})
	return out
}

// ProfileLoaded arms reminders for the freshly loaded profile.
func (s *Scheduler) ProfileLoaded(ctx context.Context, profile application.Profile) {
	s.ScheduleForToday(ctx, profile.Meetings, profile.Preferences.Notifications)
}

// ProfileUpdated re-arms reminders after any profile change.
func (s *Scheduler) ProfileUpdated(ctx context.Context, profile application.Profile) {
	s.ScheduleForToday(ctx, profile.Meetings, profile.Preferences.Notifications)
}

// LoggedOut drops every reminder of the ended session.
func (s *Scheduler) LoggedOut(context.Context) {
	s.CancelAll()
}

func (s *Scheduler) armLocked(m application.Meeting, prefs application.NotificationPreferences, now time.Time) int {
	start, err := recurrence.StartOn(m.Time, now)
	if err != nil || !start.After(now) {
		return 0
	}

	armed := 0
	for _, kind := range enabledKinds(prefs) {
		fireAt := start.Add(-kind.Offset())
		if !fireAt.After(now) {
			continue
		}
		key := timerKey{meetingID: m.ID, kind: kind}
		if prev, ok := s.timers[key]; ok {
			prev.cancelled = true
			prev.timer.Stop()
		}
		e := &entry{fireAt: fireAt}
		n := buildNotification(m, kind)
		e.timer = s.afterFunc(fireAt.Sub(now), func() { s.fire(key, e, n) })
		s.timers[key] = e
		armed++
	}
	return armed
}

func (s *Scheduler) fire(key timerKey, e *entry, n Notification) {
	s.mu.Lock()
	if e.cancelled || s.timers[key] != e {
		s.mu.Unlock()
		return
	}
	delete(s.timers, key)
	s.mu.Unlock()

	ctx := context.Background()
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.WarnContext(ctx, "reminder delivery failed", "tag", n.Tag, "error", err)
		return
	}
	s.logger.DebugContext(ctx, "reminder delivered", "tag", n.Tag)
}

func (s *Scheduler) cancelMeetingLocked(meetingID string) {
	for key, e := range s.timers {
		if key.meetingID == meetingID {
			e.cancelled = true
			e.timer.Stop()
			delete(s.timers, key)
		}
	}
}

func (s *Scheduler) cancelAllLocked() {
	for key, e := range s.timers {
		e.cancelled = true
		e.timer.Stop()
		delete(s.timers, key)
	}
}

func enabledKinds(prefs application.NotificationPreferences) []Kind {
	var kinds []Kind
	if prefs.Before15Min {
		kinds = append(kinds, Kind15Min)
	}
	if prefs.Before5Min {
		kinds = append(kinds, Kind5Min)
	}
	if prefs.AtTime {
		kinds = append(kinds, KindNow)
	}
	return kinds
}

func buildNotification(m application.Meeting, kind Kind) Notification {
	n := Notification{
		MeetingID: m.ID,
		Kind:      kind,
		Tag:       m.ID + "-" + string(kind),
		Link:      m.Link,
	}
	switch kind {
	case Kind15Min:
		n.Title = m.Title + " in 15 minutes"
		n.Body = string(m.Type) + " at " + recurrence.DisplayClock(m.Time)
	case Kind5Min:
		n.Title = m.Title + " in 5 minutes"
		n.Body = string(m.Type) + " at " + recurrence.DisplayClock(m.Time)
	default:
		n.Title = m.Title + " is starting now!"
		n.Body = "Click to join " + string(m.Type)
		n.RequireInteraction = true
	}
	return n
}
