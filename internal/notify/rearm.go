package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/example/daylink/internal/application"
)

// DefaultRearmSpec re-arms reminders shortly after local midnight.
const DefaultRearmSpec = "0 0 * * *"

// ProfileSource exposes the logged-in profile.
type ProfileSource interface {
	Profile() (application.Profile, bool)
}

// DailyRearm re-runs ScheduleForToday on a cron schedule so a long-running
// daemon picks up each new day's meetings.
type DailyRearm struct {
	scheduler *Scheduler
	profiles  ProfileSource
	spec      string
	location  *time.Location
	logger    *slog.Logger
}

// NewDailyRearm validates spec, a standard five-field cron expression.
func NewDailyRearm(scheduler *Scheduler, profiles ProfileSource, spec string, logger *slog.Logger) (*DailyRearm, error) {
	if spec == "" {
		spec = DefaultRearmSpec
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("notify: invalid rearm schedule %q: %w", spec, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DailyRearm{
		scheduler: scheduler,
		profiles:  profiles,
		spec:      spec,
		location:  time.Local,
		logger:    logger.With("component", "rearm"),
	}, nil
}

// Rearm schedules today's reminders for the logged-in profile, if any.
func (r *DailyRearm) Rearm(ctx context.Context) int {
	profile, ok := r.profiles.Profile()
	if !ok {
		return 0
	}
	armed := r.scheduler.ScheduleForToday(ctx, profile.Meetings, profile.Preferences.Notifications)
	r.logger.InfoContext(ctx, "reminders re-armed", "armed", armed)
	return armed
}

// Run starts the cron loop and blocks until ctx is done.
func (r *DailyRearm) Run(ctx context.Context) error {
	c := cron.New(cron.WithLocation(r.location))
	if _, err := c.AddFunc(r.spec, func() { r.Rearm(ctx) }); err != nil {
		return fmt.Errorf("notify: schedule rearm: %w", err)
	}
	c.Start()
	r.logger.InfoContext(ctx, "daily rearm started", "spec", r.spec)

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
