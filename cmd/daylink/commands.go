package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/example/daylink/internal/application"
	"github.com/example/daylink/internal/ics"
	"github.com/example/daylink/internal/identity"
	"github.com/example/daylink/internal/recurrence"
	"github.com/example/daylink/internal/scheduler"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// parseArgs parses flags that may appear before or after positional
// arguments and returns the positionals.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, fmt.Errorf("%w: %v", errUsage, err)
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.io.err)
	return fs
}

func (a *app) palette(ctx context.Context) palette {
	theme := application.ThemeSystem
	if a.profiles != nil {
		if t, err := a.profiles.Theme(ctx); err == nil {
			theme = t
		}
	}
	return newPalette(a.io.out, theme)
}

func runPhrase(_ context.Context, a *app, args []string) error {
	if len(args) > 0 {
		return errUsage
	}
	phrase, err := identity.GeneratePhrase()
	if err != nil {
		return err
	}
	fmt.Fprintln(a.io.out, phrase)
	return nil
}

func runRegister(ctx context.Context, a *app, args []string) error {
	fs := a.flags("register")
	username := fs.String("username", "", "display name")
	phrase := fs.String("phrase", "", "phrase to register (generated when empty)")
	if rest, err := parseArgs(fs, args); err != nil || len(rest) > 0 {
		return errUsage
	}

	chosen := *phrase
	if chosen == "" {
		chosen = a.phrase
	}
	if chosen == "" {
		generated, err := identity.GeneratePhrase()
		if err != nil {
			return err
		}
		chosen = generated
	}

	profile, err := a.profiles.Register(ctx, application.RegisterParams{Phrase: chosen, Username: *username})
	if err != nil {
		return err
	}
	p := a.palette(ctx)
	fmt.Fprintf(a.io.out, "Profile created. Your phrase is %s\n", p.title.Render(profile.UniquePhrase))
	fmt.Fprintln(a.io.out, p.warn.Render("Write it down: it is the only way back into this profile."))
	return nil
}

func runLogin(ctx context.Context, a *app, args []string) error {
	phrase := a.phrase
	switch len(args) {
	case 0:
	case 1:
		phrase = args[0]
	default:
		return errUsage
	}
	if phrase == "" {
		return errUsage
	}
	profile, err := a.profiles.Login(ctx, phrase)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.io.out, "Logged in as %s (%d meetings)\n", displayName(profile), len(profile.Meetings))
	return nil
}

func runLogout(ctx context.Context, a *app, args []string) error {
	if len(args) > 0 {
		return errUsage
	}
	if err := a.profiles.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.io.out, "Logged out")
	return nil
}

func runWhoami(ctx context.Context, a *app, args []string) error {
	if len(args) > 0 {
		return errUsage
	}
	profile, err := a.unlock(ctx)
	if err != nil {
		return err
	}
	notifications := "off"
	if profile.Preferences.Notifications.Enabled {
		notifications = "on"
	}
	p := a.palette(ctx)
	fmt.Fprintln(a.io.out, p.title.Render(displayName(profile)))
	fmt.Fprintf(a.io.out, "meetings:      %d\n", len(profile.Meetings))
	fmt.Fprintf(a.io.out, "templates:     %d\n", len(profile.Templates))
	fmt.Fprintf(a.io.out, "theme:         %s\n", profile.Preferences.Theme)
	fmt.Fprintf(a.io.out, "notifications: %s\n", notifications)
	fmt.Fprintf(a.io.out, "created:       %s\n", profile.CreatedAt.Local().Format(recurrence.DateLayout))
	return nil
}

func runDeleteAccount(ctx context.Context, a *app, args []string) error {
	fs := a.flags("delete-account")
	yes := fs.Bool("yes", false, "confirm erasing the profile")
	if rest, err := parseArgs(fs, args); err != nil || len(rest) > 0 || !*yes {
		return errUsage
	}
	if _, err := a.unlock(ctx); err != nil {
		return err
	}
	if err := a.profiles.DeleteAccount(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.io.out, "Profile erased")
	return nil
}

func runToday(ctx context.Context, a *app, args []string) error {
	if len(args) > 0 {
		return errUsage
	}
	return a.showDay(ctx, a.now())
}

func runOn(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	date, err := time.ParseInLocation(recurrence.DateLayout, args[0], time.Local)
	if err != nil {
		return fmt.Errorf("date must be YYYY-MM-DD: %w", err)
	}
	return a.showDay(ctx, date)
}

func (a *app) showDay(ctx context.Context, date time.Time) error {
	profile, err := a.unlock(ctx)
	if err != nil {
		return err
	}
	renderDay(a.io.out, a.palette(ctx), dayView{
		Username:  profile.Username,
		Now:       a.now(),
		Date:      date,
		Meetings:  recurrence.MeetingsOn(profile.Meetings, date),
		Conflicts: scheduler.DetectConflicts(profile.Meetings, date),
	})
	return nil
}

func runNext(ctx context.Context, a *app, args []string) error {
	if len(args) > 0 {
		return errUsage
	}
	profile, err := a.unlock(ctx)
	if err != nil {
		return err
	}
	now := a.now()
	next, ok := recurrence.NewEngine[application.Meeting](func() time.Time { return now }).NextUpcoming(profile.Meetings)
	renderNext(a.io.out, a.palette(ctx), now, next, ok)
	return nil
}

func runList(ctx context.Context, a *app, args []string) error {
	if len(args) > 0 {
		return errUsage
	}
	profile, err := a.unlock(ctx)
	if err != nil {
		return err
	}
	renderMeetingList(a.io.out, a.palette(ctx), profile.Meetings)
	return nil
}

func runAdd(ctx context.Context, a *app, args []string) error {
	fs := a.flags("add")
	title := fs.String("title", "", "meeting title")
	link := fs.String("link", "", "join link")
	clock := fs.String("time", "", "start time, HH:MM")
	platform := fs.String("type", "", "meet, teams, zoom or other (inferred from the link when empty)")
	repeat := fs.String("repeat", "", "everyday, weekdays, weekends, specificDays or specific")
	days := fs.String("days", "", "comma separated weekday names")
	dates := fs.String("dates", "", "comma separated YYYY-MM-DD dates")
	description := fs.String("description", "", "notes shown with the meeting")
	templateID := fs.String("template", "", "template id to start from")
	if rest, err := parseArgs(fs, args); err != nil || len(rest) > 0 {
		return errUsage
	}

	if _, err := a.unlock(ctx); err != nil {
		return err
	}

	var input application.MeetingInput
	if *templateID != "" {
		base, err := a.meetings.MeetingFromTemplate(ctx, *templateID)
		if err != nil {
			return err
		}
		input = base
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["title"] {
		input.Title = *title
	}
	if set["link"] {
		input.Link = *link
	}
	if set["time"] {
		input.Time = *clock
	}
	if set["description"] {
		input.Description = *description
	}
	if set["days"] {
		names, err := parseDays(*days)
		if err != nil {
			return err
		}
		input.SpecificDays = names
	}
	if set["dates"] {
		input.SpecificDates = splitList(*dates)
	}
	switch {
	case set["repeat"]:
		input.RecurringType = recurrence.Kind(*repeat)
	case set["dates"]:
		input.RecurringType = recurrence.KindSpecificDates
	case set["days"]:
		input.RecurringType = recurrence.KindSpecificDays
	case input.RecurringType == "":
		input.RecurringType = recurrence.KindEveryday
	}
	switch {
	case set["type"]:
		p, err := parsePlatform(*platform)
		if err != nil {
			return err
		}
		input.Type = p
	case input.Type == "" || (*templateID == "" && input.Link != ""):
		input.Type = ics.DetectPlatform(input.Link)
	}

	meeting, err := a.meetings.AddMeeting(ctx, input)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.io.out, "Added %s at %s (%s)\n", meeting.Title, recurrence.DisplayClock(meeting.Time), meeting.ID)
	return nil
}

func runRemove(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	if _, err := a.unlock(ctx); err != nil {
		return err
	}
	if err := a.meetings.DeleteMeeting(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintln(a.io.out, "Removed", args[0])
	return nil
}

func runExport(ctx context.Context, a *app, args []string) error {
	fs := a.flags("export")
	out := fs.String("out", "", "write the backup to FILE instead of stdout")
	if rest, err := parseArgs(fs, args); err != nil || len(rest) > 0 {
		return errUsage
	}
	if _, err := a.unlock(ctx); err != nil {
		return err
	}
	backup, err := a.profiles.Export(ctx)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(backup, "", "  ")
	if err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}
	return a.writeOutput(*out, append(data, '\n'))
}

func runImport(ctx context.Context, a *app, args []string) error {
	fs := a.flags("import")
	phrase := fs.String("phrase", "", "phrase the backup was encrypted with")
	rest, err := parseArgs(fs, args)
	if err != nil || len(rest) != 1 {
		return errUsage
	}
	chosen := *phrase
	if chosen == "" {
		chosen = a.phrase
	}
	if chosen == "" {
		return errUsage
	}

	data, err := a.readInput(rest[0])
	if err != nil {
		return err
	}
	var backup application.ExportedProfile
	if err := json.Unmarshal(data, &backup); err != nil {
		return fmt.Errorf("%w: %v", application.ErrInvalidBackup, err)
	}
	profile, err := a.profiles.Import(ctx, backup, chosen)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.io.out, "Imported %s (%d meetings) and logged in\n", displayName(profile), len(profile.Meetings))
	return nil
}

func runICS(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "export":
		return a.exportCalendar(ctx, args[1:])
	case "import":
		return a.importCalendar(ctx, args[1:])
	default:
		return errUsage
	}
}

func (a *app) exportCalendar(ctx context.Context, args []string) error {
	fs := a.flags("ics export")
	out := fs.String("out", "", "write the calendar to FILE instead of stdout")
	if rest, err := parseArgs(fs, args); err != nil || len(rest) > 0 {
		return errUsage
	}
	profile, err := a.unlock(ctx)
	if err != nil {
		return err
	}
	data, err := ics.Export(profile.Meetings, a.now(), ics.ExportOptions{Stamp: a.now()})
	if err != nil {
		return err
	}
	return a.writeOutput(*out, data)
}

func (a *app) importCalendar(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	if _, err := a.unlock(ctx); err != nil {
		return err
	}
	data, err := a.readInput(args[0])
	if err != nil {
		return err
	}
	result, err := ics.Import(bytes.NewReader(data), time.Local)
	if err != nil {
		return err
	}

	created := 0
	for _, input := range result.Meetings {
		if _, err := a.meetings.AddMeeting(ctx, input); err != nil {
			if errors.Is(err, application.ErrNotLoggedIn) {
				return err
			}
			fmt.Fprintf(a.io.err, "skipped %q: %s\n", input.Title, describeError(err))
			continue
		}
		created++
	}
	for _, s := range result.Skipped {
		fmt.Fprintf(a.io.err, "skipped %q: %s\n", s.Summary, s.Reason)
	}
	fmt.Fprintf(a.io.out, "Imported %d meetings\n", created)
	return nil
}

func runTheme(ctx context.Context, a *app, args []string) error {
	switch len(args) {
	case 0:
		theme, err := a.profiles.Theme(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.io.out, theme)
		return nil
	case 1:
		// A saved session also gets the preference; without one only the
		// device theme changes.
		if _, err := a.unlock(ctx); err != nil && !errors.Is(err, application.ErrNotLoggedIn) {
			return err
		}
		theme, err := a.profiles.SetTheme(ctx, application.Theme(strings.ToLower(args[0])))
		if err != nil {
			return err
		}
		fmt.Fprintln(a.io.out, "Theme set to", theme)
		return nil
	default:
		return errUsage
	}
}

func (a *app) writeOutput(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := a.io.out.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintln(a.io.err, "wrote", path)
	return nil
}

func (a *app) readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(a.io.in)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func displayName(p application.Profile) string {
	if p.Username != "" {
		return p.Username
	}
	return "anonymous"
}

func parsePlatform(value string) (application.Platform, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "meet", "google", "google meet":
		return application.PlatformGoogleMeet, nil
	case "teams", "microsoft teams":
		return application.PlatformTeams, nil
	case "zoom":
		return application.PlatformZoom, nil
	case "other":
		return application.PlatformOther, nil
	}
	return "", fmt.Errorf("unknown meeting type %q", value)
}

func parseDays(value string) ([]string, error) {
	var names []string
	for _, item := range splitList(value) {
		wd, err := recurrence.ParseWeekday(item)
		if err != nil {
			return nil, err
		}
		names = append(names, wd.String())
	}
	return names, nil
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
