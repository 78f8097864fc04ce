package ics

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"github.com/example/daylink/internal/application"
	"github.com/example/daylink/internal/recurrence"
)

// Skipped records a VEVENT that could not become a meeting.
type Skipped struct {
	UID     string `json:"uid"`
	Summary string `json:"summary"`
	Reason  string `json:"reason"`
}

// ImportResult lists the meetings read from a document and the events left out.
type ImportResult struct {
	Meetings []application.MeetingInput `json:"meetings"`
	Skipped  []Skipped                  `json:"skipped"`
}

var linkPattern = regexp.MustCompile(`https?://[^\s<>"']+`)

// Import parses VEVENTs into meeting inputs. Floating times are read in
// loc; zoned and UTC times are converted to it. Events that cannot be
// represented are reported in Skipped rather than failing the import.
func Import(r io.Reader, loc *time.Location) (ImportResult, error) {
	if loc == nil {
		loc = time.Local
	}
	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return ImportResult{}, fmt.Errorf("ics: parse calendar: %w", err)
	}

	var result ImportResult
	for _, ve := range cal.Events() {
		input, err := parseEvent(ve, loc)
		if err != nil {
			result.Skipped = append(result.Skipped, Skipped{
				UID:     propertyValue(ve, ical.ComponentPropertyUniqueId),
				Summary: propertyValue(ve, ical.ComponentPropertySummary),
				Reason:  err.Error(),
			})
			continue
		}
		result.Meetings = append(result.Meetings, input)
	}
	return result, nil
}

func parseEvent(ve *ical.VEvent, loc *time.Location) (application.MeetingInput, error) {
	var input application.MeetingInput

	input.Title = strings.TrimSpace(propertyValue(ve, ical.ComponentPropertySummary))
	if input.Title == "" {
		return input, errors.New("missing summary")
	}
	input.Description = strings.TrimSpace(propertyValue(ve, ical.ComponentPropertyDescription))

	input.Link = strings.TrimSpace(propertyValue(ve, ical.ComponentPropertyUrl))
	if input.Link == "" {
		input.Link = findLink(input.Description, propertyValue(ve, ical.ComponentPropertyLocation))
	}
	if input.Link == "" {
		return input, errors.New("no meeting link")
	}
	input.Type = DetectPlatform(input.Link)
	if p := application.Platform(propertyValue(ve, platformProperty)); p.Valid() {
		input.Type = p
	}

	startProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if startProp == nil {
		return input, errors.New("missing DTSTART")
	}
	if isAllDay(startProp) {
		return input, errors.New("all-day event")
	}
	start, err := parseDateTime(startProp.Value, tzid(startProp), loc)
	if err != nil {
		return input, fmt.Errorf("invalid DTSTART: %w", err)
	}
	input.Time = recurrence.FormatClock(start)

	if rruleProp := ve.GetProperty(ical.ComponentPropertyRrule); rruleProp != nil {
		opt, err := rrule.StrToROption(rruleProp.Value)
		if err != nil {
			return input, fmt.Errorf("invalid RRULE: %w", err)
		}
		rule, err := recurrence.FromRRule(opt)
		if err != nil {
			return input, err
		}
		input.RecurringType = rule.Kind
		for _, wd := range rule.Weekdays {
			input.SpecificDays = append(input.SpecificDays, wd.String())
		}
		return input, nil
	}

	input.RecurringType = recurrence.KindSpecificDates
	seen := map[string]struct{}{}
	addDate := func(t time.Time) {
		key := recurrence.DateKey(t)
		if _, dup := seen[key]; !dup {
			seen[key] = struct{}{}
			input.SpecificDates = append(input.SpecificDates, key)
		}
	}
	addDate(start)
	for _, p := range ve.GetProperties(ical.ComponentPropertyRdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			at, err := parseDateTime(part, tzid(p), loc)
			if err != nil {
				return input, fmt.Errorf("invalid RDATE: %w", err)
			}
			addDate(at)
		}
	}
	return input, nil
}

// DetectPlatform infers the conferencing product from a join link's host.
func DetectPlatform(link string) application.Platform {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return application.PlatformOther
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case host == "meet.google.com":
		return application.PlatformGoogleMeet
	case host == "teams.microsoft.com" || host == "teams.live.com":
		return application.PlatformTeams
	case host == "zoom.us" || strings.HasSuffix(host, ".zoom.us"):
		return application.PlatformZoom
	default:
		return application.PlatformOther
	}
}

func findLink(texts ...string) string {
	var fallback string
	for _, text := range texts {
		for _, candidate := range linkPattern.FindAllString(text, -1) {
			candidate = strings.TrimRight(candidate, ".,;)")
			if DetectPlatform(candidate) != application.PlatformOther {
				return candidate
			}
			if fallback == "" {
				fallback = candidate
			}
		}
	}
	return fallback
}

func propertyValue(ve *ical.VEvent, prop ical.ComponentProperty) string {
	if p := ve.GetProperty(prop); p != nil {
		return p.Value
	}
	return ""
}

func tzid(p *ical.IANAProperty) string {
	if p == nil || p.ICalParameters == nil {
		return ""
	}
	if values := p.ICalParameters["TZID"]; len(values) > 0 {
		return values[0]
	}
	return ""
}

func isAllDay(p *ical.IANAProperty) bool {
	if p.ICalParameters != nil {
		if values := p.ICalParameters["VALUE"]; len(values) > 0 && strings.EqualFold(values[0], "DATE") {
			return true
		}
	}
	return !strings.Contains(p.Value, "T")
}

// parseDateTime reads a DATE-TIME value and returns it in loc.
func parseDateTime(value, zone string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if strings.HasSuffix(value, "Z") {
		t, err := time.Parse("20060102T150405Z", value)
		if err != nil {
			return time.Time{}, err
		}
		return t.In(loc), nil
	}
	in := loc
	if zone != "" {
		zoned, err := time.LoadLocation(zone)
		if err != nil {
			return time.Time{}, fmt.Errorf("unknown TZID %q", zone)
		}
		in = zoned
	}
	t, err := time.ParseInLocation(floatingLayout, value, in)
	if err != nil {
		return time.Time{}, err
	}
	return t.In(loc), nil
}
