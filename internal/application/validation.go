package application

import (
	"errors"
	"fmt"
	"strings"

	"github.com/example/daylink/internal/recurrence"
)

func validateMeeting(m Meeting) *ValidationError {
	v := &ValidationError{}
	if strings.TrimSpace(m.ID) == "" {
		v.add("id", "id is required")
	}
	if !m.Type.Valid() {
		v.add("type", "type must be Google Meet, Microsoft Teams, Zoom or Other")
	}
	if strings.TrimSpace(m.Title) == "" {
		v.add("title", "title is required")
	}
	if strings.TrimSpace(m.Link) == "" {
		v.add("link", "link is required")
	}
	validateSchedule(v, m.Time, m.RecurringType, m.SpecificDays, m.SpecificDates)
	return v
}

func validateTemplate(t MeetingTemplate) *ValidationError {
	v := &ValidationError{}
	if strings.TrimSpace(t.ID) == "" {
		v.add("id", "id is required")
	}
	if !t.Type.Valid() {
		v.add("type", "type must be Google Meet, Microsoft Teams, Zoom or Other")
	}
	if strings.TrimSpace(t.Title) == "" {
		v.add("title", "title is required")
	}
	if t.RecurringType == recurrence.KindSpecificDates {
		v.add("recurringType", "templates cannot use specific dates")
	}
	validateSchedule(v, t.Time, t.RecurringType, t.SpecificDays, nil)
	return v
}

func validateSchedule(v *ValidationError, clock string, kind recurrence.Kind, days, dates []string) {
	if _, _, err := recurrence.ParseClock(clock); err != nil {
		v.add("time", "time must be HH:MM in 24-hour form")
	}
	for _, name := range days {
		if _, err := recurrence.ParseWeekday(name); err != nil {
			v.add("specificDays", fmt.Sprintf("unknown weekday %q", name))
		}
	}
	err := buildRule(kind, days, dates).Validate()
	switch {
	case err == nil:
	case errors.Is(err, recurrence.ErrInvalidKind):
		v.add("recurringType", "unsupported recurrence type")
	case errors.Is(err, recurrence.ErrEmptySelection) && kind == recurrence.KindSpecificDays:
		v.add("specificDays", "select at least one day")
	case errors.Is(err, recurrence.ErrEmptySelection):
		v.add("specificDates", "select at least one date")
	case errors.Is(err, recurrence.ErrInvalidDate):
		v.add("specificDates", "dates must be YYYY-MM-DD")
	default:
		v.add("recurringType", err.Error())
	}
}

func validateMeetings(meetings []Meeting) *ValidationError {
	v := &ValidationError{}
	seen := make(map[string]struct{}, len(meetings))
	for i, m := range meetings {
		prefix := fmt.Sprintf("meetings[%d].", i)
		v.merge(prefix, validateMeeting(m))
		if _, dup := seen[m.ID]; dup && m.ID != "" {
			v.add(prefix+"id", "duplicate id")
		}
		seen[m.ID] = struct{}{}
	}
	return v
}

func validateTemplates(templates []MeetingTemplate) *ValidationError {
	v := &ValidationError{}
	seen := make(map[string]struct{}, len(templates))
	for i, t := range templates {
		prefix := fmt.Sprintf("templates[%d].", i)
		v.merge(prefix, validateTemplate(t))
		if _, dup := seen[t.ID]; dup && t.ID != "" {
			v.add(prefix+"id", "duplicate id")
		}
		seen[t.ID] = struct{}{}
	}
	return v
}

func validatePreferences(p Preferences) *ValidationError {
	v := &ValidationError{}
	if !p.Theme.Valid() {
		v.add("preferences.theme", "theme must be dark, light or system")
	}
	return v
}
