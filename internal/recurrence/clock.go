package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date form used by specific-date rules.
const DateLayout = "2006-01-02"

// ErrInvalidClock indicates a time of day is not zero-padded 24-hour HH:MM.
var ErrInvalidClock = errors.New("recurrence: time must be HH:MM")

// ParseClock splits a zero-padded 24-hour HH:MM string.
func ParseClock(clock string) (hour, minute int, err error) {
	if len(clock) != 5 || clock[2] != ':' {
		return 0, 0, ErrInvalidClock
	}
	for _, i := range []int{0, 1, 3, 4} {
		if clock[i] < '0' || clock[i] > '9' {
			return 0, 0, ErrInvalidClock
		}
	}
	hour = int(clock[0]-'0')*10 + int(clock[1]-'0')
	minute = int(clock[3]-'0')*10 + int(clock[4]-'0')
	if hour > 23 || minute > 59 {
		return 0, 0, ErrInvalidClock
	}
	return hour, minute, nil
}

// FormatClock renders t as HH:MM.
func FormatClock(t time.Time) string {
	return t.Format("15:04")
}

// DisplayClock renders an HH:MM string in 12-hour form, e.g. "9:05 AM".
// Malformed input is returned unchanged.
func DisplayClock(clock string) string {
	hour, minute, err := ParseClock(clock)
	if err != nil {
		return clock
	}
	return time.Date(2000, 1, 1, hour, minute, 0, 0, time.UTC).Format("3:04 PM")
}

// StartOn combines the calendar day of date with clock in date's location.
func StartOn(clock string, date time.Time) (time.Time, error) {
	hour, minute, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, date.Location()), nil
}

// DateKey renders the local calendar day of t as YYYY-MM-DD.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseWeekday resolves an English weekday name such as "Monday".
func ParseWeekday(name string) (time.Weekday, error) {
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if strings.EqualFold(wd.String(), strings.TrimSpace(name)) {
			return wd, nil
		}
	}
	return time.Sunday, fmt.Errorf("recurrence: unknown weekday %q", name)
}

// Describe returns a short human description of the rule.
func Describe(rule Rule) string {
	switch rule.Kind {
	case KindEveryday:
		return "Every day"
	case KindWeekdays:
		return "Weekdays"
	case KindWeekends:
		return "Weekends"
	case KindSpecificDays:
		if len(rule.Weekdays) == 0 {
			return "Specific days"
		}
		names := make([]string, len(rule.Weekdays))
		for i, wd := range rule.Weekdays {
			names[i] = wd.String()
		}
		return strings.Join(names, ", ")
	case KindSpecificDates:
		return "Specific dates"
	default:
		return ""
	}
}

// Greeting returns a salutation for the hour of t.
func Greeting(t time.Time) string {
	switch hour := t.Hour(); {
	case hour < 12:
		return "Good morning"
	case hour < 17:
		return "Good afternoon"
	default:
		return "Good evening"
	}
}
