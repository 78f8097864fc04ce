// Package recurrence answers calendar questions about meetings: whether a
// meeting occurs on a date, what today's agenda is, what comes next and
// whether a meeting is running right now.
package recurrence

import (
	"errors"
	"sort"
	"time"
)

const (
	// ActiveLeadTime is how early before its start a meeting counts as active.
	ActiveLeadTime = 5 * time.Minute
	// AssumedDuration is the length every meeting is assumed to run.
	AssumedDuration = 30 * time.Minute
)

// Kind enumerates the supported recurrence patterns. Values match the
// persisted JSON representation.
type Kind string

const (
	// KindEveryday repeats every day.
	KindEveryday Kind = "everyday"
	// KindWeekdays repeats Monday through Friday.
	KindWeekdays Kind = "weekdays"
	// KindWeekends repeats Saturday and Sunday.
	KindWeekends Kind = "weekends"
	// KindSpecificDays repeats on the selected weekdays.
	KindSpecificDays Kind = "specificDays"
	// KindSpecificDates occurs only on the listed calendar dates.
	KindSpecificDates Kind = "specific"
)

var (
	// ErrInvalidKind indicates the recurrence kind is not supported.
	ErrInvalidKind = errors.New("recurrence: invalid recurrence kind")
	// ErrEmptySelection indicates a day or date based rule selects nothing.
	ErrEmptySelection = errors.New("recurrence: rule selects no days")
	// ErrInvalidDate indicates a specific date is not in YYYY-MM-DD form.
	ErrInvalidDate = errors.New("recurrence: invalid date")
)

// Rule describes when a meeting repeats. Weekdays applies to
// KindSpecificDays and Dates (YYYY-MM-DD) to KindSpecificDates.
type Rule struct {
	Kind     Kind
	Weekdays []time.Weekday
	Dates    []string
}

// Validate checks the rule is well formed.
func (r Rule) Validate() error {
	switch r.Kind {
	case KindEveryday, KindWeekdays, KindWeekends:
		return nil
	case KindSpecificDays:
		if len(r.Weekdays) == 0 {
			return ErrEmptySelection
		}
		return nil
	case KindSpecificDates:
		if len(r.Dates) == 0 {
			return ErrEmptySelection
		}
		for _, d := range r.Dates {
			if _, err := time.Parse(DateLayout, d); err != nil {
				return ErrInvalidDate
			}
		}
		return nil
	default:
		return ErrInvalidKind
	}
}

// Schedulable is anything with a recurrence rule and an HH:MM start time.
type Schedulable interface {
	Recurrence() Rule
	TimeOfDay() string
}

// OccursOn reports whether rule selects the local calendar day of date.
// Specific dates compare as YYYY-MM-DD strings, never as instants.
func OccursOn(rule Rule, date time.Time) bool {
	day := date.Weekday()
	switch rule.Kind {
	case KindEveryday:
		return true
	case KindWeekdays:
		return day >= time.Monday && day <= time.Friday
	case KindWeekends:
		return day == time.Saturday || day == time.Sunday
	case KindSpecificDays:
		for _, wd := range rule.Weekdays {
			if wd == day {
				return true
			}
		}
		return false
	case KindSpecificDates:
		key := DateKey(date)
		for _, d := range rule.Dates {
			if d == key {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// MeetingsOn returns the items occurring on date ordered by start time.
// Items with equal times keep their input order.
func MeetingsOn[T Schedulable](items []T, date time.Time) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if OccursOn(item.Recurrence(), date) {
			out = append(out, item)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TimeOfDay() < out[j].TimeOfDay()
	})
	return out
}

// Remaining is a whole-minute countdown split into hours and minutes.
type Remaining struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

// Engine evaluates time-relative queries against an injectable clock.
type Engine[T Schedulable] struct {
	now func() time.Time
}

// NewEngine constructs an Engine. If now is nil, time.Now is used.
func NewEngine[T Schedulable](now func() time.Time) *Engine[T] {
	if now == nil {
		now = time.Now
	}
	return &Engine[T]{now: now}
}

// Now returns the engine's current time.
func (e *Engine[T]) Now() time.Time {
	return e.now()
}

// OccursOn reports whether rule selects date.
func (e *Engine[T]) OccursOn(rule Rule, date time.Time) bool {
	return OccursOn(rule, date)
}

// MeetingsOn returns the items occurring on date ordered by start time.
func (e *Engine[T]) MeetingsOn(items []T, date time.Time) []T {
	return MeetingsOn(items, date)
}

// Today returns today's items ordered by start time.
func (e *Engine[T]) Today(items []T) []T {
	return MeetingsOn(items, e.now())
}

// NextUpcoming returns the first of today's items whose start time is
// strictly later than the current HH:MM. It never looks into tomorrow.
func (e *Engine[T]) NextUpcoming(items []T) (T, bool) {
	current := FormatClock(e.now())
	for _, item := range e.Today(items) {
		if item.TimeOfDay() > current {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// TimeUntil returns the whole minutes until item starts today. It reports
// false when the start is not after now or the time is malformed.
func (e *Engine[T]) TimeUntil(item T) (Remaining, bool) {
	now := e.now()
	start, err := StartOn(item.TimeOfDay(), now)
	if err != nil || !start.After(now) {
		return Remaining{}, false
	}
	minutes := int(start.Sub(now) / time.Minute)
	return Remaining{Hours: minutes / 60, Minutes: minutes % 60}, true
}

// IsActive reports whether now falls in [start-ActiveLeadTime, start+AssumedDuration)
// for today's occurrence of item.
func (e *Engine[T]) IsActive(item T) bool {
	now := e.now()
	start, err := StartOn(item.TimeOfDay(), now)
	if err != nil {
		return false
	}
	return !now.Before(start.Add(-ActiveLeadTime)) && now.Before(start.Add(AssumedDuration))
}

// Occurrences expands item between from and to inclusive.
func (e *Engine[T]) Occurrences(item T, from, to time.Time) ([]time.Time, error) {
	return Occurrences(item.Recurrence(), item.TimeOfDay(), from, to)
}
