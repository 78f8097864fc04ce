// Package ics converts meetings to and from iCalendar documents.
package ics

import (
	"errors"
	"fmt"
	"sort"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/example/daylink/internal/application"
	"github.com/example/daylink/internal/recurrence"
)

// floatingLayout renders local date-times without a zone, so events keep
// their wall-clock time wherever the calendar is opened.
const floatingLayout = "20060102T150405"

// platformProperty keeps the exact platform for round trips.
var platformProperty = ical.ComponentProperty("X-DAYLINK-PLATFORM")

// UIDSuffix is appended to meeting ids to form event UIDs.
const UIDSuffix = "@daylink"

// DefaultProductID identifies documents written by Export.
const DefaultProductID = "-//daylink//meetings//EN"

// ExportOptions tunes Export.
type ExportOptions struct {
	ProductID string
	// Stamp is written as DTSTAMP; the zero value uses time.Now.
	Stamp time.Time
}

// Export renders one VEVENT per meeting. Repeating meetings start on the
// first matching day on or after anchor; dated meetings list every date.
func Export(meetings []application.Meeting, anchor time.Time, opts ExportOptions) ([]byte, error) {
	if opts.ProductID == "" {
		opts.ProductID = DefaultProductID
	}
	if opts.Stamp.IsZero() {
		opts.Stamp = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(opts.ProductID)

	for _, m := range meetings {
		if err := addEvent(cal, m, anchor, opts.Stamp); err != nil {
			return nil, fmt.Errorf("ics: meeting %s: %w", m.ID, err)
		}
	}
	return []byte(cal.Serialize()), nil
}

func addEvent(cal *ical.Calendar, m application.Meeting, anchor, stamp time.Time) error {
	rule := m.Recurrence()
	if err := rule.Validate(); err != nil {
		return err
	}

	start, rdates, err := firstStart(rule, m.Time, anchor)
	if err != nil {
		return err
	}

	event := cal.AddEvent(m.ID + UIDSuffix)
	event.SetDtStampTime(stamp.UTC())
	event.SetSummary(m.Title)
	if m.Description != "" {
		event.SetDescription(m.Description)
	}
	if m.Link != "" {
		event.SetURL(m.Link)
	}
	event.SetProperty(ical.ComponentPropertyDtStart, start.Format(floatingLayout))
	event.SetProperty(ical.ComponentPropertyDtEnd, start.Add(recurrence.AssumedDuration).Format(floatingLayout))
	event.SetProperty(platformProperty, string(m.Type))

	if value, ok := rule.RRule(); ok {
		event.AddRrule(value)
	}
	for _, at := range rdates {
		event.AddRdate(at.Format(floatingLayout))
	}
	return nil
}

// firstStart picks DTSTART and any additional RDATE instants for rule.
func firstStart(rule recurrence.Rule, clock string, anchor time.Time) (time.Time, []time.Time, error) {
	if rule.Kind == recurrence.KindSpecificDates {
		dates := append([]string(nil), rule.Dates...)
		sort.Strings(dates)
		var starts []time.Time
		for _, d := range dates {
			day, err := time.ParseInLocation(recurrence.DateLayout, d, anchor.Location())
			if err != nil {
				return time.Time{}, nil, recurrence.ErrInvalidDate
			}
			at, err := recurrence.StartOn(clock, day)
			if err != nil {
				return time.Time{}, nil, err
			}
			starts = append(starts, at)
		}
		return starts[0], starts[1:], nil
	}

	for i := 0; i < 7; i++ {
		day := anchor.AddDate(0, 0, i)
		if recurrence.OccursOn(rule, day) {
			at, err := recurrence.StartOn(clock, day)
			return at, nil, err
		}
	}
	return time.Time{}, nil, errors.New("ics: rule never occurs")
}
