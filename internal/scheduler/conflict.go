// Package scheduler reports meetings whose assumed time windows collide.
package scheduler

import (
	"time"

	"github.com/example/daylink/internal/application"
	"github.com/example/daylink/internal/recurrence"
)

// Conflict details two meetings on the same day whose windows overlap.
type Conflict struct {
	MeetingID     string        `json:"meetingId"`
	Title         string        `json:"title"`
	WithMeetingID string        `json:"withMeetingId"`
	WithTitle     string        `json:"withTitle"`
	Start         time.Time     `json:"start"`
	WithStart     time.Time     `json:"withStart"`
	Overlap       time.Duration `json:"overlap"`
}

type window struct {
	meeting application.Meeting
	start   time.Time
	end     time.Time
}

// DetectConflicts returns every pair of meetings occurring on date whose
// [start, start+AssumedDuration) windows intersect. Pairs are ordered by the
// earlier meeting's start; meetings with malformed times are ignored.
func DetectConflicts(meetings []application.Meeting, date time.Time) []Conflict {
	day := recurrence.MeetingsOn(meetings, date)

	windows := make([]window, 0, len(day))
	for _, m := range day {
		start, err := recurrence.StartOn(m.Time, date)
		if err != nil {
			continue
		}
		windows = append(windows, window{meeting: m, start: start, end: start.Add(recurrence.AssumedDuration)})
	}

	var conflicts []Conflict
	for i := range windows {
		for j := i + 1; j < len(windows); j++ {
			a, b := windows[i], windows[j]
			if !b.start.Before(a.end) {
				break
			}
			end := a.end
			if b.end.Before(end) {
				end = b.end
			}
			conflicts = append(conflicts, Conflict{
				MeetingID:     a.meeting.ID,
				Title:         a.meeting.Title,
				WithMeetingID: b.meeting.ID,
				WithTitle:     b.meeting.Title,
				Start:         a.start,
				WithStart:     b.start,
				Overlap:       end.Sub(b.start),
			})
		}
	}
	return conflicts
}

// ConflictsFor returns the conflicts involving meetingID.
func ConflictsFor(conflicts []Conflict, meetingID string) []Conflict {
	var out []Conflict
	for _, c := range conflicts {
		if c.MeetingID == meetingID || c.WithMeetingID == meetingID {
			out = append(out, c)
		}
	}
	return out
}
