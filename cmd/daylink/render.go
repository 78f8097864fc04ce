package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/example/daylink/internal/application"
	"github.com/example/daylink/internal/recurrence"
	"github.com/example/daylink/internal/scheduler"
)

// palette holds the terminal styles for one output stream. Colours are
// dropped automatically when the stream is not a terminal.
type palette struct {
	title  lipgloss.Style
	dim    lipgloss.Style
	accent lipgloss.Style
	live   lipgloss.Style
	warn   lipgloss.Style
	box    lipgloss.Style
}

func newPalette(w io.Writer, theme application.Theme) palette {
	r := lipgloss.NewRenderer(w)
	switch theme {
	case application.ThemeLight:
		r.SetHasDarkBackground(false)
	case application.ThemeDark:
		r.SetHasDarkBackground(true)
	}

	border := lipgloss.AdaptiveColor{Light: "250", Dark: "238"}
	return palette{
		title:  r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "25", Dark: "86"}).Bold(true),
		dim:    r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "243", Dark: "245"}),
		accent: r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "90", Dark: "212"}),
		live:   r.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		warn:   r.NewStyle().Foreground(lipgloss.Color("214")),
		box:    r.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(border).Padding(0, 1),
	}
}

type dayView struct {
	Username  string
	Now       time.Time
	Date      time.Time
	Meetings  []application.Meeting
	Conflicts []scheduler.Conflict
}

func (v dayView) isToday() bool {
	return recurrence.DateKey(v.Now) == recurrence.DateKey(v.Date)
}

func renderDay(w io.Writer, p palette, v dayView) {
	engine := recurrence.NewEngine[application.Meeting](func() time.Time { return v.Now })

	header := v.Date.Format("Monday, 2 January 2006")
	if v.isToday() {
		greeting := recurrence.Greeting(v.Now)
		if v.Username != "" {
			greeting += ", " + v.Username
		}
		header = greeting + "\n" + p.dim.Render(header)
	}
	lines := []string{p.title.Render(header), ""}

	if len(v.Meetings) == 0 {
		lines = append(lines, p.dim.Render("No meetings scheduled."))
	}
	for i, m := range v.Meetings {
		if i > 0 {
			lines = append(lines, "")
		}
		heading := fmt.Sprintf("%8s  %s", recurrence.DisplayClock(m.Time), m.Title)
		lines = append(lines, p.accent.Render(heading)+"  "+p.dim.Render(string(m.Type)+" · "+recurrence.Describe(m.Recurrence())))
		lines = append(lines, "          "+m.Link)
		if v.isToday() {
			if engine.IsActive(m) {
				lines = append(lines, "          "+p.live.Render("● live now"))
			} else if left, ok := engine.TimeUntil(m); ok {
				lines = append(lines, "          "+p.dim.Render("starts in "+formatRemaining(left)))
			}
		}
		for _, c := range scheduler.ConflictsFor(v.Conflicts, m.ID) {
			other := c.WithTitle
			if c.WithMeetingID == m.ID {
				other = c.Title
			}
			lines = append(lines, "          "+p.warn.Render(fmt.Sprintf("! overlaps %s by %s", other, shortDuration(c.Overlap))))
		}
	}

	fmt.Fprintln(w, p.box.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
}

func renderNext(w io.Writer, p palette, now time.Time, m application.Meeting, ok bool) {
	if !ok {
		fmt.Fprintln(w, p.dim.Render("No more meetings today."))
		return
	}
	engine := recurrence.NewEngine[application.Meeting](func() time.Time { return now })
	when := recurrence.DisplayClock(m.Time)
	if left, ok := engine.TimeUntil(m); ok {
		when += " (in " + formatRemaining(left) + ")"
	}
	fmt.Fprintln(w, p.title.Render(m.Title)+"  "+p.dim.Render(when))
	fmt.Fprintln(w, m.Link)
}

func renderMeetingList(w io.Writer, p palette, meetings []application.Meeting) {
	if len(meetings) == 0 {
		fmt.Fprintln(w, p.dim.Render("No meetings yet. Add one with `daylink add`."))
		return
	}
	for _, m := range meetings {
		schedule := recurrence.Describe(m.Recurrence())
		if m.RecurringType == recurrence.KindSpecificDates {
			schedule = strings.Join(m.SpecificDates, ", ")
		}
		fmt.Fprintf(w, "%s  %s %s\n", p.dim.Render(m.ID), p.accent.Render(recurrence.DisplayClock(m.Time)), m.Title)
		fmt.Fprintf(w, "    %s · %s · %s\n", m.Type, schedule, m.Link)
	}
}

func formatRemaining(r recurrence.Remaining) string {
	switch {
	case r.Hours > 0 && r.Minutes > 0:
		return fmt.Sprintf("%dh %dm", r.Hours, r.Minutes)
	case r.Hours > 0:
		return fmt.Sprintf("%dh", r.Hours)
	default:
		return fmt.Sprintf("%dm", r.Minutes)
	}
}

func shortDuration(d time.Duration) string {
	return formatRemaining(recurrence.Remaining{Hours: int(d.Hours()), Minutes: int(d.Minutes()) % 60})
}
