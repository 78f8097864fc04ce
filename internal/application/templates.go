package application

import "github.com/example/daylink/internal/recurrence"

// DefaultTemplates returns the templates every new profile starts with.
func DefaultTemplates() []MeetingTemplate {
	return []MeetingTemplate{
		{
			ID:            "template-1",
			Type:          PlatformGoogleMeet,
			Title:         "Daily Standup",
			Description:   "Daily team sync-up meeting",
			Time:          "09:00",
			RecurringType: recurrence.KindWeekdays,
		},
		{
			ID:            "template-2",
			Type:          PlatformTeams,
			Title:         "Weekly Team Meeting",
			Description:   "Weekly team discussion and updates",
			Time:          "10:00",
			RecurringType: recurrence.KindSpecificDays,
			SpecificDays:  []string{"Monday"},
		},
		{
			ID:            "template-3",
			Type:          PlatformZoom,
			Title:         "One-on-One",
			Description:   "Weekly 1:1 meeting",
			Time:          "14:00",
			RecurringType: recurrence.KindSpecificDays,
			SpecificDays:  []string{"Wednesday"},
		},
		{
			ID:            "template-4",
			Type:          PlatformGoogleMeet,
			Title:         "Sprint Planning",
			Description:   "Bi-weekly sprint planning session",
			Time:          "11:00",
			RecurringType: recurrence.KindSpecificDays,
			SpecificDays:  []string{"Monday"},
		},
		{
			ID:            "template-5",
			Type:          PlatformTeams,
			Title:         "Sprint Retrospective",
			Description:   "End of sprint retrospective",
			Time:          "15:00",
			RecurringType: recurrence.KindSpecificDays,
			SpecificDays:  []string{"Friday"},
		},
	}
}
