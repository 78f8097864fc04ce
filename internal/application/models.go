package application

import (
	"time"

	"github.com/example/daylink/internal/recurrence"
)

// AppVersion is stamped on exported backups.
const AppVersion = "1.0.0"

// Platform identifies the video conferencing product behind a meeting link.
type Platform string

const (
	PlatformGoogleMeet Platform = "Google Meet"
	PlatformTeams      Platform = "Microsoft Teams"
	PlatformZoom       Platform = "Zoom"
	PlatformOther      Platform = "Other"
)

// Valid reports whether p is a known platform.
func (p Platform) Valid() bool {
	switch p {
	case PlatformGoogleMeet, PlatformTeams, PlatformZoom, PlatformOther:
		return true
	}
	return false
}

// Icon returns the icon name a front end shows for the platform.
func (p Platform) Icon() string {
	switch p {
	case PlatformGoogleMeet, PlatformZoom:
		return "video"
	case PlatformTeams:
		return "users"
	case PlatformOther:
		return "link"
	default:
		return "calendar"
	}
}

// Theme is the colour scheme preference.
type Theme string

const (
	ThemeDark   Theme = "dark"
	ThemeLight  Theme = "light"
	ThemeSystem Theme = "system"
)

// Valid reports whether t is a known theme.
func (t Theme) Valid() bool {
	return t == ThemeDark || t == ThemeLight || t == ThemeSystem
}

// Meeting is a recurring or dated video call with a join link.
type Meeting struct {
	ID            string          `json:"id"`
	Type          Platform        `json:"type"`
	Title         string          `json:"title"`
	Description   string          `json:"description,omitempty"`
	Link          string          `json:"link"`
	Time          string          `json:"time"`
	RecurringType recurrence.Kind `json:"recurringType"`
	SpecificDates []string        `json:"specificDates,omitempty"`
	SpecificDays  []string        `json:"specificDays,omitempty"`
	Order         int             `json:"order"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Recurrence converts the stored fields into a recurrence rule. Unknown
// weekday names are dropped; validation rejects them before storage.
func (m Meeting) Recurrence() recurrence.Rule {
	return buildRule(m.RecurringType, m.SpecificDays, m.SpecificDates)
}

// TimeOfDay returns the HH:MM start time.
func (m Meeting) TimeOfDay() string {
	return m.Time
}

// MeetingTemplate is a reusable starting point for new meetings.
type MeetingTemplate struct {
	ID            string          `json:"id"`
	Type          Platform        `json:"type"`
	Title         string          `json:"title"`
	Description   string          `json:"description,omitempty"`
	Time          string          `json:"time"`
	RecurringType recurrence.Kind `json:"recurringType"`
	SpecificDays  []string        `json:"specificDays,omitempty"`
}

// Recurrence converts the template's fields into a recurrence rule.
func (t MeetingTemplate) Recurrence() recurrence.Rule {
	return buildRule(t.RecurringType, t.SpecificDays, nil)
}

// TimeOfDay returns the HH:MM start time.
func (t MeetingTemplate) TimeOfDay() string {
	return t.Time
}

func buildRule(kind recurrence.Kind, days, dates []string) recurrence.Rule {
	rule := recurrence.Rule{Kind: kind}
	switch kind {
	case recurrence.KindSpecificDays:
		for _, name := range days {
			if wd, err := recurrence.ParseWeekday(name); err == nil {
				rule.Weekdays = append(rule.Weekdays, wd)
			}
		}
	case recurrence.KindSpecificDates:
		rule.Dates = append([]string(nil), dates...)
	}
	return rule
}

// NotificationPreferences controls which reminders are scheduled.
type NotificationPreferences struct {
	Enabled     bool `json:"enabled"`
	Before15Min bool `json:"before15Min"`
	Before5Min  bool `json:"before5Min"`
	AtTime      bool `json:"atTime"`
}

// Preferences holds per-profile settings.
type Preferences struct {
	Theme         Theme                   `json:"theme"`
	Notifications NotificationPreferences `json:"notifications"`
}

// DefaultPreferences returns the settings a new profile starts with.
func DefaultPreferences() Preferences {
	return Preferences{
		Theme: ThemeDark,
		Notifications: NotificationPreferences{
			Enabled:     true,
			Before15Min: true,
			Before5Min:  true,
			AtTime:      true,
		},
	}
}

// Profile is everything a user owns. It is stored encrypted under the
// user's phrase and held in memory only while logged in.
type Profile struct {
	UniquePhrase string            `json:"uniquePhrase"`
	Username     string            `json:"username,omitempty"`
	Meetings     []Meeting         `json:"meetings"`
	Templates    []MeetingTemplate `json:"templates"`
	Preferences  Preferences       `json:"preferences"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// Clone returns a deep copy of the profile.
func (p Profile) Clone() Profile {
	out := p
	out.Meetings = make([]Meeting, len(p.Meetings))
	for i, m := range p.Meetings {
		m.SpecificDates = append([]string(nil), m.SpecificDates...)
		m.SpecificDays = append([]string(nil), m.SpecificDays...)
		out.Meetings[i] = m
	}
	out.Templates = make([]MeetingTemplate, len(p.Templates))
	for i, t := range p.Templates {
		t.SpecificDays = append([]string(nil), t.SpecificDays...)
		out.Templates[i] = t
	}
	return out
}

// ExportedProfile is the backup file envelope.
type ExportedProfile struct {
	Version       string    `json:"version"`
	ExportDate    time.Time `json:"exportDate"`
	Username      string    `json:"username,omitempty"`
	EncryptedData string    `json:"encryptedData"`
}

// RegisterParams captures the inputs for creating a profile.
type RegisterParams struct {
	Phrase   string
	Username string
}

// ProfileUpdate is a shallow merge: nil fields are left untouched.
type ProfileUpdate struct {
	Username    *string
	Meetings    *[]Meeting
	Templates   *[]MeetingTemplate
	Preferences *Preferences
}
