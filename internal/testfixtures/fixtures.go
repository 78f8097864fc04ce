package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/daylink/internal/application"
	"github.com/example/daylink/internal/identity"
	"github.com/example/daylink/internal/recurrence"
)

var meetingSequence uint64

// referenceTime is a Wednesday morning in UTC.
var referenceTime = time.Date(2026, time.March, 4, 8, 0, 0, 0, time.UTC)

// ReferenceTime returns the deterministic base time used across fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// Phrases that satisfy the AAAAA-BBBBB format.
const (
	PhraseAlpha = "ABCDE-12345"
	PhraseBravo = "QWERT-67890"
)

// FastCipherParams keeps key derivation cheap enough for unit tests.
var FastCipherParams = identity.Argon2idParams{
	Memory:      1024,
	Iterations:  1,
	Parallelism: 1,
}

// NewFastCipher returns a cipher using FastCipherParams.
func NewFastCipher() *identity.Cipher {
	return identity.NewCipher(FastCipherParams)
}

// MeetingFixture describes a meeting with sensible defaults that tests can
// override through options.
type MeetingFixture struct {
	ID            string
	Type          application.Platform
	Title         string
	Description   string
	Link          string
	Time          string
	RecurringType recurrence.Kind
	SpecificDays  []string
	SpecificDates []string
	Order         int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// MeetingOption mutates a MeetingFixture.
type MeetingOption func(*MeetingFixture)

// NewMeetingFixture returns an everyday Google Meet call at 09:00.
func NewMeetingFixture(opts ...MeetingOption) MeetingFixture {
	seq := atomic.AddUint64(&meetingSequence, 1)
	base := ReferenceTime()
	fixture := MeetingFixture{
		ID:            fmt.Sprintf("meeting-%d", seq),
		Type:          application.PlatformGoogleMeet,
		Title:         fmt.Sprintf("Standup %d", seq),
		Link:          fmt.Sprintf("https://meet.google.com/abc-defg-%03d", seq%1000),
		Time:          "09:00",
		RecurringType: recurrence.KindEveryday,
		CreatedAt:     base,
		UpdatedAt:     base,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithMeetingID overrides the meeting identifier.
func WithMeetingID(id string) MeetingOption {
	return func(f *MeetingFixture) {
		f.ID = id
	}
}

// WithMeetingTitle overrides the title.
func WithMeetingTitle(title string) MeetingOption {
	return func(f *MeetingFixture) {
		f.Title = title
	}
}

// WithMeetingPlatform overrides the platform and its link.
func WithMeetingPlatform(platform application.Platform, link string) MeetingOption {
	return func(f *MeetingFixture) {
		f.Type = platform
		f.Link = link
	}
}

// WithMeetingTime overrides the HH:MM start time.
func WithMeetingTime(clock string) MeetingOption {
	return func(f *MeetingFixture) {
		f.Time = clock
	}
}

// WithMeetingKind sets a recurrence kind without selections.
func WithMeetingKind(kind recurrence.Kind) MeetingOption {
	return func(f *MeetingFixture) {
		f.RecurringType = kind
		f.SpecificDays = nil
		f.SpecificDates = nil
	}
}

// WithMeetingDays makes the meeting recur on the named weekdays.
func WithMeetingDays(days ...string) MeetingOption {
	return func(f *MeetingFixture) {
		f.RecurringType = recurrence.KindSpecificDays
		f.SpecificDays = append([]string(nil), days...)
		f.SpecificDates = nil
	}
}

// WithMeetingDates makes the meeting occur only on the given YYYY-MM-DD dates.
func WithMeetingDates(dates ...string) MeetingOption {
	return func(f *MeetingFixture) {
		f.RecurringType = recurrence.KindSpecificDates
		f.SpecificDates = append([]string(nil), dates...)
		f.SpecificDays = nil
	}
}

// Application converts the fixture into an application.Meeting.
func (f MeetingFixture) Application() application.Meeting {
	return application.Meeting{
		ID:            f.ID,
		Type:          f.Type,
		Title:         f.Title,
		Description:   f.Description,
		Link:          f.Link,
		Time:          f.Time,
		RecurringType: f.RecurringType,
		SpecificDays:  append([]string(nil), f.SpecificDays...),
		SpecificDates: append([]string(nil), f.SpecificDates...),
		Order:         f.Order,
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
	}
}

// Input converts the fixture into an application.MeetingInput.
func (f MeetingFixture) Input() application.MeetingInput {
	return application.MeetingInput{
		Type:          f.Type,
		Title:         f.Title,
		Description:   f.Description,
		Link:          f.Link,
		Time:          f.Time,
		RecurringType: f.RecurringType,
		SpecificDays:  append([]string(nil), f.SpecificDays...),
		SpecificDates: append([]string(nil), f.SpecificDates...),
	}
}

// NewProfileFixture builds a fresh profile for phrase holding meetings.
func NewProfileFixture(phrase string, meetings ...MeetingFixture) application.Profile {
	profile := application.NewProfile(phrase, "", ReferenceTime())
	for i, m := range meetings {
		meeting := m.Application()
		meeting.Order = i
		profile.Meetings = append(profile.Meetings, meeting)
	}
	return profile
}
