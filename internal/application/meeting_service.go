package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/daylink/internal/identity"
	"github.com/example/daylink/internal/recurrence"
)

// MeetingCanceller drops pending reminders for a meeting.
type MeetingCanceller interface {
	CancelForMeeting(meetingID string)
}

// MeetingInput carries the editable fields of a meeting.
type MeetingInput struct {
	Type          Platform
	Title         string
	Description   string
	Link          string
	Time          string
	RecurringType recurrence.Kind
	SpecificDates []string
	SpecificDays  []string
}

// MeetingPatch is a shallow merge onto an existing meeting: nil fields are
// left untouched.
type MeetingPatch struct {
	Type          *Platform
	Title         *string
	Description   *string
	Link          *string
	Time          *string
	RecurringType *recurrence.Kind
	SpecificDates *[]string
	SpecificDays  *[]string
}

// TemplateInput carries the fields of a new template.
type TemplateInput struct {
	Type          Platform
	Title         string
	Description   string
	Time          string
	RecurringType recurrence.Kind
	SpecificDays  []string
}

// MeetingService edits the meeting and template lists of the active profile.
type MeetingService struct {
	profiles    *ProfileService
	canceller   MeetingCanceller
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewMeetingService constructs a MeetingService with the provided dependencies.
func NewMeetingService(profiles *ProfileService, canceller MeetingCanceller, idGenerator func() string, now func() time.Time) *MeetingService {
	return NewMeetingServiceWithLogger(profiles, canceller, idGenerator, now, nil)
}

// NewMeetingServiceWithLogger constructs a MeetingService with a specified logger.
func NewMeetingServiceWithLogger(profiles *ProfileService, canceller MeetingCanceller, idGenerator func() string, now func() time.Time, logger *slog.Logger) *MeetingService {
	if idGenerator == nil {
		idGenerator = identity.GenerateID
	}
	if now == nil {
		now = time.Now
	}
	return &MeetingService{
		profiles:    profiles,
		canceller:   canceller,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *MeetingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "MeetingService", operation, attrs...)
}

// Meetings returns the active profile's meetings sorted by display order.
func (s *MeetingService) Meetings(ctx context.Context) ([]Meeting, error) {
	profile, ok := s.profiles.Profile()
	if !ok {
		return nil, ErrNotLoggedIn
	}
	meetings := profile.Meetings
	sort.SliceStable(meetings, func(i, j int) bool { return meetings[i].Order < meetings[j].Order })
	return meetings, nil
}

// Meeting returns one meeting by id.
func (s *MeetingService) Meeting(ctx context.Context, id string) (Meeting, error) {
	profile, ok := s.profiles.Profile()
	if !ok {
		return Meeting{}, ErrNotLoggedIn
	}
	for _, m := range profile.Meetings {
		if m.ID == id {
			return m, nil
		}
	}
	return Meeting{}, ErrNotFound
}

// AddMeeting appends a meeting with a fresh id at the end of the display order.
func (s *MeetingService) AddMeeting(ctx context.Context, input MeetingInput) (meeting Meeting, err error) {
	logger := s.loggerWith(ctx, "AddMeeting")
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "add meeting failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "meeting added", "meeting_id", meeting.ID)
	}()

	now := s.now()
	meeting = Meeting{
		ID:            s.idGenerator(),
		Type:          input.Type,
		Title:         strings.TrimSpace(input.Title),
		Description:   strings.TrimSpace(input.Description),
		Link:          strings.TrimSpace(input.Link),
		Time:          strings.TrimSpace(input.Time),
		RecurringType: input.RecurringType,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	setSelections(&meeting, input.SpecificDays, input.SpecificDates)

	_, err = s.profiles.Edit(ctx, func(next *Profile) error {
		meeting.Order = len(next.Meetings)
		if verr := validateMeeting(meeting); verr.HasErrors() {
			return verr
		}
		next.Meetings = append(next.Meetings, meeting)
		return nil
	})
	if err != nil && !errors.Is(err, ErrPersistFailed) {
		return Meeting{}, err
	}
	return meeting, err
}

// UpdateMeeting merges patch into the meeting with id. Pending reminders
// for the meeting are cancelled before the change is applied.
func (s *MeetingService) UpdateMeeting(ctx context.Context, id string, patch MeetingPatch) (meeting Meeting, err error) {
	logger := s.loggerWith(ctx, "UpdateMeeting", "meeting_id", id)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "update meeting failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "meeting updated")
	}()

	_, err = s.profiles.Edit(ctx, func(next *Profile) error {
		idx := indexOfMeeting(next.Meetings, id)
		if idx < 0 {
			return ErrNotFound
		}
		updated := next.Meetings[idx]
		applyPatch(&updated, patch)
		updated.UpdatedAt = s.now()
		if verr := validateMeeting(updated); verr.HasErrors() {
			return verr
		}
		s.cancel(id)
		next.Meetings[idx] = updated
		meeting = updated
		return nil
	})
	if err != nil && !errors.Is(err, ErrPersistFailed) {
		return Meeting{}, err
	}
	return meeting, err
}

// DeleteMeeting removes the meeting with id after cancelling its reminders.
func (s *MeetingService) DeleteMeeting(ctx context.Context, id string) (err error) {
	logger := s.loggerWith(ctx, "DeleteMeeting", "meeting_id", id)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "delete meeting failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "meeting deleted")
	}()

	_, err = s.profiles.Edit(ctx, func(next *Profile) error {
		idx := indexOfMeeting(next.Meetings, id)
		if idx < 0 {
			return ErrNotFound
		}
		s.cancel(id)
		next.Meetings = append(next.Meetings[:idx:idx], next.Meetings[idx+1:]...)
		return nil
	})
	return err
}

// ReorderMeetings arranges meetings in the order of ids and rewrites each
// meeting's order to its index. ids must name every meeting exactly once.
func (s *MeetingService) ReorderMeetings(ctx context.Context, ids []string) (meetings []Meeting, err error) {
	logger := s.loggerWith(ctx, "ReorderMeetings", "count", len(ids))
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "reorder failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "meetings reordered")
	}()

	var profile Profile
	profile, err = s.profiles.Edit(ctx, func(next *Profile) error {
		byID := make(map[string]Meeting, len(next.Meetings))
		for _, m := range next.Meetings {
			byID[m.ID] = m
		}
		verr := &ValidationError{}
		if len(ids) != len(next.Meetings) {
			verr.add("ids", fmt.Sprintf("expected %d ids, got %d", len(next.Meetings), len(ids)))
		}
		seen := make(map[string]struct{}, len(ids))
		ordered := make([]Meeting, 0, len(ids))
		for i, id := range ids {
			m, ok := byID[id]
			if !ok {
				verr.add(fmt.Sprintf("ids[%d]", i), "unknown meeting id")
				continue
			}
			if _, dup := seen[id]; dup {
				verr.add(fmt.Sprintf("ids[%d]", i), "duplicate meeting id")
				continue
			}
			seen[id] = struct{}{}
			m.Order = i
			ordered = append(ordered, m)
		}
		if verr.HasErrors() {
			return verr
		}
		next.Meetings = ordered
		return nil
	})
	if err != nil && !errors.Is(err, ErrPersistFailed) {
		return nil, err
	}
	return profile.Meetings, err
}

// Templates returns the active profile's templates.
func (s *MeetingService) Templates(ctx context.Context) ([]MeetingTemplate, error) {
	profile, ok := s.profiles.Profile()
	if !ok {
		return nil, ErrNotLoggedIn
	}
	return profile.Templates, nil
}

// AddTemplate appends a template with a fresh id.
func (s *MeetingService) AddTemplate(ctx context.Context, input TemplateInput) (template MeetingTemplate, err error) {
	logger := s.loggerWith(ctx, "AddTemplate")
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "add template failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "template added", "template_id", template.ID)
	}()

	template = MeetingTemplate{
		ID:            s.idGenerator(),
		Type:          input.Type,
		Title:         strings.TrimSpace(input.Title),
		Description:   strings.TrimSpace(input.Description),
		Time:          strings.TrimSpace(input.Time),
		RecurringType: input.RecurringType,
	}
	if input.RecurringType == recurrence.KindSpecificDays {
		template.SpecificDays = append([]string(nil), input.SpecificDays...)
	}
	if verr := validateTemplate(template); verr.HasErrors() {
		return MeetingTemplate{}, verr
	}

	_, err = s.profiles.Edit(ctx, func(next *Profile) error {
		next.Templates = append(next.Templates, template)
		return nil
	})
	if err != nil && !errors.Is(err, ErrPersistFailed) {
		return MeetingTemplate{}, err
	}
	return template, err
}

// DeleteTemplate removes the template with id.
func (s *MeetingService) DeleteTemplate(ctx context.Context, id string) (err error) {
	logger := s.loggerWith(ctx, "DeleteTemplate", "template_id", id)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "delete template failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "template deleted")
	}()

	_, err = s.profiles.Edit(ctx, func(next *Profile) error {
		for i, t := range next.Templates {
			if t.ID == id {
				next.Templates = append(next.Templates[:i:i], next.Templates[i+1:]...)
				return nil
			}
		}
		return ErrNotFound
	})
	return err
}

// MeetingFromTemplate prefills a meeting input from a template. The link
// still has to be supplied by the caller.
func (s *MeetingService) MeetingFromTemplate(ctx context.Context, templateID string) (MeetingInput, error) {
	profile, ok := s.profiles.Profile()
	if !ok {
		return MeetingInput{}, ErrNotLoggedIn
	}
	for _, t := range profile.Templates {
		if t.ID == templateID {
			return MeetingInput{
				Type:          t.Type,
				Title:         t.Title,
				Description:   t.Description,
				Time:          t.Time,
				RecurringType: t.RecurringType,
				SpecificDays:  append([]string(nil), t.SpecificDays...),
			}, nil
		}
	}
	return MeetingInput{}, ErrNotFound
}

func (s *MeetingService) cancel(id string) {
	if s.canceller != nil {
		s.canceller.CancelForMeeting(id)
	}
}

func indexOfMeeting(meetings []Meeting, id string) int {
	for i, m := range meetings {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// setSelections keeps only the selection matching the recurrence kind.
func setSelections(m *Meeting, days, dates []string) {
	m.SpecificDays = nil
	m.SpecificDates = nil
	switch m.RecurringType {
	case recurrence.KindSpecificDays:
		m.SpecificDays = append([]string(nil), days...)
	case recurrence.KindSpecificDates:
		m.SpecificDates = append([]string(nil), dates...)
	}
}

func applyPatch(m *Meeting, p MeetingPatch) {
	if p.Type != nil {
		m.Type = *p.Type
	}
	if p.Title != nil {
		m.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		m.Description = strings.TrimSpace(*p.Description)
	}
	if p.Link != nil {
		m.Link = strings.TrimSpace(*p.Link)
	}
	if p.Time != nil {
		m.Time = strings.TrimSpace(*p.Time)
	}
	if p.RecurringType != nil {
		m.RecurringType = *p.RecurringType
	}
	days, dates := m.SpecificDays, m.SpecificDates
	if p.SpecificDays != nil {
		days = *p.SpecificDays
	}
	if p.SpecificDates != nil {
		dates = *p.SpecificDates
	}
	setSelections(m, days, dates)
}
