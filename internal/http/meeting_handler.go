package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/daylink/internal/application"
	"github.com/example/daylink/internal/recurrence"
)

type meetingService interface {
	Meetings(ctx context.Context) ([]application.Meeting, error)
	Meeting(ctx context.Context, id string) (application.Meeting, error)
	AddMeeting(ctx context.Context, input application.MeetingInput) (application.Meeting, error)
	UpdateMeeting(ctx context.Context, id string, patch application.MeetingPatch) (application.Meeting, error)
	DeleteMeeting(ctx context.Context, id string) error
	ReorderMeetings(ctx context.Context, ids []string) ([]application.Meeting, error)
	Templates(ctx context.Context) ([]application.MeetingTemplate, error)
	AddTemplate(ctx context.Context, input application.TemplateInput) (application.MeetingTemplate, error)
	DeleteTemplate(ctx context.Context, id string) error
	MeetingFromTemplate(ctx context.Context, templateID string) (application.MeetingInput, error)
}

// MeetingHandler serves the meeting and template lists of the active profile.
type MeetingHandler struct {
	service   meetingService
	responder responder
	logger    *slog.Logger
}

// NewMeetingHandler builds a MeetingHandler.
func NewMeetingHandler(service meetingService, logger *slog.Logger) *MeetingHandler {
	base := defaultLogger(logger)
	return &MeetingHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *MeetingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "MeetingHandler", operation, attrs...)
}

// List handles GET /meetings.
func (h *MeetingHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	meetings, err := h.service.Meetings(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, meetingsResponse{Meetings: nonNil(meetings)})
}

// Get handles GET /meetings/{id}.
func (h *MeetingHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := MeetingIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMeetingID)
		return
	}

	meeting, err := h.service.Meeting(r.Context(), id)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, meetingResponse{Meeting: meeting})
}

// Create handles POST /meetings. A templateId seeds the fields the body
// leaves empty.
func (h *MeetingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req meetingRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode meeting request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input := req.toInput()
	if templateID := strings.TrimSpace(req.TemplateID); templateID != "" {
		base, err := h.service.MeetingFromTemplate(r.Context(), templateID)
		if err != nil {
			h.responder.handleServiceError(r.Context(), w, err)
			return
		}
		input = overlayInput(base, input)
	}

	meeting, err := h.service.AddMeeting(r.Context(), input)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Create", "meeting_id", meeting.ID).InfoContext(r.Context(), "meeting created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, meetingResponse{Meeting: meeting})
}

// Update handles PUT /meetings/{id}.
func (h *MeetingHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := MeetingIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMeetingID)
		return
	}

	var req meetingPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Update", "meeting_id", id, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode meeting patch", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	meeting, err := h.service.UpdateMeeting(r.Context(), id, req.toPatch())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, meetingResponse{Meeting: meeting})
}

// Delete handles DELETE /meetings/{id}.
func (h *MeetingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := MeetingIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMeetingID)
		return
	}

	if err := h.service.DeleteMeeting(r.Context(), id); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Reorder handles PUT /meetings/order.
func (h *MeetingHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req reorderRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	meetings, err := h.service.ReorderMeetings(r.Context(), req.IDs)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, meetingsResponse{Meetings: nonNil(meetings)})
}

// ListTemplates handles GET /templates.
func (h *MeetingHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	templates, err := h.service.Templates(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if templates == nil {
		templates = []application.MeetingTemplate{}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, templatesResponse{Templates: templates})
}

// CreateTemplate handles POST /templates.
func (h *MeetingHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req templateRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	template, err := h.service.AddTemplate(r.Context(), req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, templateResponse{Template: template})
}

// DeleteTemplate handles DELETE /templates/{id}.
func (h *MeetingHandler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := TemplateIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTemplate)
		return
	}

	if err := h.service.DeleteTemplate(r.Context(), id); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type meetingRequest struct {
	TemplateID    string               `json:"templateId"`
	Type          application.Platform `json:"type"`
	Title         string               `json:"title"`
	Description   string               `json:"description"`
	Link          string               `json:"link"`
	Time          string               `json:"time"`
	RecurringType recurrence.Kind      `json:"recurringType"`
	SpecificDates []string             `json:"specificDates"`
	SpecificDays  []string             `json:"specificDays"`
}

func (r meetingRequest) toInput() application.MeetingInput {
	return application.MeetingInput{
		Type:          r.Type,
		Title:         strings.TrimSpace(r.Title),
		Description:   r.Description,
		Link:          strings.TrimSpace(r.Link),
		Time:          strings.TrimSpace(r.Time),
		RecurringType: r.RecurringType,
		SpecificDates: append([]string(nil), r.SpecificDates...),
		SpecificDays:  append([]string(nil), r.SpecificDays...),
	}
}

// overlayInput fills the zero fields of in from base.
func overlayInput(base, in application.MeetingInput) application.MeetingInput {
	if in.Type == "" {
		in.Type = base.Type
	}
	if in.Title == "" {
		in.Title = base.Title
	}
	if in.Description == "" {
		in.Description = base.Description
	}
	if in.Link == "" {
		in.Link = base.Link
	}
	if in.Time == "" {
		in.Time = base.Time
	}
	if in.RecurringType == "" {
		in.RecurringType = base.RecurringType
		if len(in.SpecificDays) == 0 {
			in.SpecificDays = base.SpecificDays
		}
		if len(in.SpecificDates) == 0 {
			in.SpecificDates = base.SpecificDates
		}
	}
	return in
}

type meetingPatchRequest struct {
	Type          *application.Platform `json:"type"`
	Title         *string               `json:"title"`
	Description   *string               `json:"description"`
	Link          *string               `json:"link"`
	Time          *string               `json:"time"`
	RecurringType *recurrence.Kind      `json:"recurringType"`
	SpecificDates *[]string             `json:"specificDates"`
	SpecificDays  *[]string             `json:"specificDays"`
}

func (r meetingPatchRequest) toPatch() application.MeetingPatch {
	return application.MeetingPatch{
		Type:          r.Type,
		Title:         r.Title,
		Description:   r.Description,
		Link:          r.Link,
		Time:          r.Time,
		RecurringType: r.RecurringType,
		SpecificDates: r.SpecificDates,
		SpecificDays:  r.SpecificDays,
	}
}

type reorderRequest struct {
	IDs []string `json:"ids"`
}

type templateRequest struct {
	Type          application.Platform `json:"type"`
	Title         string               `json:"title"`
	Description   string               `json:"description"`
	Time          string               `json:"time"`
	RecurringType recurrence.Kind      `json:"recurringType"`
	SpecificDays  []string             `json:"specificDays"`
}

func (r templateRequest) toInput() application.TemplateInput {
	return application.TemplateInput{
		Type:          r.Type,
		Title:         strings.TrimSpace(r.Title),
		Description:   r.Description,
		Time:          strings.TrimSpace(r.Time),
		RecurringType: r.RecurringType,
		SpecificDays:  append([]string(nil), r.SpecificDays...),
	}
}

type meetingResponse struct {
	Meeting application.Meeting `json:"meeting"`
}

type meetingsResponse struct {
	Meetings []application.Meeting `json:"meetings"`
}

type templateResponse struct {
	Template application.MeetingTemplate `json:"template"`
}

type templatesResponse struct {
	Templates []application.MeetingTemplate `json:"templates"`
}

func nonNil(meetings []application.Meeting) []application.Meeting {
	if meetings == nil {
		return []application.Meeting{}
	}
	return meetings
}
