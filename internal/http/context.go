package http

import (
	"context"
	"log/slog"

	"github.com/example/daylink/internal/logging"
)

type contextKey string

const (
	meetingIDContextKey  contextKey = "meeting_id"
	templateIDContextKey contextKey = "template_id"
	requestIDContextKey  contextKey = "request_id"
)

// ContextWithLogger attaches a request scoped logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext returns the request scoped logger, if any.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}

// ContextWithMeetingID injects the meeting identifier resolved from the request path.
func ContextWithMeetingID(ctx context.Context, meetingID string) context.Context {
	return context.WithValue(ctx, meetingIDContextKey, meetingID)
}

// MeetingIDFromContext extracts a meeting identifier previously associated with the context.
func MeetingIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(meetingIDContextKey).(string)
	return id, ok
}

// ContextWithTemplateID injects the template identifier resolved from the request path.
func ContextWithTemplateID(ctx context.Context, templateID string) context.Context {
	return context.WithValue(ctx, templateIDContextKey, templateID)
}

// TemplateIDFromContext extracts a template identifier previously associated with the context.
func TemplateIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(templateIDContextKey).(string)
	return id, ok
}

// RequestIDFromContext returns the id assigned by RequestLogger.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDContextKey).(string)
	return id, ok
}
