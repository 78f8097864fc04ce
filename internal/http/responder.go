package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/example/daylink/internal/application"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	errBadRequestBody   = errors.New("invalid request body")
	errInvalidMeetingID = errors.New("invalid meeting id")
	errInvalidTemplate  = errors.New("invalid template id")
	errInvalidDate      = errors.New("date must be YYYY-MM-DD")
	errInvalidRange     = errors.New("from and to must be YYYY-MM-DD with from <= to")
	errRangeTooLong     = errors.New("range may span at most 366 days")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := statusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// handleServiceError maps application sentinels onto HTTP statuses.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	status, code := statusFor(err)
	logger := r.loggerFor(ctx)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, "service failed", "status", status, "error", err, "error_kind", code)
	} else {
		logger.InfoContext(ctx, "service rejected request", "status", status, "error_kind", code)
	}

	resp := errorResponse{ErrorCode: strings.ToUpper(code), Message: statusMessage(status)}
	var vErr *application.ValidationError
	switch {
	case errors.As(err, &vErr):
		resp.Errors = vErr.FieldErrors
	case status < http.StatusInternalServerError:
		resp.Message = strings.TrimPrefix(err.Error(), "application: ")
	}
	r.writeJSON(ctx, w, status, resp)
}

func statusFor(err error) (int, string) {
	kind := application.ErrorKind(err)
	switch kind {
	case "invalid_phrase", "invalid_backup":
		return http.StatusBadRequest, kind
	case "profile_not_found", "not_logged_in":
		return http.StatusUnauthorized, kind
	case "not_found":
		return http.StatusNotFound, kind
	case "phrase_in_use":
		return http.StatusConflict, kind
	case "validation":
		return http.StatusUnprocessableEntity, kind
	default:
		return http.StatusInternalServerError, kind
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func statusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "the request is malformed"
	case http.StatusUnauthorized:
		return "log in with your phrase first"
	case http.StatusNotFound:
		return "the requested resource does not exist"
	case http.StatusConflict:
		return "the request conflicts with existing data"
	case http.StatusUnprocessableEntity:
		return "some fields are invalid"
	default:
		return "internal server error"
	}
}

// decodeJSON reads a JSON body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
