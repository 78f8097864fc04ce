package http

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type fakeSessionChecker struct {
	authenticated bool
}

func (f fakeSessionChecker) IsAuthenticated() bool {
	return f.authenticated
}

func TestRequireSession(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		checker        SessionChecker
		expectedStatus int
		expectNext     bool
	}{
		{name: "no checker", checker: nil, expectedStatus: http.StatusUnauthorized},
		{name: "logged out", checker: fakeSessionChecker{}, expectedStatus: http.StatusUnauthorized},
		{name: "logged in", checker: fakeSessionChecker{authenticated: true}, expectedStatus: http.StatusNoContent, expectNext: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			called := false
			handler := RequireSession(tc.checker, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusNoContent)
			}))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))

			if rec.Code != tc.expectedStatus {
				t.Fatalf("expected status %d, got %d", tc.expectedStatus, rec.Code)
			}
			if called != tc.expectNext {
				t.Fatalf("expected next called=%v, got %v", tc.expectNext, called)
			}
			if !tc.expectNext && !strings.Contains(rec.Body.String(), "NOT_LOGGED_IN") {
				t.Fatalf("expected NOT_LOGGED_IN code, got %s", rec.Body.String())
			}
		})
	}
}

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	t.Run("assigns a request id and exposes the logger", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))

		var seenID string
		handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if LoggerFromContext(r.Context()) == nil {
				t.Errorf("expected request logger in context")
			}
			seenID, _ = RequestIDFromContext(r.Context())
			w.WriteHeader(http.StatusTeapot)
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		header := rec.Header().Get(RequestIDHeader)
		if header == "" || header != seenID {
			t.Fatalf("expected matching request id, header=%q context=%q", header, seenID)
		}
		out := buf.String()
		if !strings.Contains(out, `"request_id":"`+header+`"`) || !strings.Contains(out, `"status":418`) {
			t.Fatalf("expected completion log with id and status, got %s", out)
		}
	})

	t.Run("reuses an inbound request id", func(t *testing.T) {
		t.Parallel()

		handler := RequestLogger(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if got := rec.Header().Get(RequestIDHeader); got != "abc-123" {
			t.Fatalf("expected inbound id to be reused, got %q", got)
		}
	})
}

func TestRecoverer(t *testing.T) {
	t.Parallel()

	handler := Recoverer(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
