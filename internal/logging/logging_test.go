package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("json handler honours level", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := New("warn", "JSON", &buf)
		logger.Info("hidden")
		logger.Warn("shown", slog.String("key", "value"))

		out := buf.String()
		if strings.Contains(out, "hidden") {
			t.Fatalf("info record should be filtered: %s", out)
		}
		if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"key":"value"`) {
			t.Fatalf("expected json record, got %s", out)
		}
	})

	t.Run("text handler is the fallback", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		New("", "", &buf).Info("hello")
		if !strings.Contains(buf.String(), "msg=hello") {
			t.Fatalf("expected text record, got %s", buf.String())
		}
	})
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for input, want := range tests {
		if got := ParseLevel(input); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestContextLogger(t *testing.T) {
	t.Parallel()

	if FromContext(context.Background()) != nil {
		t.Fatalf("expected no logger on a bare context")
	}
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := ContextWithLogger(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Fatalf("expected logger to round trip through context")
	}
	if ContextWithLogger(ctx, nil) != ctx {
		t.Fatalf("nil logger should leave context untouched")
	}
}
