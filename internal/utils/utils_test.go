package utils

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestParseLevelDefaultsToWarn(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"TRACE":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"off":     LevelOff,
		"":        slog.LevelWarn,
		"verbose": slog.LevelWarn,
	}
	for input, want := range cases {
		if got := ParseLevel(input); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestNewLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("warn", true, &buf)
	logger.Info("hidden")
	logger.Warn("shown", slog.Int("component", 5))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info entry should be filtered: %s", out)
	}
	if !strings.Contains(out, `"component":5`) {
		t.Fatalf("expected structured warn entry, got %s", out)
	}
}

func TestAppErrorUnwraps(t *testing.T) {
	sentinel := errors.New("boom")
	err := NewAppError("decode", "bad body", sentinel)
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected errors.Is to match wrapped sentinel")
	}
	if Op(err) != "decode" {
		t.Fatalf("unexpected op: %q", Op(err))
	}
	if err.Error() != "decode: bad body: boom" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}

func TestActiveFor(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	now := start.Add(30 * time.Minute)

	if got := ActiveFor(start, time.Time{}, now); got != 30*time.Minute {
		t.Fatalf("firing alert: got %v", got)
	}
	if got := ActiveFor(start, start.Add(10*time.Minute), now); got != 10*time.Minute {
		t.Fatalf("resolved alert: got %v", got)
	}
	if got := ActiveFor(time.Time{}, time.Time{}, now); got != 0 {
		t.Fatalf("unknown start: got %v", got)
	}
}

func TestParseRFC3339(t *testing.T) {
	if _, err := ParseRFC3339(""); err == nil {
		t.Fatalf("expected error for empty value")
	}
	ts, err := ParseRFC3339("2024-01-01T10:00:00.123Z")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ts.Nanosecond() != 123000000 {
		t.Fatalf("fractional seconds lost: %v", ts)
	}
}

func TestLoggerFromContext(t *testing.T) {
	fallback := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	if got := LoggerFromContext(context.Background(), fallback); got != fallback {
		t.Fatalf("expected fallback logger")
	}
	scoped := fallback.With(slog.String("request_id", "abc"))
	ctx := ContextWithLogger(context.Background(), scoped)
	if got := LoggerFromContext(ctx, fallback); got != scoped {
		t.Fatalf("expected scoped logger")
	}
	if LoggerFromContext(context.Background(), nil) == nil {
		t.Fatalf("expected default logger when no fallback")
	}
}
