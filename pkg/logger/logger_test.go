package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		level  string
		format string
	}{
		{"debug text", "debug", "text"},
		{"info json", "info", "json"},
		{"warn text", "warn", "text"},
		{"error json", "error", "json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New(tt.level, tt.format, &buf)
			if logger == nil || logger.Logger == nil {
				t.Fatal("New() returned nil logger")
			}
			logger.Error("hello")
			if !strings.Contains(buf.String(), "hello") {
				t.Errorf("output %q does not contain message", buf.String())
			}
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New("warn", "text", &buf)
	logger.Info("quiet")
	logger.Warn("loud")

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Errorf("info record written at warn level: %q", out)
	}
	if !strings.Contains(out, "loud") {
		t.Errorf("warn record missing: %q", out)
	}
}

func TestWithHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := New("info", "json", &buf).
		WithPlatform("x86_64-unknown-linux-gnu").
		WithFile("a.h").
		WithComponent("explore").
		WithError(errors.New("bad"))
	logger.Info("tagged")

	out := buf.String()
	for _, want := range []string{`"platform":"x86_64-unknown-linux-gnu"`, `"file":"a.h"`, `"component":"explore"`, `"error":"bad"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %s", out, want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
		if tt.in != "bogus" && !ValidLevel(tt.in) {
			t.Errorf("ValidLevel(%q) = false", tt.in)
		}
	}
	if ValidLevel("bogus") {
		t.Error("ValidLevel(bogus) = true")
	}
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Error("Discard() logger is enabled at error level")
	}
}
