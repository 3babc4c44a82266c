package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

type recordingLogger struct {
	lines []string
}

func (r *recordingLogger) Debug(format string, args ...any) { r.add("DEBUG", format, args...) }
func (r *recordingLogger) Info(format string, args ...any)  { r.add("INFO", format, args...) }
func (r *recordingLogger) Warn(format string, args ...any)  { r.add("WARN", format, args...) }
func (r *recordingLogger) Error(format string, args ...any) { r.add("ERROR", format, args...) }

func (r *recordingLogger) add(level, format string, args ...any) {
	r.lines = append(r.lines, level+" "+format)
}

func TestOrNopHandlesTypedNilPointers(t *testing.T) {
	var rec *recordingLogger
	var logger Logger = rec
	if !IsNil(logger) {
		t.Fatalf("expected typed nil pointer to be detected")
	}
	safe := OrNop(logger)
	if IsNil(safe) {
		t.Fatalf("expected OrNop to return a usable logger")
	}
	safe.Info("hello %s", "world")
}

func TestFromSlogFormatsMessages(t *testing.T) {
	buf := &bytes.Buffer{}
	base := slog.New(slog.NewTextHandler(buf, nil))

	logger := FromSlog(base, "settings")
	logger.Info("hello %s", "world")

	out := buf.String()
	if !strings.Contains(out, "hello world") {
		t.Fatalf("expected formatted message in output, got %q", out)
	}
	if !strings.Contains(out, "component=settings") {
		t.Fatalf("expected component attribute, got %q", out)
	}
}

func TestConfigureJSONRespectsLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	Configure(LogConfig{Level: "warn", Format: "json", Output: buf})
	t.Cleanup(func() { Configure(LogConfig{}) })

	logger := NewComponentLogger("webui")
	logger.Info("dropped")
	logger.Warn("kept %d", 1)

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Fatalf("info line should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, `"msg":"kept 1"`) {
		t.Fatalf("expected json warn line, got %q", out)
	}
}

func TestMultiFlattensAndSkipsNil(t *testing.T) {
	a := &recordingLogger{}
	b := &recordingLogger{}
	var missing *recordingLogger

	logger := Multi(a, Multi(b, missing), nil)
	logger.Warn("x")

	if len(a.lines) != 1 || len(b.lines) != 1 {
		t.Fatalf("expected both loggers to receive one line, got %v / %v", a.lines, b.lines)
	}
	if Multi() == nil {
		t.Fatalf("expected Multi() to return a nop logger")
	}
	if got := Multi(a); got != Logger(a) {
		t.Fatalf("expected single logger to be returned as-is")
	}
}

func TestWithSessionPrefixesLines(t *testing.T) {
	rec := &recordingLogger{}
	ctx := ContextWithSessionID(context.Background(), "abc")

	FromContext(ctx, rec).Info("selected %s", "m")
	FromContext(context.Background(), rec).Info("plain")

	if len(rec.lines) != 2 {
		t.Fatalf("expected two lines, got %v", rec.lines)
	}
	if rec.lines[0] != "INFO session=abc selected %s" {
		t.Fatalf("unexpected prefixed line %q", rec.lines[0])
	}
	if rec.lines[1] != "INFO plain" {
		t.Fatalf("unexpected plain line %q", rec.lines[1])
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
