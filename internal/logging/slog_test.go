package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewJSONWritesStructuredLine(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSON(&buf, "debug")

	log.With("request_id", "r-1").Info(context.Background(), "book created", "book_id", "b-1")

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if line["msg"] != "book created" {
		t.Fatalf("msg = %v", line["msg"])
	}
	if line["level"] != "INFO" {
		t.Fatalf("level = %v", line["level"])
	}
	if line["request_id"] != "r-1" || line["book_id"] != "b-1" {
		t.Fatalf("missing attributes: %v", line)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSON(&buf, "warn")
	ctx := context.Background()

	log.Debug(ctx, "dbg")
	log.Info(ctx, "inf")
	log.Warn(ctx, "wrn")
	log.Error(ctx, "err")

	out := buf.String()
	if strings.Contains(out, "dbg") || strings.Contains(out, "inf") {
		t.Fatalf("debug/info should be filtered:\n%s", out)
	}
	if !strings.Contains(out, "wrn") || !strings.Contains(out, "err") {
		t.Fatalf("warn/error missing:\n%s", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestDiscardDoesNotPanic(t *testing.T) {
	log := Discard()
	log.With("k", "v").Error(context.TODO(), "ignored")
}
