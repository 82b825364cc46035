package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestLoggerFromContextAddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf, "json", "debug")
	t.Cleanup(func() { Setup(&bytes.Buffer{}, "json", "info") })

	ctx := WithRequestID(context.Background(), "req-42")
	LoggerFromContext(ctx).Info("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if line["request_id"] != "req-42" {
		t.Fatalf("request_id = %v", line["request_id"])
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSetupTextFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf, "text", "warn")
	t.Cleanup(func() { Setup(&bytes.Buffer{}, "json", "info") })

	if Logger() != l {
		t.Fatal("Setup should replace the global logger")
	}
	WithFields("component", "test").Info("dropped")
	WithFields("component", "test").Warn("kept")

	out := buf.String()
	if bytes.Contains(buf.Bytes(), []byte("dropped")) {
		t.Fatalf("info line logged at warn level: %s", out)
	}
	if !bytes.Contains(buf.Bytes(), []byte("msg=kept")) || !bytes.Contains(buf.Bytes(), []byte("component=test")) {
		t.Fatalf("unexpected text output: %s", out)
	}
}
