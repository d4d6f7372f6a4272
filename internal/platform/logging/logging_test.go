package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestNewJSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "warn", "json")
	logger.Info("dropped", "event", "ignored")
	logger.Warn("kept", "event", "proposal_window_close_skipped")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected a single json line, got %q: %v", buf.String(), err)
	}
	if line["event"] != "proposal_window_close_skipped" {
		t.Fatalf("unexpected event %v", line["event"])
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	if ParseLevel("chatty") != slog.LevelInfo {
		t.Fatalf("expected info fallback")
	}
	if ParseLevel("DEBUG") != slog.LevelDebug {
		t.Fatalf("expected debug")
	}
}
