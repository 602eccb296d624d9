package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, false)
	logger.Debug().Msg("hidden")
	logger.Info().Str("k", "v").Msg("shown")

	line := strings.TrimSpace(buf.String())
	if strings.Contains(line, "hidden") {
		t.Fatalf("debug line written in production mode: %s", line)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", line, err)
	}
	if entry["message"] != "shown" || entry["k"] != "v" || entry["time"] == nil {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestNewDebugConsole(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, true)
	logger.Debug().Msg("visible")
	if !strings.Contains(buf.String(), "visible") || strings.HasPrefix(buf.String(), "{") {
		t.Fatalf("expected console output, got %q", buf.String())
	}
}
