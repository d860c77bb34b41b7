package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"", zerolog.InfoLevel},
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"disabled", zerolog.Disabled},
		{"loud", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := (Logger{Level: tt.input}).level(); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := Logger{Format: "json"}.New(&buf)
	l.Info().Int("code", 4326).Msg("resolved")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected a JSON line, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "resolved" {
		t.Errorf("expected message 'resolved', got %v", entry["message"])
	}
	if entry["code"] != float64(4326) {
		t.Errorf("expected code 4326, got %v", entry["code"])
	}
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	l := Logger{Format: "console", NoColor: true}.New(&buf)
	l.Warn().Int("line", 2).Msg("WKT line failed")

	out := buf.String()
	if !strings.Contains(out, "WRN") || !strings.Contains(out, "WKT line failed") || !strings.Contains(out, "line=2") {
		t.Errorf("unexpected console output %q", out)
	}
}
