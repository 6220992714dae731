package observability

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spec-kit/ticket-desk/internal/config"
)

func TestNewLoggerWritesJSONWithService(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.json")
	logger, err := newLogger(config.LoggerConfig{Level: "warn", Service: "ticket-desk"}, []string{path})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Info("dropped")
	logger.Warn("kept")
	_ = logger.Sync()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(raw, &entry); err != nil {
		t.Fatalf("expected a single json line, got %q: %v", raw, err)
	}
	if entry["message"] != "kept" || entry["service"] != "ticket-desk" || entry["level"] != "warn" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	logger, err := NewLogger(config.LoggerConfig{Level: "loud", Format: "console"})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	if !logger.Core().Enabled(0) {
		t.Fatalf("expected info level enabled")
	}
}
