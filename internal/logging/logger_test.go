package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "teled.log")

	logger, err := New(Options{Path: path, Session: "work", Level: "debug"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Named("media").Debug("page applied")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := strings.TrimSpace(string(data))
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log line is not JSON: %q", line)
	}
	if entry["session"] != "work" {
		t.Errorf("session = %v, want work", entry["session"])
	}
	if entry["logger"] != "media" {
		t.Errorf("logger = %v, want media", entry["logger"])
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(Options{Path: filepath.Join(t.TempDir(), "x.log"), Level: "chatty"})
	if err == nil {
		t.Fatal("New() expected error for unknown level")
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("OrNop(nil) returned nil")
	}
}
