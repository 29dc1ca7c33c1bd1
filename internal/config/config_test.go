package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	cfg := &Config{DefaultSession: "work", PageSize: 50, SearchTimeout: Duration{3 * time.Second}}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.DefaultSession != "work" {
		t.Errorf("DefaultSession = %q, want %q", loaded.DefaultSession, "work")
	}
	if loaded.PageSize != 50 {
		t.Errorf("PageSize = %d, want 50", loaded.PageSize)
	}
	if loaded.SearchTimeout.Duration != 3*time.Second {
		t.Errorf("SearchTimeout = %v, want 3s", loaded.SearchTimeout)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("thumbnail_retry_delay = \"250ms\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ThumbnailRetryDelay.Duration != 250*time.Millisecond {
		t.Errorf("ThumbnailRetryDelay = %v", cfg.ThumbnailRetryDelay)
	}
	if cfg.PageSize != DefaultPageSize || cfg.CandidateLimit != DefaultCandidateLimit {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.SearchBot != DefaultSearchBot || cfg.Player != DefaultPlayer {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load("/nonexistent/config.toml"); err == nil {
		t.Error("Load() expected error for missing file")
	}
	cfg, err := LoadOrDefault("/nonexistent/config.toml")
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if cfg.PageSize != DefaultPageSize {
		t.Errorf("PageSize = %d", cfg.PageSize)
	}
}

func TestSavePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	if err := Save(path, &Config{DefaultSession: "main"}); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}

func TestApplyEnv(t *testing.T) {
	dotenv := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(dotenv, []byte("TELE_API_ID=12345\nTELE_API_HASH=fromfile\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TELE_API_ID", "")
	t.Setenv("TELE_API_HASH", "fromenv")

	cfg := Default()
	if err := cfg.ApplyEnv(dotenv); err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}
	if cfg.APIID != 12345 {
		t.Errorf("APIID = %d, want 12345", cfg.APIID)
	}
	if cfg.APIHash != "fromenv" {
		t.Errorf("APIHash = %q, want fromenv", cfg.APIHash)
	}
	if !cfg.HasCredentials() {
		t.Error("HasCredentials() = false")
	}
}

func TestApplyEnvMissingFile(t *testing.T) {
	t.Setenv("TELE_API_ID", "")
	t.Setenv("TELE_API_HASH", "")
	cfg := Default()
	if err := cfg.ApplyEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}
	if cfg.HasCredentials() {
		t.Error("HasCredentials() = true without any source")
	}
}
