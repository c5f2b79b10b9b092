package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Server.Port != DefaultPort {
		t.Errorf("expected default port %d, got %d", DefaultPort, cfg.Server.Port)
	}
	if cfg.Database != "flowcanvas.db" {
		t.Errorf("expected default database %q, got %q", "flowcanvas.db", cfg.Database)
	}
	if cfg.Editor.AutosaveDelayMS != 2000 {
		t.Errorf("expected default autosave delay 2000, got %d", cfg.Editor.AutosaveDelayMS)
	}
	if !cfg.Editor.ConfirmDelete {
		t.Error("expected delete confirmation on by default")
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.flowcanvas.yml")

	original := DefaultConfig()
	original.ServerURL = "http://flows.internal:9000"
	original.Database = "/var/lib/flowcanvas/flows.db"
	original.Server.Port = 9000
	original.Server.AllowAllOrigins = true
	original.Editor.AutosaveDelayMS = 500

	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.ServerURL != original.ServerURL {
		t.Errorf("server_url: got %q, want %q", loaded.ServerURL, original.ServerURL)
	}
	if loaded.Database != original.Database {
		t.Errorf("database: got %q, want %q", loaded.Database, original.Database)
	}
	if loaded.Server.Port != 9000 {
		t.Errorf("port: got %d, want 9000", loaded.Server.Port)
	}
	if !loaded.Server.AllowAllOrigins {
		t.Error("allow_all_origins lost in round trip")
	}
	if loaded.Editor.AutosaveDelayMS != 500 {
		t.Errorf("autosave delay: got %d, want 500", loaded.Editor.AutosaveDelayMS)
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nonexistent.yml")

	// Loading a missing file should return defaults, not an error.
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load should not fail for missing file: %v", err)
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("expected default port, got %d", cfg.Server.Port)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yml")

	cfg := DefaultConfig()
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	os.Setenv("FLOWCANVAS_DATABASE", "/tmp/override.db")
	defer os.Unsetenv("FLOWCANVAS_DATABASE")
	os.Setenv("FLOWCANVAS_SERVER__PORT", "9191")
	defer os.Unsetenv("FLOWCANVAS_SERVER__PORT")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Database != "/tmp/override.db" {
		t.Errorf("env override failed: database = %q", loaded.Database)
	}
	if loaded.Server.Port != 9191 {
		t.Errorf("nested env override failed: port = %d", loaded.Server.Port)
	}
}

func TestValidateValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig should be valid, got: %v", err)
	}
}

func TestValidateEmptyServerURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ServerURL = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for empty server_url")
	}
}

func TestValidateBadServerURLScheme(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ServerURL = "ftp://example.com"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for non-http server_url")
	}
}

func TestValidateEmptyDatabase(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Database = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for empty database")
	}
}

func TestValidatePortOutOfRange(t *testing.T) {
	for _, port := range []int{0, -1, 70000} {
		cfg := DefaultConfig()
		cfg.Server.Port = port
		if err := cfg.Validate(); err == nil {
			t.Errorf("expected validation error for port %d", port)
		}
	}
}

func TestValidateNegativeAutosaveDelay(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Editor.AutosaveDelayMS = -1
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for negative autosave delay")
	}
}
