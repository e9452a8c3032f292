package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.DataDir != "data" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
	if cfg.Notify.ScanInterval != time.Minute {
		t.Errorf("ScanInterval = %v", cfg.Notify.ScanInterval)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tracker.yaml")
	content := "data_dir: /srv/volumod\nserver:\n  addr: \":3000\"\nnotify:\n  scan_interval: 30s\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataDir != "/srv/volumod" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.Server.Addr != ":3000" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
	if cfg.Notify.ScanInterval != 30*time.Second {
		t.Errorf("ScanInterval = %v", cfg.Notify.ScanInterval)
	}
	// Untouched fields keep their defaults.
	if cfg.DB.Path != "data/tracker.db" {
		t.Errorf("DB.Path = %q", cfg.DB.Path)
	}
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("explicit missing config file should fail")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TRACKER_ADDR", ":9999")
	t.Setenv("TRACKER_DATA_DIR", "/tmp/csvs")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":9999" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
	if cfg.DataDir != "/tmp/csvs" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
}
