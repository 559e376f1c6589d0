package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("port = %q, want 8080", cfg.Port)
	}
	if cfg.ClaimLimit != 5 {
		t.Errorf("claim limit = %d, want 5", cfg.ClaimLimit)
	}
	wd, err := cfg.Weekday()
	if err != nil {
		t.Fatalf("weekday: %v", err)
	}
	if wd != time.Sunday {
		t.Errorf("weekday = %v, want Sunday", wd)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "port: \"9090\"\nweek_end_day: saturday\nclaim_limit: 3\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CHOREBOARD_PORT", "7070")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "7070" {
		t.Errorf("port = %q, want env override 7070", cfg.Port)
	}
	if cfg.ClaimLimit != 3 {
		t.Errorf("claim limit = %d, want file value 3", cfg.ClaimLimit)
	}
	wd, _ := cfg.Weekday()
	if wd != time.Saturday {
		t.Errorf("weekday = %v, want Saturday", wd)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("prot: \"9090\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
}

func TestLoadRejectsBadTimeOfDay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("evaluate_at: \"25:99\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected bad time of day to be rejected")
	}
}
