package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Screen.Interval != 5*time.Second {
		t.Errorf("interval = %v, want default 5s", cfg.Screen.Interval)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("port = %d, want 5000", cfg.Server.Port)
	}
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "focusd.yaml")
	content := []byte("log_level: debug\nscreen:\n  interval: 10s\nserver:\n  port: 8080\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log_level = %q", cfg.LogLevel)
	}
	if cfg.Screen.Interval != 10*time.Second {
		t.Errorf("interval = %v", cfg.Screen.Interval)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	// Untouched keys keep their defaults.
	if cfg.Storage.Path != "focusd.db" {
		t.Errorf("storage path = %q", cfg.Storage.Path)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "focusd.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 8080\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FOCUSD_SERVER__PORT", "9999")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d, want env override 9999", cfg.Server.Port)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero interval", func(c *Config) { c.Screen.Interval = 0 }},
		{"zero history", func(c *Config) { c.Focus.HistorySize = 0 }},
		{"zero consec frames", func(c *Config) { c.Focus.EARConsecFrames = 0 }},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }},
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("validation passed")
			}
		})
	}
}

func TestEnvKeyToPath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"FOCUSD_LOG_LEVEL", "log_level"},
		{"FOCUSD_SCREEN__INTERVAL", "screen.interval"},
		{"FOCUSD_FOCUS__EAR_CONSEC_FRAMES", "focus.ear_consec_frames"},
		{"FOCUSD_CLASSIFIER__BASE_URL", "classifier.base_url"},
	}
	for _, tt := range tests {
		if got := envKeyToPath(tt.in); got != tt.want {
			t.Errorf("envKeyToPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
