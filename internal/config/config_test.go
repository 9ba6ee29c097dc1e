package config

import (
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"
)

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() error = %v, want nil", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"threshold of one is inclusive", func(c *Config) { c.Dedup.Threshold = 1 }, false},
		{"zero threshold", func(c *Config) { c.Dedup.Threshold = 0 }, true},
		{"empty store path", func(c *Config) { c.Store.Path = "  " }, true},
		{"zero title length", func(c *Config) { c.Extraction.MaxTitleLength = 0 }, true},
		{"trace level", func(c *Config) { c.Logging.Level = "trace" }, false},
		{"unknown format", func(c *Config) { c.Logging.Format = "text" }, true},
		{"zero debounce", func(c *Config) { c.Watch.Debounce = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_LoggerConfig(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	lc, err := cfg.LoggerConfig()
	if err != nil {
		t.Fatalf("LoggerConfig() error = %v", err)
	}
	if lc.Level != zapcore.InfoLevel {
		t.Errorf("Level = %v, want info", lc.Level)
	}
	if lc.Format != "json" {
		t.Errorf("Format = %q, want json", lc.Format)
	}
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := ExpandPath("~/.config/sessionlearn/learnings.md")
	if err != nil {
		t.Fatalf("ExpandPath() error = %v", err)
	}
	if want := filepath.Join(home, ".config", "sessionlearn", "learnings.md"); got != want {
		t.Errorf("ExpandPath() = %q, want %q", got, want)
	}

	for _, p := range []string{"/abs/learnings.md", "relative/learnings.md", "~other/x"} {
		got, err := ExpandPath(p)
		if err != nil || got != p {
			t.Errorf("ExpandPath(%q) = %q, %v; want unchanged", p, got, err)
		}
	}
}

func TestDuration_UnmarshalText(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("1m30s")); err != nil {
		t.Fatalf("UnmarshalText() error = %v", err)
	}
	if d.Duration() != 90*time.Second {
		t.Errorf("Duration = %v, want 1m30s", d.Duration())
	}
	if err := d.UnmarshalText([]byte("-1s")); err == nil {
		t.Error("negative duration should be rejected")
	}
	if err := d.UnmarshalText([]byte("soon")); err == nil {
		t.Error("malformed duration should be rejected")
	}

	text, err := Duration(2 * time.Second).MarshalText()
	if err != nil || string(text) != "2s" {
		t.Errorf("MarshalText() = %q, %v", text, err)
	}
}
