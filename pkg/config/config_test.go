package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Address != "localhost:52999" {
		t.Errorf("default address = %s", cfg.Address)
	}
	if cfg.Broadcast.FrameRate != 60 {
		t.Errorf("default frame rate = %d, want 60", cfg.Broadcast.FrameRate)
	}
	if cfg.Broadcast.DataLabel != "webscope_data" || cfg.Broadcast.EchoLabel != "echo" {
		t.Errorf("default labels = %q/%q", cfg.Broadcast.DataLabel, cfg.Broadcast.EchoLabel)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	content := `
address: ":9000"
broadcast:
  frame_rate: 30
database:
  type: none
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Address != ":9000" {
		t.Errorf("address = %s, want :9000", cfg.Address)
	}
	if cfg.Broadcast.FrameRate != 30 {
		t.Errorf("frame rate = %d, want 30", cfg.Broadcast.FrameRate)
	}
	// Untouched fields keep defaults.
	if cfg.Broadcast.SampleCount != 1000 {
		t.Errorf("sample count = %d, want default 1000", cfg.Broadcast.SampleCount)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("WEBSCOPE_ADDR", ":7777")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Address != ":7777" {
		t.Errorf("address = %s, want :7777", cfg.Address)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %s, want debug", cfg.Logging.Level)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*ServerConfig)
	}{
		{"empty address", func(c *ServerConfig) { c.Address = "" }},
		{"zero frame rate", func(c *ServerConfig) { c.Broadcast.FrameRate = 0 }},
		{"one sample", func(c *ServerConfig) { c.Broadcast.SampleCount = 1 }},
		{"zero frequency", func(c *ServerConfig) { c.Broadcast.SignalHz = 0 }},
		{"empty label", func(c *ServerConfig) { c.Broadcast.DataLabel = "" }},
		{"bad database", func(c *ServerConfig) { c.Database.Type = "mongodb" }},
		{"bad log level", func(c *ServerConfig) { c.Logging.Level = "verbose" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate should fail")
			}
		})
	}
}

func TestFrameInterval(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.Broadcast.FrameInterval().Milliseconds(); got != 16 {
		t.Errorf("60fps interval = %dms, want 16ms", got)
	}
}
