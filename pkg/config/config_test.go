package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stanza.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Endpoint.BaseURL != "http://localhost:1337" {
		t.Errorf("base_url = %q", cfg.Endpoint.BaseURL)
	}
	if cfg.Resilience.MaxAttempts != 3 {
		t.Errorf("max_attempts = %d, want 3", cfg.Resilience.MaxAttempts)
	}
	if cfg.Resilience.FailureThreshold != 5 {
		t.Errorf("failure_threshold = %d, want 5", cfg.Resilience.FailureThreshold)
	}
	if cfg.Resilience.CoolDown != 30*time.Second {
		t.Errorf("cool_down = %v, want 30s", cfg.Resilience.CoolDown)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Cache.MaxEntries != 128 {
		t.Errorf("expected default cache size, got %d", cfg.Cache.MaxEntries)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
endpoint:
  base_url: http://localhost:8080
  model: qwen2.5-7b
resilience:
  max_attempts: 5
  base_delay: 250ms
  max_delay: 4s
cache:
  ttl: 1m
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Endpoint.BaseURL != "http://localhost:8080" {
		t.Errorf("base_url = %q", cfg.Endpoint.BaseURL)
	}
	if cfg.Endpoint.Model != "qwen2.5-7b" {
		t.Errorf("model = %q", cfg.Endpoint.Model)
	}
	if cfg.Resilience.MaxAttempts != 5 {
		t.Errorf("max_attempts = %d, want 5", cfg.Resilience.MaxAttempts)
	}
	if cfg.Resilience.BaseDelay != 250*time.Millisecond {
		t.Errorf("base_delay = %v", cfg.Resilience.BaseDelay)
	}
	if cfg.Cache.TTL != time.Minute {
		t.Errorf("ttl = %v", cfg.Cache.TTL)
	}
	// Untouched sections keep their defaults.
	if cfg.Memory.MaxEntries != 1000 {
		t.Errorf("memory.max_entries = %d, want 1000", cfg.Memory.MaxEntries)
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("STANZA_TEST_KEY", "sk-test-123")
	path := writeConfig(t, `
endpoint:
  api_key: ${STANZA_TEST_KEY}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Endpoint.APIKey != "sk-test-123" {
		t.Errorf("api_key = %q, want expanded env value", cfg.Endpoint.APIKey)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty base_url", func(c *Config) { c.Endpoint.BaseURL = "" }},
		{"zero attempts", func(c *Config) { c.Resilience.MaxAttempts = 0 }},
		{"jitter too large", func(c *Config) { c.Resilience.JitterFraction = 1.0 }},
		{"negative jitter", func(c *Config) { c.Resilience.JitterFraction = -0.1 }},
		{"max below base delay", func(c *Config) { c.Resilience.MaxDelay = c.Resilience.BaseDelay / 2 }},
		{"zero threshold", func(c *Config) { c.Resilience.FailureThreshold = 0 }},
		{"cache without capacity", func(c *Config) { c.Cache.MaxEntries = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
