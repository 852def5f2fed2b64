package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all Stanza configuration.
type Config struct {
	Endpoint   EndpointConfig   `yaml:"endpoint"`
	Chat       ChatConfig       `yaml:"chat"`
	Resilience ResilienceConfig `yaml:"resilience"`
	Cache      CacheConfig      `yaml:"cache"`
	Memory     MemoryConfig     `yaml:"memory"`
	History    HistoryConfig    `yaml:"history"`
	Audit      AuditConfig      `yaml:"audit"`
	Log        LogConfig        `yaml:"log"`
}

// EndpointConfig identifies the OpenAI-compatible API endpoint.
type EndpointConfig struct {
	BaseURL        string        `yaml:"base_url"`
	APIKey         string        `yaml:"api_key"`
	Model          string        `yaml:"model"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// ChatConfig controls the chat session.
type ChatConfig struct {
	SystemPrompt  string  `yaml:"system_prompt"`
	Temperature   float64 `yaml:"temperature"`
	MaxTokens     int     `yaml:"max_tokens"`
	HistoryWindow int     `yaml:"history_window"`
}

// ResilienceConfig controls retries and the circuit breaker.
type ResilienceConfig struct {
	MaxAttempts      int           `yaml:"max_attempts"`
	BaseDelay        time.Duration `yaml:"base_delay"`
	MaxDelay         time.Duration `yaml:"max_delay"`
	JitterFraction   float64       `yaml:"jitter_fraction"`
	FailureThreshold int           `yaml:"failure_threshold"`
	CoolDown         time.Duration `yaml:"cool_down"`
}

// CacheConfig controls the in-memory response cache.
type CacheConfig struct {
	Enabled    bool          `yaml:"enabled"`
	MaxEntries int           `yaml:"max_entries"`
	TTL        time.Duration `yaml:"ttl"`
}

// MemoryConfig controls the persistent memory store.
type MemoryConfig struct {
	DBPath     string `yaml:"db_path"`
	MaxEntries int    `yaml:"max_entries"`
}

// HistoryConfig controls chat history persistence.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	DBPath  string `yaml:"db_path"`
}

// AuditConfig controls the degraded-mode audit log.
type AuditConfig struct {
	DBPath        string `yaml:"db_path"`
	RetentionDays int    `yaml:"retention_days"`
}

// LogConfig controls application logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a Config with sensible defaults for a local Jan/llama
// style server.
func Default() *Config {
	return &Config{
		Endpoint: EndpointConfig{
			BaseURL:        "http://localhost:1337",
			RequestTimeout: 30 * time.Second,
		},
		Chat: ChatConfig{
			Temperature:   0.7,
			HistoryWindow: 20,
		},
		Resilience: ResilienceConfig{
			MaxAttempts:      3,
			BaseDelay:        500 * time.Millisecond,
			MaxDelay:         8 * time.Second,
			JitterFraction:   0.2,
			FailureThreshold: 5,
			CoolDown:         30 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:    true,
			MaxEntries: 128,
			TTL:        5 * time.Minute,
		},
		Memory: MemoryConfig{
			DBPath:     "stanza-memory.db",
			MaxEntries: 1000,
		},
		History: HistoryConfig{
			Enabled: true,
			DBPath:  "stanza-history.db",
		},
		Audit: AuditConfig{
			DBPath:        "stanza-audit.db",
			RetentionDays: 30,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML config file and expands environment variables.
// A missing file is not an error; defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Endpoint.BaseURL == "" {
		return fmt.Errorf("config: endpoint.base_url is required")
	}
	if c.Resilience.MaxAttempts < 1 {
		return fmt.Errorf("config: resilience.max_attempts must be at least 1")
	}
	if c.Resilience.JitterFraction < 0 || c.Resilience.JitterFraction >= 1 {
		return fmt.Errorf("config: resilience.jitter_fraction must be in [0, 1)")
	}
	if c.Resilience.BaseDelay <= 0 || c.Resilience.MaxDelay < c.Resilience.BaseDelay {
		return fmt.Errorf("config: resilience delays must satisfy 0 < base_delay <= max_delay")
	}
	if c.Resilience.FailureThreshold < 1 {
		return fmt.Errorf("config: resilience.failure_threshold must be at least 1")
	}
	if c.Cache.Enabled && c.Cache.MaxEntries < 1 {
		return fmt.Errorf("config: cache.max_entries must be at least 1 when the cache is enabled")
	}
	return nil
}
