// Package config loads runtime configuration from SENTINEL_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Supported model providers.
const (
	ProviderMock      = "mock"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Config is the process configuration.
type Config struct {
	Provider    string  `env:"SENTINEL_PROVIDER" envDefault:"mock"`
	Model       string  `env:"SENTINEL_MODEL"`
	APIKey      string  `env:"SENTINEL_API_KEY"`
	Temperature float64 `env:"SENTINEL_TEMPERATURE" envDefault:"0.7"`

	// DBPath selects the SQLite store. Empty keeps everything in memory.
	DBPath string `env:"SENTINEL_DB_PATH"`
	// PolicyFile overrides the built-in rank table with a YAML file.
	PolicyFile string `env:"SENTINEL_POLICY_FILE"`

	ResearchTrigger string `env:"SENTINEL_RESEARCH_TRIGGER" envDefault:"Override 144-Manifest"`
	HistoryScan     int    `env:"SENTINEL_HISTORY_SCAN" envDefault:"100"`
	HistoryWindow   int    `env:"SENTINEL_HISTORY_WINDOW" envDefault:"10"`
	KnowledgeBudget int    `env:"SENTINEL_KNOWLEDGE_BUDGET" envDefault:"16000"`
	MaxUploadBytes  int64  `env:"SENTINEL_MAX_UPLOAD_BYTES" envDefault:"20971520"`

	RevealInterval time.Duration `env:"SENTINEL_REVEAL_INTERVAL" envDefault:"20ms"`
	Voice          bool          `env:"SENTINEL_VOICE" envDefault:"false"`

	LogLevel  string `env:"SENTINEL_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"SENTINEL_LOG_FORMAT" envDefault:"text"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges and the provider name.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderMock, ProviderOpenAI, ProviderAnthropic, ProviderGemini:
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if c.HistoryScan <= 0 || c.HistoryWindow <= 0 {
		return fmt.Errorf("history scan and window must be positive")
	}
	if c.HistoryWindow > c.HistoryScan {
		return fmt.Errorf("history window %d exceeds scan %d", c.HistoryWindow, c.HistoryScan)
	}
	if c.KnowledgeBudget < 0 {
		return fmt.Errorf("knowledge budget must not be negative")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive")
	}
	if c.RevealInterval <= 0 {
		return fmt.Errorf("reveal interval must be positive")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}
