package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Provider != ProviderMock {
		t.Fatalf("provider = %q, want mock", cfg.Provider)
	}
	if cfg.ResearchTrigger != "Override 144-Manifest" {
		t.Fatalf("research trigger = %q", cfg.ResearchTrigger)
	}
	if cfg.HistoryScan != 100 || cfg.HistoryWindow != 10 {
		t.Fatalf("history = %d/%d, want 100/10", cfg.HistoryScan, cfg.HistoryWindow)
	}
	if cfg.RevealInterval != 20*time.Millisecond {
		t.Fatalf("reveal interval = %v", cfg.RevealInterval)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SENTINEL_PROVIDER", " Gemini ")
	t.Setenv("SENTINEL_DB_PATH", "/tmp/sentinel.db")
	t.Setenv("SENTINEL_HISTORY_WINDOW", "5")
	t.Setenv("SENTINEL_VOICE", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Provider != ProviderGemini {
		t.Fatalf("provider = %q, want gemini", cfg.Provider)
	}
	if cfg.DBPath != "/tmp/sentinel.db" || cfg.HistoryWindow != 5 || !cfg.Voice {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := map[string][2]string{
		"bad int":          {"SENTINEL_HISTORY_SCAN", "many"},
		"unknown provider": {"SENTINEL_PROVIDER", "llama"},
		"window too wide":  {"SENTINEL_HISTORY_WINDOW", "500"},
		"bad format":       {"SENTINEL_LOG_FORMAT", "xml"},
	}
	for name, kv := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			if _, err := Load(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadParseErrorPrefix(t *testing.T) {
	t.Setenv("SENTINEL_TEMPERATURE", "hot")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("err = %v, want parse env prefix", err)
	}
}
