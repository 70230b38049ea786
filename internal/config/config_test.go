package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigExpandsEnvAndDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("GEMINI_API_KEY", "")

	cfg, err := LoadConfig(writeConfig(t, `
telegram:
  token: ${TELEGRAM_BOT_TOKEN}
gemini:
  api_key: ${GEMINI_API_KEY}
  timeout: 5s
sessions:
  ttl: 2h
`))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Telegram.Token != "123:abc" {
		t.Errorf("token = %q", cfg.Telegram.Token)
	}
	if cfg.Database.Type != DatabaseSQLite || cfg.Database.Path == "" {
		t.Errorf("database defaults = %+v", cfg.Database)
	}
	if cfg.Gemini.Timeout != 5*time.Second || cfg.Sessions.TTL != 2*time.Hour {
		t.Errorf("durations = %v / %v", cfg.Gemini.Timeout, cfg.Sessions.TTL)
	}
	if cfg.Sessions.Sweep != "@every 10m" || cfg.Server.Port != "8000" || cfg.Geocoder.RequestsPerSecond != 1 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if !cfg.SimulatedClassifier() {
		t.Error("empty API key should select the simulated classifier")
	}
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"missing token", "telegram:\n  token: \"\"\n", "telegram.token"},
		{"placeholder token", "telegram:\n  token: YOUR_TOKEN_HERE\n", "telegram.token"},
		{"postgres without url", "telegram:\n  token: t\ndatabase:\n  type: postgres\n", "database.url"},
		{"unknown database", "telegram:\n  token: t\ndatabase:\n  type: mongo\n", "unknown database type"},
		{"bad yaml", "telegram: [", "decode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestSimulatedClassifier(t *testing.T) {
	cfg := &Config{}
	cfg.Gemini.APIKey = "YOUR_API_KEY_HERE"
	if !cfg.SimulatedClassifier() {
		t.Error("placeholder key should select the simulated classifier")
	}
	cfg.Gemini.APIKey = "AIza-real"
	if cfg.SimulatedClassifier() {
		t.Error("configured key should select Gemini")
	}
}
