// ABOUTME: Tests for configuration loading and parsing.
// ABOUTME: Covers YAML loading, env var expansion, durations, and validation.

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
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
indexer:
  endpoint: "https://indexer.example.com/v1/graphql"

liveness:
  base_url: "https://docs.example.com/v1"
  auth_token: "secret"

alerts:
  webhook_url: "https://hooks.example.com/T000/B000"
  mention: "<!channel>"
  cooldown: "60s"

monitor:
  poll_interval: "5m"

matrix:
  enabled: true
  homeserver: "https://matrix.org"
  user_id: "@watchdog:matrix.org"
  access_token: "syt_test"
  allowed_rooms:
    - "!ops:matrix.org"
  command_prefix: "/watchdog"

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Indexer.Endpoint != "https://indexer.example.com/v1/graphql" {
		t.Errorf("unexpected indexer endpoint: %s", cfg.Indexer.Endpoint)
	}
	if cfg.Alerts.Cooldown != 60*time.Second {
		t.Errorf("expected 60s cooldown, got %v", cfg.Alerts.Cooldown)
	}
	if cfg.Monitor.PollInterval != 5*time.Minute {
		t.Errorf("expected 5m poll interval, got %v", cfg.Monitor.PollInterval)
	}
	if !cfg.Matrix.Enabled {
		t.Error("expected matrix to be enabled")
	}
	if len(cfg.Matrix.AllowedRooms) != 1 || cfg.Matrix.AllowedRooms[0] != "!ops:matrix.org" {
		t.Errorf("unexpected allowed rooms: %v", cfg.Matrix.AllowedRooms)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("unexpected logging format: %s", cfg.Logging.Format)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_WEBHOOK_URL", "https://hooks.example.com/expanded")

	configPath := writeConfig(t, `
indexer:
  endpoint: "https://indexer.example.com/v1/graphql"

liveness:
  base_url: "https://docs.example.com/v1"

alerts:
  webhook_url: "${TEST_WEBHOOK_URL}"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Alerts.WebhookURL != "https://hooks.example.com/expanded" {
		t.Errorf("env var not expanded: %s", cfg.Alerts.WebhookURL)
	}
}

func TestLoad_UnsetEnvVarExpandsEmpty(t *testing.T) {
	configPath := writeConfig(t, `
indexer:
  endpoint: "https://indexer.example.com/v1/graphql"

liveness:
  base_url: "https://docs.example.com/v1"

alerts:
  webhook_url: "${DEFINITELY_NOT_SET_ANYWHERE_XYZ}"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Alerts.WebhookURL != "" {
		t.Errorf("expected empty webhook URL, got %s", cfg.Alerts.WebhookURL)
	}
}

func TestLoad_DefaultCommandPrefix(t *testing.T) {
	configPath := writeConfig(t, `
indexer:
  endpoint: "https://indexer.example.com/v1/graphql"

liveness:
  base_url: "https://docs.example.com/v1"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Matrix.CommandPrefix != DefaultCommandPrefix {
		t.Errorf("expected default prefix %q, got %q", DefaultCommandPrefix, cfg.Matrix.CommandPrefix)
	}
}

func TestLoad_MissingIndexerEndpoint(t *testing.T) {
	configPath := writeConfig(t, `
liveness:
  base_url: "https://docs.example.com/v1"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "indexer.endpoint") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoad_MatrixEnabledRequiresCredentials(t *testing.T) {
	configPath := writeConfig(t, `
indexer:
  endpoint: "https://indexer.example.com/v1/graphql"

liveness:
  base_url: "https://docs.example.com/v1"

matrix:
  enabled: true
  homeserver: "https://matrix.org"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "matrix.user_id") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	configPath := writeConfig(t, `
indexer:
  endpoint: "https://indexer.example.com/v1/graphql"

liveness:
  base_url: "https://docs.example.com/v1"

monitor:
  poll_interval: "five minutes"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("expected duration parse error")
	}
	if !strings.Contains(err.Error(), "poll_interval") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_MissingWebhookIsAllowed(t *testing.T) {
	configPath := writeConfig(t, `
indexer:
  endpoint: "https://indexer.example.com/v1/graphql"

liveness:
  base_url: "https://docs.example.com/v1"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Alerts.WebhookURL != "" {
		t.Errorf("expected empty webhook URL, got %s", cfg.Alerts.WebhookURL)
	}
}
