package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rumpbot/rumpbot/pkg/models"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Assistant.Binary != "claude" {
		t.Errorf("expected default binary 'claude', got %q", cfg.Assistant.Binary)
	}

	if cfg.Assistant.Mode != "cli" {
		t.Errorf("expected default mode 'cli', got %q", cfg.Assistant.Mode)
	}

	if cfg.Tiers.Chat.Timeout != 2*time.Minute {
		t.Errorf("expected chat timeout 2m, got %v", cfg.Tiers.Chat.Timeout)
	}

	if cfg.Tiers.Orchestrator.MaxTurns != 1 {
		t.Errorf("expected orchestrator max_turns 1, got %d", cfg.Tiers.Orchestrator.MaxTurns)
	}

	if cfg.Tiers.Worker.Timeout != 5*time.Minute {
		t.Errorf("expected worker timeout 5m, got %v", cfg.Tiers.Worker.Timeout)
	}

	if cfg.Limits.MaxWorkers != 10 {
		t.Errorf("expected max_workers 10, got %d", cfg.Limits.MaxWorkers)
	}

	if cfg.Limits.MaxResultChars != 8000 {
		t.Errorf("expected max_result_chars 8000, got %d", cfg.Limits.MaxResultChars)
	}

	if cfg.Limits.OrchestrationTimeout != 60*time.Minute {
		t.Errorf("expected orchestration_timeout 60m, got %v", cfg.Limits.OrchestrationTimeout)
	}

	if cfg.Limits.HeartbeatInterval != 60*time.Second {
		t.Errorf("expected heartbeat_interval 60s, got %v", cfg.Limits.HeartbeatInterval)
	}

	if cfg.Limits.StallWarning != 2*time.Minute {
		t.Errorf("expected stall_warning 2m, got %v", cfg.Limits.StallWarning)
	}

	if cfg.Limits.StallKill != 5*time.Minute {
		t.Errorf("expected stall_kill 5m, got %v", cfg.Limits.StallKill)
	}

	if cfg.Limits.SummaryTimeout != 30*time.Second {
		t.Errorf("expected summary_timeout 30s, got %v", cfg.Limits.SummaryTimeout)
	}

	if cfg.Limits.RetryBackoff != 3*time.Second {
		t.Errorf("expected retry_backoff 3s, got %v", cfg.Limits.RetryBackoff)
	}

	if cfg.Limits.OutputBufferBytes != 64*1024 {
		t.Errorf("expected output_buffer_bytes 65536, got %d", cfg.Limits.OutputBufferBytes)
	}

	if cfg.Data.Dir != ".rumpbot" {
		t.Errorf("expected data dir '.rumpbot', got %q", cfg.Data.Dir)
	}
}

func TestLoadFromPath(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
assistant:
  binary: claude-test
  mode: api
  api_key: test-key
tiers:
  chat:
    model: haiku
    max_turns: 6
    timeout: 90s
  worker:
    model: sonnet
    max_turns: 20
    timeout: 10m
limits:
  max_workers: 5
  max_result_chars: 4000
  stall_kill: 4m
data:
  dir: /tmp/rumpbot-test
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Assistant.Binary != "claude-test" {
		t.Errorf("expected binary 'claude-test', got %q", cfg.Assistant.Binary)
	}

	if cfg.Assistant.Mode != "api" {
		t.Errorf("expected mode 'api', got %q", cfg.Assistant.Mode)
	}

	if cfg.Assistant.APIKey != "test-key" {
		t.Errorf("expected api_key 'test-key', got %q", cfg.Assistant.APIKey)
	}

	if cfg.Tiers.Chat.Model != "haiku" {
		t.Errorf("expected chat model 'haiku', got %q", cfg.Tiers.Chat.Model)
	}

	if cfg.Tiers.Chat.Timeout != 90*time.Second {
		t.Errorf("expected chat timeout 90s, got %v", cfg.Tiers.Chat.Timeout)
	}

	if cfg.Tiers.Worker.MaxTurns != 20 {
		t.Errorf("expected worker max_turns 20, got %d", cfg.Tiers.Worker.MaxTurns)
	}

	if cfg.Limits.MaxWorkers != 5 {
		t.Errorf("expected max_workers 5, got %d", cfg.Limits.MaxWorkers)
	}

	if cfg.Limits.StallKill != 4*time.Minute {
		t.Errorf("expected stall_kill 4m, got %v", cfg.Limits.StallKill)
	}

	// Unset keys keep their defaults
	if cfg.Limits.OrchestrationTimeout != 60*time.Minute {
		t.Errorf("expected default orchestration_timeout 60m, got %v", cfg.Limits.OrchestrationTimeout)
	}

	if cfg.Tiers.Orchestrator.MaxTurns != 1 {
		t.Errorf("expected default orchestrator max_turns 1, got %d", cfg.Tiers.Orchestrator.MaxTurns)
	}

	if cfg.Data.Dir != "/tmp/rumpbot-test" {
		t.Errorf("expected data dir '/tmp/rumpbot-test', got %q", cfg.Data.Dir)
	}
}

func TestExpandEnv(t *testing.T) {
	// Set environment variable
	os.Setenv("TEST_VAR", "expanded-value")
	defer os.Unsetenv("TEST_VAR")

	result := expandEnv("${TEST_VAR}")
	if result != "expanded-value" {
		t.Errorf("expected 'expanded-value', got %q", result)
	}

	result = expandEnv("prefix-${TEST_VAR}-suffix")
	if result != "prefix-expanded-value-suffix" {
		t.Errorf("expected 'prefix-expanded-value-suffix', got %q", result)
	}
}

func TestGetUserConfigDir(t *testing.T) {
	// Test with XDG_CONFIG_HOME set
	os.Setenv("XDG_CONFIG_HOME", "/custom/config")
	defer os.Unsetenv("XDG_CONFIG_HOME")

	dir := getUserConfigDir()
	expected := "/custom/config/rumpbot"
	if dir != expected {
		t.Errorf("expected %q, got %q", expected, dir)
	}
}

func TestTiersConfigGet(t *testing.T) {
	cfg := Default()

	tests := []struct {
		tier     models.Tier
		expected TierConfig
	}{
		{models.TierChat, cfg.Tiers.Chat},
		{models.TierOrchestrator, cfg.Tiers.Orchestrator},
		{models.TierWorker, cfg.Tiers.Worker},
		{models.Tier("unknown"), cfg.Tiers.Chat}, // Defaults to chat
	}

	for _, tc := range tests {
		got := cfg.Tiers.Get(tc.tier)
		if got != tc.expected {
			t.Errorf("Get(%q) = %+v, want %+v", tc.tier, got, tc.expected)
		}
	}
}

func TestDataPaths(t *testing.T) {
	cfg := Default()
	cfg.Data.Dir = "/var/lib/rumpbot"

	if got := cfg.SessionsPath(); got != "/var/lib/rumpbot/sessions.json" {
		t.Errorf("SessionsPath() = %q", got)
	}
	if got := cfg.StateDBPath(); got != "/var/lib/rumpbot/state.db" {
		t.Errorf("StateDBPath() = %q", got)
	}
	if got := cfg.RunsDBPath(); got != "/var/lib/rumpbot/runs.db" {
		t.Errorf("RunsDBPath() = %q", got)
	}
	if got := cfg.SignalsDir(); got != "/var/lib/rumpbot/signals" {
		t.Errorf("SignalsDir() = %q", got)
	}
}
