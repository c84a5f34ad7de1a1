// Package config handles configuration loading and management for Rumpbot.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/rumpbot/rumpbot/pkg/models"
)

// Config holds all configuration for Rumpbot.
type Config struct {
	Assistant AssistantConfig `mapstructure:"assistant"`
	Tiers     TiersConfig     `mapstructure:"tiers"`
	Limits    LimitsConfig    `mapstructure:"limits"`
	Data      DataConfig      `mapstructure:"data"`
}

// AssistantConfig holds settings for reaching the external assistant.
type AssistantConfig struct {
	// Binary is the CLI executable name or path.
	Binary string `mapstructure:"binary"`
	// Mode selects how calls are made: "cli" or "api".
	Mode string `mapstructure:"mode"`
	// APIKey authenticates api-mode calls. Supports ${VAR} expansion.
	APIKey string `mapstructure:"api_key"`
	// Bedrock routes api-mode calls through AWS Bedrock when enabled.
	Bedrock BedrockConfig `mapstructure:"bedrock"`
}

// BedrockConfig holds AWS Bedrock settings for api mode.
type BedrockConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Region  string `mapstructure:"region"`
	Profile string `mapstructure:"profile"`
}

// TierConfig holds per-tier assistant call settings.
type TierConfig struct {
	// Model is the model identifier, empty for the assistant's default.
	Model string `mapstructure:"model"`
	// MaxTurns caps assistant turns per call.
	MaxTurns int `mapstructure:"max_turns"`
	// Timeout bounds a single call; 0 means unlimited.
	Timeout time.Duration `mapstructure:"timeout"`
}

// TiersConfig holds the settings for all three tiers.
type TiersConfig struct {
	Chat         TierConfig `mapstructure:"chat"`
	Orchestrator TierConfig `mapstructure:"orchestrator"`
	Worker       TierConfig `mapstructure:"worker"`
}

// Get returns the tier config for the given tier.
func (tc *TiersConfig) Get(tier models.Tier) TierConfig {
	switch tier {
	case models.TierOrchestrator:
		return tc.Orchestrator
	case models.TierWorker:
		return tc.Worker
	default:
		return tc.Chat
	}
}

// LimitsConfig holds orchestration-wide resource bounds.
type LimitsConfig struct {
	// MaxWorkers caps the number of workers in a plan.
	MaxWorkers int `mapstructure:"max_workers"`
	// MaxResultChars caps a worker result before truncation-marking.
	MaxResultChars int `mapstructure:"max_result_chars"`
	// OrchestrationTimeout bounds an entire run.
	OrchestrationTimeout time.Duration `mapstructure:"orchestration_timeout"`
	// HeartbeatInterval paces "still running" updates per worker.
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	// StallWarning is how long a worker may be silent before a warning.
	StallWarning time.Duration `mapstructure:"stall_warning"`
	// StallKill is how long a worker may be silent before it is cancelled.
	StallKill time.Duration `mapstructure:"stall_kill"`
	// SummaryTimeout bounds the summarization call.
	SummaryTimeout time.Duration `mapstructure:"summary_timeout"`
	// RetryBackoff is the wait before the single transient retry.
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	// OutputBufferBytes bounds each worker's registry output ring.
	OutputBufferBytes int `mapstructure:"output_buffer_bytes"`
}

// DataConfig locates Rumpbot's on-disk state.
type DataConfig struct {
	// Dir is the data directory, relative paths resolve against the cwd.
	Dir string `mapstructure:"dir"`
}

// SessionsPath returns the path of the session store file.
func (c *Config) SessionsPath() string {
	return filepath.Join(c.Data.Dir, "sessions.json")
}

// StateDBPath returns the path of the memory and invocation database.
func (c *Config) StateDBPath() string {
	return filepath.Join(c.Data.Dir, "state.db")
}

// RunsDBPath returns the path of the run history database.
func (c *Config) RunsDBPath() string {
	return filepath.Join(c.Data.Dir, "runs.db")
}

// SignalsDir returns the directory watched for control signal files.
func (c *Config) SignalsDir() string {
	return filepath.Join(c.Data.Dir, "signals")
}

// LogsDir returns the directory for debug logs.
func (c *Config) LogsDir() string {
	return filepath.Join(c.Data.Dir, "logs")
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, RUMPBOT_ASSISTANT_BINARY)
// 2. Project config (.rumpbot.yaml in current directory or parent)
// 3. User config (~/.config/rumpbot/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Load user config from XDG path
	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Load project config if present
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			// Merge project config (takes precedence)
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	// Environment variable overrides
	v.AutomaticEnv()
	v.SetEnvPrefix("")

	// Map specific environment variables
	v.BindEnv("assistant.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("assistant.binary", "RUMPBOT_ASSISTANT_BINARY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references
	cfg.Assistant.APIKey = expandEnv(cfg.Assistant.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Assistant.APIKey = expandEnv(cfg.Assistant.APIKey)

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("assistant.binary", cfg.Assistant.Binary)
	v.Set("assistant.mode", cfg.Assistant.Mode)
	v.Set("assistant.api_key", cfg.Assistant.APIKey)
	v.Set("assistant.bedrock.enabled", cfg.Assistant.Bedrock.Enabled)
	v.Set("assistant.bedrock.region", cfg.Assistant.Bedrock.Region)
	v.Set("assistant.bedrock.profile", cfg.Assistant.Bedrock.Profile)
	v.Set("tiers.chat.model", cfg.Tiers.Chat.Model)
	v.Set("tiers.chat.max_turns", cfg.Tiers.Chat.MaxTurns)
	v.Set("tiers.chat.timeout", cfg.Tiers.Chat.Timeout.String())
	v.Set("tiers.orchestrator.model", cfg.Tiers.Orchestrator.Model)
	v.Set("tiers.orchestrator.max_turns", cfg.Tiers.Orchestrator.MaxTurns)
	v.Set("tiers.orchestrator.timeout", cfg.Tiers.Orchestrator.Timeout.String())
	v.Set("tiers.worker.model", cfg.Tiers.Worker.Model)
	v.Set("tiers.worker.max_turns", cfg.Tiers.Worker.MaxTurns)
	v.Set("tiers.worker.timeout", cfg.Tiers.Worker.Timeout.String())
	v.Set("limits.max_workers", cfg.Limits.MaxWorkers)
	v.Set("limits.max_result_chars", cfg.Limits.MaxResultChars)
	v.Set("limits.orchestration_timeout", cfg.Limits.OrchestrationTimeout.String())
	v.Set("limits.heartbeat_interval", cfg.Limits.HeartbeatInterval.String())
	v.Set("limits.stall_warning", cfg.Limits.StallWarning.String())
	v.Set("limits.stall_kill", cfg.Limits.StallKill.String())
	v.Set("limits.summary_timeout", cfg.Limits.SummaryTimeout.String())
	v.Set("limits.retry_backoff", cfg.Limits.RetryBackoff.String())
	v.Set("limits.output_buffer_bytes", cfg.Limits.OutputBufferBytes)
	v.Set("data.dir", cfg.Data.Dir)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	// Assistant defaults
	v.SetDefault("assistant.binary", "claude")
	v.SetDefault("assistant.mode", "cli")
	v.SetDefault("assistant.api_key", "")
	v.SetDefault("assistant.bedrock.enabled", false)
	v.SetDefault("assistant.bedrock.region", "")
	v.SetDefault("assistant.bedrock.profile", "")

	// Tier defaults
	v.SetDefault("tiers.chat.model", "")
	v.SetDefault("tiers.chat.max_turns", 12)
	v.SetDefault("tiers.chat.timeout", "2m")
	v.SetDefault("tiers.orchestrator.model", "")
	v.SetDefault("tiers.orchestrator.max_turns", 1)
	v.SetDefault("tiers.orchestrator.timeout", "3m")
	v.SetDefault("tiers.worker.model", "")
	v.SetDefault("tiers.worker.max_turns", 30)
	v.SetDefault("tiers.worker.timeout", "5m")

	// Orchestration limits
	v.SetDefault("limits.max_workers", 10)
	v.SetDefault("limits.max_result_chars", 8000)
	v.SetDefault("limits.orchestration_timeout", "60m")
	v.SetDefault("limits.heartbeat_interval", "60s")
	v.SetDefault("limits.stall_warning", "2m")
	v.SetDefault("limits.stall_kill", "5m")
	v.SetDefault("limits.summary_timeout", "30s")
	v.SetDefault("limits.retry_backoff", "3s")
	v.SetDefault("limits.output_buffer_bytes", 64*1024)

	// Data directory
	v.SetDefault("data.dir", ".rumpbot")
}

// getUserConfigDir returns the XDG config directory for Rumpbot.
func getUserConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "rumpbot")
	}

	// Fall back to ~/.config/rumpbot
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "rumpbot")
	}
	return filepath.Join(home, ".config", "rumpbot")
}

// findProjectConfig searches for .rumpbot.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".rumpbot.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Assistant: AssistantConfig{
			Binary: "claude",
			Mode:   "cli",
		},
		Tiers: TiersConfig{
			Chat: TierConfig{
				MaxTurns: 12,
				Timeout:  2 * time.Minute,
			},
			Orchestrator: TierConfig{
				MaxTurns: 1,
				Timeout:  3 * time.Minute,
			},
			Worker: TierConfig{
				MaxTurns: 30,
				Timeout:  5 * time.Minute,
			},
		},
		Limits: LimitsConfig{
			MaxWorkers:           10,
			MaxResultChars:       8000,
			OrchestrationTimeout: 60 * time.Minute,
			HeartbeatInterval:    60 * time.Second,
			StallWarning:         2 * time.Minute,
			StallKill:            5 * time.Minute,
			SummaryTimeout:       30 * time.Second,
			RetryBackoff:         3 * time.Second,
			OutputBufferBytes:    64 * 1024,
		},
		Data: DataConfig{
			Dir: ".rumpbot",
		},
	}
}
