package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// apiKeyEnvVar overrides any configured key when set.
const apiKeyEnvVar = "ANTHROPIC_API_KEY"

// ErrNoAPIKey is returned when API mode needs a key and none resolves
// from the environment or the config file.
var ErrNoAPIKey = errors.New("no assistant API key configured")

// GetAPIKey resolves the assistant API key. The environment variable
// wins; otherwise the configured value is used with ${VAR} references
// expanded. Bedrock deployments authenticate through AWS credentials
// instead, so callers with Bedrock enabled treat ErrNoAPIKey as
// non-fatal.
func GetAPIKey(cfg *Config) (string, error) {
	if key := os.Getenv(apiKeyEnvVar); key != "" {
		return key, nil
	}
	if cfg != nil {
		if key := expandedKey(cfg.Assistant.APIKey); key != "" {
			return key, nil
		}
	}
	return "", ErrNoAPIKey
}

// expandedKey expands env references in a configured key value. A
// reference that did not resolve is treated as no key at all.
func expandedKey(value string) string {
	if value == "" {
		return ""
	}
	key := os.ExpandEnv(value)
	if key == "" || strings.HasPrefix(key, "${") {
		return ""
	}
	return key
}

// ValidateAPIKey checks the shape of a key without calling the API.
func ValidateAPIKey(key string) error {
	switch {
	case key == "":
		return ErrNoAPIKey
	case !strings.HasPrefix(key, "sk-ant-"):
		return fmt.Errorf("invalid API key: expected sk-ant- prefix")
	case len(key) < 20:
		return fmt.Errorf("invalid API key: too short")
	}
	return nil
}

// MaskAPIKey renders a key for display, keeping the prefix and the
// last four characters.
func MaskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 15 {
		return "***"
	}
	return key[:7] + "..." + key[len(key)-4:]
}

// APIKeySource names where GetAPIKey would find the key, for the
// config command's display.
func APIKeySource(cfg *Config) string {
	switch {
	case os.Getenv(apiKeyEnvVar) != "":
		return apiKeyEnvVar + " environment variable"
	case cfg != nil && expandedKey(cfg.Assistant.APIKey) != "":
		return "config file"
	case cfg != nil && cfg.Assistant.Bedrock.Enabled:
		return "AWS credentials (bedrock)"
	default:
		return "not set"
	}
}
