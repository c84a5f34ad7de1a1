package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rumpbot/rumpbot/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Show effective configuration or set a key",
	Long: `With no arguments, prints the effective configuration. With a key,
prints that value. With a key and value, writes the key to the user
config file.`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		switch len(args) {
		case 0:
			printConfig(cfg)
			return nil
		case 1:
			value, err := getConfigKey(cfg, args[0])
			if err != nil {
				return err
			}
			fmt.Println(value)
			return nil
		default:
			if err := setConfigKey(cfg, args[0], args[1]); err != nil {
				return err
			}
			if err := config.Save(cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			fmt.Printf("%s = %s (written to %s)\n", args[0], args[1], config.GetUserConfigPath())
			return nil
		}
	},
}

func printConfig(cfg *config.Config) {
	fmt.Printf("assistant.binary       %s\n", cfg.Assistant.Binary)
	fmt.Printf("assistant.mode         %s\n", cfg.Assistant.Mode)
	fmt.Printf("assistant.api_key      %s (source: %s)\n", config.MaskAPIKey(cfg.Assistant.APIKey), config.APIKeySource(cfg))
	fmt.Printf("assistant.bedrock      enabled=%v region=%s\n", cfg.Assistant.Bedrock.Enabled, cfg.Assistant.Bedrock.Region)
	for _, tier := range []struct {
		name string
		t    config.TierConfig
	}{
		{"chat", cfg.Tiers.Chat},
		{"orchestrator", cfg.Tiers.Orchestrator},
		{"worker", cfg.Tiers.Worker},
	} {
		model := tier.t.Model
		if model == "" {
			model = "(default)"
		}
		fmt.Printf("tiers.%-16s model=%s max_turns=%d timeout=%s\n", tier.name, model, tier.t.MaxTurns, tier.t.Timeout)
	}
	fmt.Printf("limits.max_workers     %d\n", cfg.Limits.MaxWorkers)
	fmt.Printf("limits.max_result_chars %d\n", cfg.Limits.MaxResultChars)
	fmt.Printf("limits.orchestration_timeout %s\n", cfg.Limits.OrchestrationTimeout)
	fmt.Printf("data.dir               %s\n", cfg.Data.Dir)
	if project := config.GetProjectConfigPath(); project != "" {
		fmt.Printf("\nproject config: %s\n", project)
	}
	fmt.Printf("user config:    %s\n", config.GetUserConfigPath())
}

func getConfigKey(cfg *config.Config, key string) (string, error) {
	switch key {
	case "assistant.binary":
		return cfg.Assistant.Binary, nil
	case "assistant.mode":
		return cfg.Assistant.Mode, nil
	case "data.dir":
		return cfg.Data.Dir, nil
	case "tiers.chat.model":
		return cfg.Tiers.Chat.Model, nil
	case "tiers.orchestrator.model":
		return cfg.Tiers.Orchestrator.Model, nil
	case "tiers.worker.model":
		return cfg.Tiers.Worker.Model, nil
	case "limits.max_workers":
		return strconv.Itoa(cfg.Limits.MaxWorkers), nil
	default:
		return "", fmt.Errorf("unknown or unreadable key %q", key)
	}
}

func setConfigKey(cfg *config.Config, key, value string) error {
	switch key {
	case "assistant.binary":
		cfg.Assistant.Binary = value
	case "assistant.mode":
		if value != "cli" && value != "api" {
			return fmt.Errorf("assistant.mode must be cli or api")
		}
		cfg.Assistant.Mode = value
	case "assistant.api_key":
		// Allow ${VAR} references through unvalidated; they resolve at load.
		if !strings.HasPrefix(value, "${") {
			if err := config.ValidateAPIKey(value); err != nil {
				return err
			}
		}
		cfg.Assistant.APIKey = value
	case "data.dir":
		cfg.Data.Dir = value
	case "tiers.chat.model":
		cfg.Tiers.Chat.Model = value
	case "tiers.orchestrator.model":
		cfg.Tiers.Orchestrator.Model = value
	case "tiers.worker.model":
		cfg.Tiers.Worker.Model = value
	case "tiers.chat.timeout", "tiers.orchestrator.timeout", "tiers.worker.timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		switch key {
		case "tiers.chat.timeout":
			cfg.Tiers.Chat.Timeout = d
		case "tiers.orchestrator.timeout":
			cfg.Tiers.Orchestrator.Timeout = d
		default:
			cfg.Tiers.Worker.Timeout = d
		}
	case "limits.max_workers":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("limits.max_workers must be a positive integer")
		}
		cfg.Limits.MaxWorkers = n
	default:
		return fmt.Errorf("unknown or unwritable key %q", key)
	}
	return nil
}
