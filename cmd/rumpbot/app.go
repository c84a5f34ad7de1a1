package main

import (
	"fmt"
	"os"

	"github.com/rumpbot/rumpbot/internal/assistant"
	"github.com/rumpbot/rumpbot/internal/chat"
	"github.com/rumpbot/rumpbot/internal/config"
	"github.com/rumpbot/rumpbot/internal/orchestrator"
	"github.com/rumpbot/rumpbot/internal/state"
	"github.com/rumpbot/rumpbot/pkg/models"
)

// app is the composition root: configuration, stores, and the invoker,
// wired once per command invocation.
type app struct {
	cfg      *config.Config
	invoker  assistant.Invoker
	db       *state.DB
	sessions *state.SessionStore
	memory   *state.MemoryStore
	invLog   *state.InvocationLog
	runs     *orchestrator.RunStore
	registry *orchestrator.Registry
	restart  *orchestrator.RestartDetector
	logger   *orchestrator.DebugLogger
}

// newApp loads configuration and opens every store. Callers must Close.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	invoker, err := buildInvoker(cfg)
	if err != nil {
		return nil, err
	}

	db, err := state.Open(cfg.StateDBPath())
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate state database: %w", err)
	}

	sessions, err := state.NewSessionStore(cfg.SessionsPath())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open session store: %w", err)
	}

	runs, err := orchestrator.OpenRunStore(cfg.RunsDBPath())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open run history: %w", err)
	}
	if n, err := runs.MarkStaleRunning(); err == nil && n > 0 {
		fmt.Fprintf(os.Stderr, "note: marked %d interrupted run(s) as canceled\n", n)
	}

	restart := orchestrator.NewRestartDetector()
	if projectCfg := config.GetProjectConfigPath(); projectCfg != "" {
		if err := restart.LoadConfig(projectCfg); err != nil {
			fmt.Fprintf(os.Stderr, "warning: restart_watch config ignored: %v\n", err)
		}
	}

	return &app{
		cfg:      cfg,
		invoker:  invoker,
		db:       db,
		sessions: sessions,
		memory:   state.NewMemoryStore(db),
		invLog:   state.NewInvocationLog(db),
		runs:     runs,
		registry: orchestrator.NewRegistry(cfg.Limits.OutputBufferBytes),
		restart:  restart,
		logger:   orchestrator.NewDebugLoggerForDir(cfg.LogsDir()),
	}, nil
}

// Close releases every store.
func (a *app) Close() {
	a.logger.Close()
	a.runs.Close()
	a.db.Close()
}

// buildInvoker selects the CLI or API invoker from configuration.
func buildInvoker(cfg *config.Config) (assistant.Invoker, error) {
	switch cfg.Assistant.Mode {
	case "", "cli":
		if err := CheckAssistantCLI(cfg.Assistant.Binary); err != nil {
			return nil, err
		}
		return assistant.NewCLIInvoker(cfg.Assistant.Binary), nil
	case "api":
		key, err := config.GetAPIKey(cfg)
		if err != nil && !cfg.Assistant.Bedrock.Enabled {
			return nil, err
		}
		return assistant.NewAPIInvoker(assistant.APIConfig{
			APIKey:     key,
			UseBedrock: cfg.Assistant.Bedrock.Enabled,
			AWSRegion:  cfg.Assistant.Bedrock.Region,
			AWSProfile: cfg.Assistant.Bedrock.Profile,
		})
	default:
		return nil, fmt.Errorf("unknown assistant.mode %q (want cli or api)", cfg.Assistant.Mode)
	}
}

// chatAgent builds the chat tier over the app's stores. Every call's
// invocation record lands in the usage log.
func (a *app) chatAgent() *chat.Agent {
	return chat.NewAgent(a.invoker, a.sessions, a.memory, a.cfg.Tiers.Chat, a.recordInvocation)
}

// newOrchestrator builds a fresh per-run orchestrator.
func (a *app) newOrchestrator(chatID, workDir string, onStatus orchestrator.StatusFunc) *orchestrator.Orchestrator {
	return orchestrator.New(orchestrator.Options{
		Invoker:      a.invoker,
		Registry:     a.registry,
		Tiers:        a.cfg.Tiers,
		Limits:       a.cfg.Limits,
		ChatID:       chatID,
		WorkDir:      workDir,
		OnStatus:     onStatus,
		OnInvocation: a.recordInvocation,
		Logger:       a.logger,
		Runs:         a.runs,
		Restart:      a.restart,
	})
}

// recordInvocation appends one call record to the usage log.
func (a *app) recordInvocation(rec models.InvocationRecord) {
	if err := a.invLog.Append(rec); err != nil {
		fmt.Fprintf(os.Stderr, "warning: invocation not recorded: %v\n", err)
	}
}

// workDir resolves the --dir flag, defaulting to the cwd.
func workDir() string {
	if flagWorkDir != "" {
		return flagWorkDir
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return cwd
}
