package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

var (
	flagChatID  string
	flagWorkDir string
)

// CheckAssistantCLI verifies the assistant CLI binary is on PATH.
// Returns an error with installation instructions if not found.
func CheckAssistantCLI(binary string) error {
	if binary == "" {
		binary = "claude"
	}
	if _, err := exec.LookPath(binary); err != nil {
		return fmt.Errorf("%s CLI not found in PATH\n\n"+
			"Rumpbot drives the Claude Code CLI for its agent tiers.\n\n"+
			"Install it with:\n"+
			"  npm install -g @anthropic-ai/claude-code\n\n"+
			"Or point rumpbot at another binary:\n"+
			"  rumpbot config assistant.binary /path/to/cli", binary)
	}
	return nil
}

var rootCmd = &cobra.Command{
	Use:   "rumpbot",
	Short: "Chat-driven agent orchestration runtime",
	Long: `Rumpbot bridges a chat conversation to an external AI coding
assistant through three tiers: a chat agent that classifies each
message, an orchestrator that plans real work, and a supervised pool
of worker agents that execute it.

With no arguments, launches the interactive chat surface. Type
messages; when one needs real work, rumpbot plans it, runs workers,
streams status, and reports a summary. /kill and /retry control
running workers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagChatID, "chat-id", "default", "Chat identity for sessions and memory")
	rootCmd.PersistentFlags().StringVar(&flagWorkDir, "dir", "", "Working directory for assistant calls (default: cwd)")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(killCmd)
	rootCmd.AddCommand(retryCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(memoryCmd)
	rootCmd.AddCommand(usageCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
