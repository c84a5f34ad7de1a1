package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rumpbot/rumpbot/pkg/models"
)

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Send one chat message and print the reply",
	Long: `Runs a single chat turn. If the reply classifies the message as a
work request, the orchestration runs to completion and its summary is
printed after the reply.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		message := strings.Join(args, " ")
		dir := workDir()

		reply, err := a.chatAgent().HandleMessage(cmd.Context(), flagChatID, message, dir)
		if err != nil {
			return fmt.Errorf("chat turn: %w", err)
		}
		fmt.Println(reply.Text)

		if reply.WorkRequest == nil {
			return nil
		}

		fmt.Println()
		orch := a.newOrchestrator(flagChatID, dir, printStatus)
		summary, err := orch.Execute(context.Background(), *reply.WorkRequest)
		if err != nil {
			return fmt.Errorf("orchestration: %w", err)
		}
		printSummary(summary)
		return nil
	},
}

// printStatus writes one status update as a plain line.
func printStatus(update models.StatusUpdate) {
	prefix := "  "
	if update.Important {
		prefix = "! "
	}
	if update.Progress != "" {
		fmt.Printf("%s[%s] %s\n", prefix, update.Progress, update.Message)
		return
	}
	fmt.Printf("%s%s\n", prefix, update.Message)
}

// printSummary writes the run outcome.
func printSummary(summary *models.WorkSummary) {
	fmt.Println()
	fmt.Println(summary.Summary)
	if summary.NeedsRestart {
		fmt.Println("\nThis work looks like it needs a service restart.")
	}
	fmt.Printf("\n%d worker(s), $%.4f total\n", len(summary.WorkerResults), summary.TotalCostUSD)
}
