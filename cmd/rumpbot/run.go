package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rumpbot/rumpbot/pkg/models"
)

var (
	flagRunContext string
	flagRunQuick   bool
)

var runCmd = &cobra.Command{
	Use:   "run <task>",
	Short: "Orchestrate a task directly, skipping chat classification",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		urgency := models.UrgencyNormal
		if flagRunQuick {
			urgency = models.UrgencyQuick
		}
		req := models.WorkRequest{
			Type:    "work_request",
			Task:    strings.Join(args, " "),
			Context: flagRunContext,
			Urgency: urgency,
		}

		orch := a.newOrchestrator(flagChatID, workDir(), printStatus)
		summary, err := orch.Execute(context.Background(), req)
		if err != nil {
			return fmt.Errorf("orchestration: %w", err)
		}
		printSummary(summary)
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&flagRunContext, "context", "", "Extra context handed to the planner")
	runCmd.Flags().BoolVar(&flagRunQuick, "quick", false, "Plan a single fast worker")
}
