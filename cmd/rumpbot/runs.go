package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rumpbot/rumpbot/internal/config"
	"github.com/rumpbot/rumpbot/internal/orchestrator"
)

var flagRunsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show recent orchestration runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		store, err := orchestrator.OpenRunStore(cfg.RunsDBPath())
		if err != nil {
			return fmt.Errorf("open run history: %w", err)
		}
		defer store.Close()

		runs, err := store.Recent(flagRunsLimit)
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}
		if len(runs) == 0 {
			fmt.Println("no runs recorded")
			return nil
		}

		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()

		for _, run := range runs {
			status := run.Status
			switch run.Status {
			case orchestrator.RunStatusCompleted:
				status = green(run.Status)
			case orchestrator.RunStatusFailed:
				status = red(run.Status)
			case orchestrator.RunStatusRunning, orchestrator.RunStatusCanceled:
				status = yellow(run.Status)
			}

			restart := ""
			if run.NeedsRestart {
				restart = "  needs-restart"
			}
			task := run.Task
			if len(task) > 48 {
				task = task[:48] + "..."
			}
			fmt.Printf("%s  %s  %-10s %2d worker(s)  $%.4f  %q%s\n",
				run.ID, run.StartedAt.Format("2006-01-02 15:04"), status,
				run.Workers, run.TotalCostUSD, task, restart)
		}
		return nil
	},
}

func init() {
	runsCmd.Flags().IntVar(&flagRunsLimit, "limit", 20, "How many runs to show")
}
