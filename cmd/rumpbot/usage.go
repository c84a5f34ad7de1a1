package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rumpbot/rumpbot/internal/config"
	"github.com/rumpbot/rumpbot/internal/state"
)

var flagUsageDays int

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show assistant invocation totals and per-day cost",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		db, err := state.Open(cfg.StateDBPath())
		if err != nil {
			return fmt.Errorf("open state database: %w", err)
		}
		defer db.Close()
		if err := db.Migrate(); err != nil {
			return fmt.Errorf("migrate state database: %w", err)
		}
		invLog := state.NewInvocationLog(db)

		totals, err := invLog.Totals()
		if err != nil {
			return fmt.Errorf("usage totals: %w", err)
		}

		bold := color.New(color.Bold)
		green := color.New(color.FgGreen)
		red := color.New(color.FgRed)

		bold.Println("Assistant usage")
		fmt.Printf("  calls:    %d", totals.Calls)
		if totals.Errors > 0 {
			red.Printf("  (%d errors)", totals.Errors)
		}
		fmt.Println()
		green.Printf("  cost:     $%.4f\n", totals.CostUSD)
		fmt.Printf("  time:     %.1fs\n", float64(totals.DurationMs)/1000)
		fmt.Printf("  tokens:   %d in / %d out\n", totals.InputTokens, totals.OutputTokens)

		tiers, err := invLog.PerTier()
		if err != nil {
			return fmt.Errorf("per-tier usage: %w", err)
		}
		if len(tiers) > 0 {
			fmt.Println()
			bold.Println("By tier")
			for _, t := range tiers {
				fmt.Printf("  %-14s %4d calls  $%.4f\n", t.Tier, t.Calls, t.CostUSD)
			}
		}

		days, err := invLog.PerDay(flagUsageDays)
		if err != nil {
			return fmt.Errorf("per-day usage: %w", err)
		}
		if len(days) > 0 {
			fmt.Println()
			bold.Printf("Last %d day(s)\n", flagUsageDays)
			for _, d := range days {
				fmt.Printf("  %s  %4d calls  $%.4f\n", d.Day, d.Calls, d.CostUSD)
			}
		}
		return nil
	},
}

func init() {
	usageCmd.Flags().IntVar(&flagUsageDays, "days", 7, "How many UTC days of per-day rollup to show")
}
