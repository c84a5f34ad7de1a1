package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rumpbot/rumpbot/internal/config"
	"github.com/rumpbot/rumpbot/internal/state"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions [clear]",
	Short: "List or clear stored assistant sessions",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		store, err := state.NewSessionStore(cfg.SessionsPath())
		if err != nil {
			return fmt.Errorf("open session store: %w", err)
		}

		if len(args) == 1 && args[0] == "clear" {
			n, err := store.ClearAll()
			if err != nil {
				return fmt.Errorf("clear sessions: %w", err)
			}
			fmt.Printf("cleared %d session(s)\n", n)
			return nil
		}

		entries := store.List()
		if len(entries) == 0 {
			fmt.Println("no stored sessions")
			return nil
		}
		for _, e := range entries {
			fmt.Printf("%-16s %-12s %s  (last used %s)\n",
				e.ChatID, e.Tier, e.Data.SessionID,
				e.Data.LastUsedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}
