package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rumpbot/rumpbot/internal/config"
	"github.com/rumpbot/rumpbot/internal/state"
	"github.com/rumpbot/rumpbot/pkg/models"
)

var memoryCmd = &cobra.Command{
	Use:   "memory [add <text> | clear]",
	Short: "List, add, or clear the chat's memory notes",
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
		store := state.NewMemoryStore(db)

		switch {
		case len(args) == 0:
			notes, err := store.Notes(flagChatID)
			if err != nil {
				return fmt.Errorf("list notes: %w", err)
			}
			if len(notes) == 0 {
				fmt.Println("no memory notes")
				return nil
			}
			for _, note := range notes {
				fmt.Printf("%s  [%s]  %s\n", note.ID, note.Source, note.Text)
			}
			return nil

		case args[0] == "add":
			if len(args) < 2 {
				return fmt.Errorf("usage: rumpbot memory add <text>")
			}
			note, err := store.Add(flagChatID, strings.Join(args[1:], " "), models.NoteSourceManual)
			if err != nil {
				return fmt.Errorf("add note: %w", err)
			}
			fmt.Printf("added note %s\n", note.ID)
			return nil

		case args[0] == "clear":
			n, err := store.Clear(flagChatID)
			if err != nil {
				return fmt.Errorf("clear notes: %w", err)
			}
			fmt.Printf("cleared %d note(s)\n", n)
			return nil

		default:
			return fmt.Errorf("unknown subcommand %q", args[0])
		}
	},
}
