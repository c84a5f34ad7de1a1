package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rumpbot/rumpbot/internal/config"
	"github.com/rumpbot/rumpbot/internal/control"
)

var killCmd = &cobra.Command{
	Use:   "kill [worker-number]",
	Short: "Signal the running orchestration to stop, or kill one worker",
	Long: `Drops a control file into the signals directory. The interactive
process watching that directory cancels the whole run ("kill") or the
named worker ("kill-<n>").`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := "kill"
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return fmt.Errorf("worker number must be a positive integer, got %q", args[0])
			}
			name = fmt.Sprintf("kill-%d", n)
		}
		return writeSignal(name)
	},
}

var retryCmd = &cobra.Command{
	Use:   "retry <worker-number>",
	Short: "Signal the running orchestration to re-run one worker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return fmt.Errorf("worker number must be a positive integer, got %q", args[0])
		}
		return writeSignal(fmt.Sprintf("retry-%d", n))
	},
}

func writeSignal(name string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := control.WriteSignal(cfg.SignalsDir(), name); err != nil {
		return fmt.Errorf("write signal: %w", err)
	}
	fmt.Printf("signal %s written to %s\n", name, cfg.SignalsDir())
	return nil
}
