package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rumpbot/rumpbot/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the rumpbot version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("rumpbot %s\n", version.Get())
	},
}
