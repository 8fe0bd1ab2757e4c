package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// uiCmd is a placeholder passthrough to an external web UI for the gateway.
// No UI ships with this module; the command exists so operators have a
// stable entry point once one is wired up.
var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Open the gateway's web UI (not bundled)",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("no web UI is bundled with this gateway; point a browser at the Control API directly")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uiCmd)
}
