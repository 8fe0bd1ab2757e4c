package main

import (
	"github.com/spf13/cobra"
)

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the gateway",
	Long:  `Equivalent to "ccr stop" followed by "ccr start".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if pid, err := readPIDFile(); err == nil && processAlive(pid) {
			if err := runStop(cmd, nil); err != nil {
				return err
			}
		}
		return runStart(cmd, nil)
	},
}

func init() {
	rootCmd.AddCommand(restartCmd)
}
