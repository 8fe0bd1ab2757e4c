package main

import (
	"fmt"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ccr-hq/gateway/pkg/cli"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running gateway",
	RunE:  runStop,
}

func init() {
	rootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
	pid, err := readPIDFile()
	if err != nil {
		return cli.NewCommandError("stop", fmt.Errorf("no running gateway found"))
	}
	if !processAlive(pid) {
		removePIDFile()
		return cli.NewCommandError("stop", fmt.Errorf("gateway is not running (stale pid file removed)"))
	}

	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		return cli.NewCommandError("stop", fmt.Errorf("signal pid %d: %w", pid, err))
	}

	for i := 0; i < 50; i++ {
		if !processAlive(pid) {
			removePIDFile()
			fmt.Println("Gateway stopped")
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	return cli.NewCommandError("stop", fmt.Errorf("gateway (pid %d) did not exit in time", pid))
}
