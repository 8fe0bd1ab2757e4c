package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"ccr-hq/gateway/pkg/cli"
)

var statusFlags struct {
	output string
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether the gateway is running",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVarP(&statusFlags.output, "output", "o", "text", "output format: text or json")
}

func runStatus(cmd *cobra.Command, args []string) error {
	result := map[string]any{"running": false}

	pid, err := readPIDFile()
	if err == nil && processAlive(pid) {
		result["running"] = true
		result["pid"] = pid

		client := newControlClient()
		status, body, err := client.do(http.MethodGet, "/config/status", nil)
		switch {
		case err != nil:
			result["controlAPI"] = fmt.Sprintf("unreachable (%v)", err)
		case status != http.StatusOK:
			result["controlAPI"] = fmt.Sprintf("responded %d", status)
		default:
			result["coordinatorState"] = body["status"]
		}
	}

	if cli.OutputFormat(statusFlags.output) == cli.FormatJSON {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, result)
	}

	if running, _ := result["running"].(bool); !running {
		fmt.Println("Gateway: not running")
		return nil
	}
	fmt.Printf("Gateway: running (pid %v)\n", result["pid"])
	if s, ok := result["controlAPI"].(string); ok {
		fmt.Printf("Control API: %s\n", s)
		return nil
	}
	fmt.Printf("Coordinator state: %v\n", result["coordinatorState"])
	return nil
}
