package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"ccr-hq/gateway/pkg/cli"
)

// codeCmd is a passthrough to the coding-assistant client binary, pointing
// it at the gateway instead of a provider's own endpoint. The gateway does
// not ship the client itself; this just sets the environment variable the
// client reads for its base URL and execs it.
var codeCmd = &cobra.Command{
	Use:                "code [-- args...]",
	Short:              "Launch the coding-assistant client against this gateway",
	DisableFlagParsing: true,
	RunE:               runCode,
}

func init() {
	rootCmd.AddCommand(codeCmd)
}

func runCode(cmd *cobra.Command, args []string) error {
	bin, err := exec.LookPath("claude")
	if err != nil {
		return cli.NewCommandError("code", fmt.Errorf("coding-assistant client %q not found on PATH", "claude"))
	}

	env := append(os.Environ(), "ANTHROPIC_BASE_URL="+apiAddr)
	proc := exec.Command(bin, args...)
	proc.Env = env
	proc.Stdin, proc.Stdout, proc.Stderr = os.Stdin, os.Stdout, os.Stderr

	if err := proc.Run(); err != nil {
		return cli.NewCommandError("code", err)
	}
	return nil
}
