package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	cfgPath    string
	apiAddr    string
	apiToken   string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "ccr",
	Short: "Router gateway for coding-assistant clients",
	Long: `ccr starts and controls a gateway that sits between a coding-assistant
client and a pool of LLM providers, choosing which provider and model handles
each request based on a hot-reloadable routing configuration.

For more information, run "ccr help <command>".`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	home, _ := os.UserHomeDir()
	defaultConfig := filepath.Join(home, ".ccr", "config.json")

	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", defaultConfig, "routing config file path")
	rootCmd.PersistentFlags().StringVar(&apiAddr, "api-addr", "http://127.0.0.1:3456", "Control API base URL")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", os.Getenv("CCR_TOKEN"), "Control API bearer token (defaults to $CCR_TOKEN)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.CompletionOptions.DisableDefaultCmd = false
}
