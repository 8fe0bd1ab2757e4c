package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"ccr-hq/gateway/internal/api"
	"ccr-hq/gateway/internal/dynamicrouter"
	"ccr-hq/gateway/pkg/cli"
	"ccr-hq/gateway/pkg/telemetry/logging"
)

var startFlags struct {
	foreground bool
	listenAddr string
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the gateway",
	Long: `Start the gateway's Dynamic Router and Control API.

By default ccr forks a background process and returns immediately; use
--foreground to run in the current terminal (useful under a process
supervisor, or for debugging).`,
	RunE: runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)

	startCmd.Flags().BoolVar(&startFlags.foreground, "foreground", false, "run in the foreground instead of forking a background process")
	startCmd.Flags().StringVarP(&startFlags.listenAddr, "listen", "l", ":3456", "Control API listen address")
}

func runStart(cmd *cobra.Command, args []string) error {
	if pid, err := readPIDFile(); err == nil && processAlive(pid) {
		return cli.NewCommandError("start", fmt.Errorf("gateway already running (pid %d)", pid))
	}

	if !startFlags.foreground {
		return forkBackground()
	}

	return runForeground(cfgPath, startFlags.listenAddr)
}

func forkBackground() error {
	exe, err := os.Executable()
	if err != nil {
		return cli.NewCommandError("start", err)
	}

	args := []string{"start", "--foreground", "--config", cfgPath, "--listen", startFlags.listenAddr}
	proc, err := spawnDetached(exe, args)
	if err != nil {
		return cli.NewCommandError("start", fmt.Errorf("fork background process: %w", err))
	}
	if err := writePIDFile(proc.Pid); err != nil {
		return cli.NewCommandError("start", err)
	}

	fmt.Printf("Gateway started in background (pid %d)\n", proc.Pid)
	fmt.Printf("Control API: http://127.0.0.1%s\n", startFlags.listenAddr)
	return nil
}

func runForeground(configPath, listenAddr string) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cli.NewConfigError(configPath, "routing config file not found; create one or pass --config")
	}

	ctx := cli.SetupSignalHandler()

	appLogger, err := logging.New(logging.Config{
		Format:    string(logging.FormatJSON),
		Writer:    os.Stdout,
		RedactPII: true,
	})
	if err != nil {
		return cli.NewCommandError("start", fmt.Errorf("build logger: %w", err))
	}
	defer appLogger.Shutdown()
	logger := appLogger.Slog()
	slog.SetDefault(logger)

	coord, err := dynamicrouter.New(dynamicrouter.Options{
		ConfigPath:        configPath,
		RollbackOnFailure: true,
		HotReloadEnabled:  true,
		Logger:            logger,
	})
	if err != nil {
		return cli.NewCommandError("start", fmt.Errorf("build coordinator: %w", err))
	}

	if err := coord.Initialize(ctx, nil); err != nil {
		return cli.NewCommandError("start", fmt.Errorf("initial load: %w", err))
	}
	if err := coord.Start(ctx); err != nil {
		return cli.NewCommandError("start", fmt.Errorf("start watcher: %w", err))
	}
	defer coord.Shutdown(context.Background())

	server := api.NewServer(coord, api.Options{
		Addr:        listenAddr,
		StaticToken: os.Getenv("CCR_TOKEN"),
		Logger:      logger,
		Restart: func() error {
			return fmt.Errorf("restart: send SIGTERM via 'ccr restart' from another terminal")
		},
	})

	fmt.Printf("Gateway listening on %s\n", listenAddr)
	if err := server.Start(ctx); err != nil && ctx.Err() == nil {
		return cli.NewCommandError("start", err)
	}
	fmt.Println("gateway stopped")
	return nil
}
