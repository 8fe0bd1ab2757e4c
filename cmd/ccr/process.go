package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
)

// spawnDetached launches exe with args as a session-leader background
// process, detached from the current terminal, with stdout/stderr
// redirected to a log file under the state directory.
func spawnDetached(exe string, args []string) (*os.Process, error) {
	home, _ := os.UserHomeDir()
	stateDir := filepath.Join(home, ".ccr")
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, err
	}

	logFile, err := os.OpenFile(filepath.Join(stateDir, "ccr.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(exe, args...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Stdin = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		logFile.Close()
		return nil, err
	}
	return cmd.Process, nil
}
