package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(
		signalCommand("stop", "Stop the running daemon", syscall.SIGTERM),
		signalCommand("restart", "Restart the running daemon in place", syscall.SIGHUP),
	)
}

// signalCommand builds a command that sends sig to the daemon named in the
// PID file written by serve.
func signalCommand(use, short string, sig syscall.Signal) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := daemonPID(loadConfig().DataDir)
			if err != nil {
				return err
			}
			if err := syscall.Kill(pid, sig); err != nil {
				return fmt.Errorf("signal daemon %d: %w", pid, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sent %v to tenex (PID %d).\n", sig, pid)
			return nil
		},
	}
}

// daemonPID reads the PID file and checks that the process is still alive.
func daemonPID(dataDir string) (int, error) {
	data, err := os.ReadFile(filepath.Join(dataDir, pidFile))
	if errors.Is(err, os.ErrNotExist) {
		return 0, errors.New("tenex is not running (no PID file)")
	}
	if err != nil {
		return 0, fmt.Errorf("read PID file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse PID file: %w", err)
	}
	if err := syscall.Kill(pid, 0); err != nil {
		return 0, fmt.Errorf("tenex is not running (stale PID %d)", pid)
	}
	return pid, nil
}
