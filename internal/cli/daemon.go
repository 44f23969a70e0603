package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/davidfries/hooky/internal/cli/output"
)

// start/stop/status manage a background server process through a pidfile in
// ~/.hooky, with the server's output redirected to a log file there.

var (
	startCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the hooky server in the background",
		RunE:  runStart,
	}

	stopCmd = &cobra.Command{
		Use:   "stop",
		Short: "Stop the background hooky server",
		RunE:  runStop,
	}

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show whether the server is running and which backend it uses",
		RunE:  runStatus,
	}
)

var startConfigPath string

func init() {
	startCmd.Flags().StringVar(&startConfigPath, "config", "", "path to server config file")
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
}

func hookyDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".hooky")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return dir, nil
}

func pidFile() (string, error) {
	dir, err := hookyDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "hooky.pid"), nil
}

// runningPID returns the recorded server PID, or 0 when no live process is
// found. Stale pidfiles are cleaned up on the way through.
func runningPID() (int, error) {
	path, err := pidFile()
	if err != nil {
		return 0, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		os.Remove(path)
		return 0, nil
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		os.Remove(path)
		return 0, nil
	}
	if err := process.Signal(syscall.Signal(0)); err != nil {
		os.Remove(path)
		return 0, nil
	}
	return pid, nil
}

func runStart(cmd *cobra.Command, args []string) error {
	pid, err := runningPID()
	if err != nil {
		return err
	}
	if pid != 0 {
		output.Warn("Server already running (pid %d)", pid)
		return nil
	}

	dir, err := hookyDir()
	if err != nil {
		return err
	}

	logPath := filepath.Join(dir, "server.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()

	exe, err := os.Executable()
	if err != nil {
		return err
	}

	serveArgs := []string{"serve"}
	if startConfigPath != "" {
		serveArgs = append(serveArgs, "--config", startConfigPath)
	}

	child := exec.Command(exe, serveArgs...)
	child.Stdout = logFile
	child.Stderr = logFile
	if err := child.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	path, err := pidFile()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(child.Process.Pid)), 0600); err != nil {
		return err
	}

	output.Success("Server started (pid %d), logging to %s", child.Process.Pid, logPath)
	return nil
}

func runStop(cmd *cobra.Command, args []string) error {
	pid, err := runningPID()
	if err != nil {
		return err
	}
	if pid == 0 {
		output.Warn("Server is not running")
		return nil
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	// give it a moment to shut down before reporting
	for i := 0; i < 20; i++ {
		if err := process.Signal(syscall.Signal(0)); err != nil {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	if path, err := pidFile(); err == nil {
		os.Remove(path)
	}

	output.Success("Server stopped (pid %d)", pid)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	pid, err := runningPID()
	if err != nil {
		return err
	}
	if pid == 0 {
		output.Warn("Server is not running")
		return nil
	}

	output.Success("Server running (pid %d)", pid)

	status, err := apiClient().Health()
	if err != nil {
		output.Warn("Server not responding: %v", err)
		return nil
	}
	output.Info("Backend: %s", status["backend"])
	return nil
}
