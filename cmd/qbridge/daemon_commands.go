package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"qbridge/internal/daemonctl"
	"qbridge/internal/ipc"
	"qbridge/internal/preflight"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	var startDiagnostic bool
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the qbridge daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}
			result, err := daemonctl.EnsureStarted(
				ctx.socketPath(),
				exe,
				daemonctl.LaunchOptions{ConfigPath: ctx.configPath(), Diagnostic: startDiagnostic},
				10*time.Second,
			)
			if err != nil {
				return err
			}
			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintf(stdout, "Daemon started (pid %d)\n", result.PID)
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintf(stdout, "Daemon already running (pid %d)\n", result.PID)
			}
			return nil
		},
	}
	startCmd.Flags().BoolVar(&startDiagnostic, "diagnostic", false, "Enable diagnostic mode with DEBUG logs")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the qbridge daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			result, err := daemonctl.StopAndTerminate(ctx.socketPath(), cfg, 5*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if !result.StopAcknowledged {
				fmt.Fprintln(stdout, "Stop request sent")
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(stdout, "Killed daemon process (pid %d)\n", result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and readiness checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			snapshot, err := daemonctl.BuildStatusSnapshot(cmd.Context(), ctx.socketPath(), cfg)
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			writeStatus(stdout, snapshot, shouldColorize(stdout))
			return nil
		},
	}

	return []*cobra.Command{startCmd, stopCmd, statusCmd}
}

func writeStatus(w io.Writer, snapshot *daemonctl.StatusSnapshot, colorize bool) {
	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(w, line)
	}
	for _, line := range daemonLines(snapshot.Daemon, colorize) {
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w)

	for _, line := range renderSectionHeader("Checks", colorize) {
		fmt.Fprintln(w, line)
	}
	for _, line := range checkLines(snapshot.Checks, colorize) {
		fmt.Fprintln(w, line)
	}
}

func daemonLines(status *ipc.StatusResponse, colorize bool) []string {
	if status == nil || !status.Running {
		return []string{renderStatusLine("qbridge", statusWarn, "Not running (run `qbridge start`)", colorize)}
	}
	api := "disabled"
	if status.APIAddress != "" {
		api = status.APIAddress
	}
	return []string{
		renderStatusLine("qbridge", statusOK, "Running (pid "+strconv.Itoa(status.PID)+")", colorize),
		renderStatusLine("Started", statusInfo, status.StartedAt, colorize),
		renderStatusLine("HTTP API", statusInfo, api, colorize),
		renderStatusLine("Question root", statusInfo, status.Service+" "+status.RootPath, colorize),
		renderStatusLine("Watchers", statusInfo, strconv.Itoa(status.Watchers), colorize),
	}
}

func checkLines(checks []preflight.Result, colorize bool) []string {
	lines := make([]string, 0, len(checks))
	for _, check := range checks {
		kind := statusError
		switch {
		case check.Skipped:
			kind = statusInfo
		case check.Passed:
			kind = statusOK
		}
		lines = append(lines, renderStatusLine(check.Name, kind, check.Detail, colorize))
	}
	return lines
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}
