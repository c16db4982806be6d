package preflight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"qbridge/internal/api"
	"qbridge/internal/config"
	"qbridge/internal/objects"
)

const checkTimeout = 5 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckBusSocket verifies that the socket behind a unix:path= bus address
// exists and can be opened for reading and writing. System and session buses
// and non-path transports are skipped.
func CheckBusSocket(cfg *config.Config) Result {
	const name = "Bus socket"

	path := cfg.BusSocketPath()
	if path == "" {
		return Result{Name: name, Passed: true, Skipped: true, Detail: fmt.Sprintf("not applicable (bus %s)", cfg.DBus.Bus)}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if info.Mode()&os.ModeSocket == 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not a socket)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckObjectManager dials the configured bus and confirms the question
// service answers an enumeration at the root path.
func CheckObjectManager(ctx context.Context, cfg *config.Config) Result {
	const name = "Question service"

	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	conn, err := objects.Dial(checkCtx, cfg.DBus.Bus, cfg.DBus.Address)
	if err != nil {
		return Result{Name: name, Detail: summarizeBusError(err)}
	}
	defer conn.Close()

	dir, err := objects.Connect(checkCtx, conn, cfg.DBus.Service, cfg.DBus.RootPath, nil)
	if err != nil {
		return Result{Name: name, Detail: summarizeBusError(err)}
	}
	managed, err := dir.ListManaged(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeBusError(err)}
	}
	return Result{
		Name:   name,
		Passed: true,
		Detail: fmt.Sprintf("%s at %s (%d pending)", cfg.DBus.Service, cfg.DBus.RootPath, len(managed)),
	}
}

// CheckAPI verifies that a daemon answers GET /api/status on bind.
func CheckAPI(ctx context.Context, bind string) Result {
	const name = "HTTP API"

	base := strings.TrimSpace(bind)
	if base == "" {
		return Result{Name: name, Passed: true, Skipped: true, Detail: "disabled"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	client := &http.Client{Timeout: checkTimeout}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, api.BaseURL(base)+"/api/status", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("status check failed (%v)", err)}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("unreachable (%v)", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{Name: name, Detail: fmt.Sprintf("status check failed (%d)", resp.StatusCode)}
	}
	var status api.DaemonStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("unexpected response (%v)", err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("Reachable (%d watchers)", status.Watchers)}
}

func summarizeBusError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out (question service unresponsive)"
	}
	return err.Error()
}
