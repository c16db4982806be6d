package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"qbridge/internal/config"
	"qbridge/internal/daemon"
	"qbridge/internal/fileutil"
	"qbridge/internal/ipc"
	"qbridge/internal/logging"
	"qbridge/internal/metrics"
	"qbridge/internal/notifications"
	"qbridge/internal/objects"
	"qbridge/internal/questions"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	Diagnostic  bool
}

// Run connects to the question service, serves the control socket and HTTP
// API, and blocks until a signal or a Stop request arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	logger, err := newLogger(cfg, opts)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	// The lock comes before the pid file and the control socket so a second
	// daemon cannot clobber either while the first one is running.
	lock, err := daemon.AcquireInstanceLock(cfg.LockPath())
	if err != nil {
		logging.ErrorWithContext(logger, "daemon lock unavailable", "daemon_lock_failed",
			logging.Error(err),
			logging.String("lock", cfg.LockPath()),
			logging.String(logging.FieldErrorHint, "use qbridge status or qbridge stop to manage the running daemon"),
		)
		return err
	}
	defer lock.Release()

	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	conn, err := objects.Dial(signalCtx, cfg.DBus.Bus, cfg.DBus.Address)
	if err != nil {
		logging.ErrorWithContext(logger, "connect to bus", "bus_connect_failed",
			logging.Error(err),
			logging.String("bus", cfg.DBus.Bus),
			logging.String("address", cfg.DBus.Address),
			logging.String(logging.FieldErrorHint, "check dbus.address and that the installer is running"),
		)
		return err
	}
	defer conn.Close()

	dir, err := objects.Connect(signalCtx, conn, cfg.DBus.Service, cfg.DBus.RootPath, logger)
	if err != nil {
		logging.ErrorWithContext(logger, "reach question service", "object_manager_unreachable",
			logging.Error(err),
			logging.String("service", cfg.DBus.Service),
			logging.String(logging.FieldObjectPath, cfg.DBus.RootPath),
			logging.String(logging.FieldErrorHint, "check dbus.service and dbus.root_path"),
		)
		return err
	}

	d, err := daemon.New(cfg,
		questions.NewDirectory(dir, dir.Root(), logger),
		questions.NewMerger(dir, logger),
		metrics.NewCollector(""),
		logger,
	)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()
	if err := d.UseInstanceLock(lock); err != nil {
		return err
	}
	d.UseNotifier(notifications.NewService(cfg))

	runCtx, stop := context.WithCancel(signalCtx)
	defer stop()

	ipcServer, err := ipc.NewServer(runCtx, cfg.SocketPath(), d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.OnStop(stop)
	ipcServer.Serve()

	if err := d.Start(runCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that api.bind is free"),
			logging.String(logging.FieldImpact, "questions are not served"),
		)
		return err
	}

	<-runCtx.Done()
	logger.Info("qbridge daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

func newLogger(cfg *config.Config, opts Options) (*slog.Logger, error) {
	effective := *cfg
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		effective.Logging.Level = level
	}
	if opts.Diagnostic {
		effective.Logging.Level = "debug"
	}
	logger, err := logging.NewFromConfig(&effective)
	if err != nil {
		return nil, err
	}
	if opts.Development {
		logger = logger.With(logging.Bool("development", true))
	}
	if opts.Diagnostic {
		sessionID := uuid.NewString()
		logger = logger.With(logging.String(logging.FieldSessionID, sessionID))
		logger.Info("diagnostic mode enabled",
			logging.String(logging.FieldEventType, "diagnostic_mode_enabled"),
			logging.String(logging.FieldSessionID, sessionID),
		)
	}
	return logger, nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return fileutil.WriteAtomic(path, []byte(value), 0o644)
}
