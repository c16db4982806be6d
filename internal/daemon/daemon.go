package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"qbridge/internal/config"
	"qbridge/internal/logging"
	"qbridge/internal/metrics"
	"qbridge/internal/notifications"
	"qbridge/internal/questions"
)

// QuestionService lists pending questions and writes answers.
type QuestionService interface {
	List(ctx context.Context) ([]questions.Question, error)
	SubmitAnswer(ctx context.Context, id uint32, answer questions.Answer) error
}

// ChangeFeed opens a stream of change impulses.
type ChangeFeed interface {
	Changes(ctx context.Context) (<-chan questions.Event, error)
}

// Daemon serves the question bridge and enforces single-instance execution.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	questions QuestionService
	changes   ChangeFeed
	metrics   *metrics.Collector
	notifier  notifications.Service
	api       *apiServer

	lockPath string
	lock     *InstanceLock

	mu        sync.Mutex
	running   atomic.Bool
	watchers  atomic.Int64
	startedAt time.Time
	cancel    context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	LockFilePath string
	APIAddress   string
	Bus          string
	Service      string
	RootPath     string
	StartedAt    time.Time
	Watchers     int
}

// New constructs a daemon. A nil collector gets a private one.
func New(cfg *config.Config, svc QuestionService, feed ChangeFeed, collector *metrics.Collector, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || svc == nil || feed == nil {
		return nil, errors.New("daemon requires config, question service, and change feed")
	}
	if collector == nil {
		collector = metrics.NewCollector("")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		questions: svc,
		changes:   feed,
		metrics:   collector,
		notifier:  notifications.NewService(nil),
		lockPath:  lockPath,
	}
	d.api = newAPIServer(cfg.API.Bind, d, logger)
	return d, nil
}

// UseNotifier replaces the publisher for pending question announcements. It
// must be called before Start.
func (d *Daemon) UseNotifier(svc notifications.Service) {
	if svc == nil {
		svc = notifications.NewService(nil)
	}
	d.mu.Lock()
	d.notifier = svc
	d.mu.Unlock()
}

// UseInstanceLock hands a lock taken with AcquireInstanceLock to the daemon,
// which releases it on Stop. It must be called before Start.
func (d *Daemon) UseInstanceLock(lock *InstanceLock) error {
	if lock == nil || lock.Path() != d.lockPath {
		return fmt.Errorf("instance lock does not guard %s", d.lockPath)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lock != nil {
		return errors.New("daemon already holds its lock")
	}
	d.lock = lock
	return nil
}

// Start acquires the daemon lock unless one was handed over, then starts the
// HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if d.lock == nil {
		lock, err := AcquireInstanceLock(d.lockPath)
		if err != nil {
			return err
		}
		d.lock = lock
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.api.start(runCtx); err != nil {
		cancel()
		d.releaseLock()
		return fmt.Errorf("start api server: %w", err)
	}

	if d.notifier.Enabled() {
		go d.announcePending(runCtx, d.notifier)
	}

	d.cancel = cancel
	d.startedAt = time.Now()
	d.running.Store(true)
	d.logger.Info("qbridge daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("api", d.api.address()),
	)
	return nil
}

// Stop shuts the API down and releases the daemon lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	if !d.running.Load() {
		d.mu.Unlock()
		return
	}
	cancel := d.cancel
	d.cancel = nil
	d.running.Store(false)
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	d.api.stop()
	d.mu.Lock()
	d.releaseLock()
	d.mu.Unlock()
	d.logger.Info("qbridge daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close stops the daemon and releases a lock that was handed over but never
// used by Start.
func (d *Daemon) Close() error {
	d.Stop()
	d.mu.Lock()
	d.releaseLock()
	d.mu.Unlock()
	return nil
}

// releaseLock must be called with d.mu held.
func (d *Daemon) releaseLock() {
	if d.lock == nil {
		return
	}
	if err := d.lock.Release(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the lock file if no daemon is running"),
			logging.String(logging.FieldImpact, "the next start may report another instance"),
		)
	}
	d.lock = nil
}

func (d *Daemon) announcePending(ctx context.Context, notifier notifications.Service) {
	if err := notifications.NewPendingNotifier(d, notifier, d.logger).Run(ctx); err != nil && ctx.Err() == nil {
		logging.WarnWithContext(d.logger, "question notifications stopped", "notifications_stopped",
			logging.Error(err),
			logging.String(logging.FieldImpact, "new questions are no longer pushed to ntfy"),
		)
	}
}

// TestNotification publishes a test message and reports whether one was sent.
func (d *Daemon) TestNotification(ctx context.Context) (bool, error) {
	d.mu.Lock()
	notifier := d.notifier
	d.mu.Unlock()
	if !notifier.Enabled() {
		return false, nil
	}
	if err := notifier.Publish(ctx, notifications.EventTest, nil); err != nil {
		return false, err
	}
	return true, nil
}

// Handler returns the HTTP API router.
func (d *Daemon) Handler() http.Handler {
	return d.api.router
}

// ListQuestions returns every pending question.
func (d *Daemon) ListQuestions(ctx context.Context) ([]questions.Question, error) {
	items, err := d.questions.List(ctx)
	d.metrics.RecordListing(err)
	return items, err
}

// SubmitAnswer forwards an answer to the question with the given id.
func (d *Daemon) SubmitAnswer(ctx context.Context, id uint32, answer questions.Answer) error {
	err := d.questions.SubmitAnswer(ctx, id, answer)
	variant := questions.VariantGeneric
	if answer.WithPassword != nil {
		variant = questions.VariantWithPassword
	}
	d.metrics.RecordAnswer(variant.String(), err)
	return err
}

// Changes opens a change stream bound to ctx.
func (d *Daemon) Changes(ctx context.Context) (<-chan questions.Event, error) {
	return d.changes.Changes(ctx)
}

// Metrics exposes the collector backing /metrics.
func (d *Daemon) Metrics() *metrics.Collector {
	return d.metrics
}

func (d *Daemon) watcherConnected() {
	d.watchers.Add(1)
	d.metrics.WatcherConnected()
}

func (d *Daemon) watcherDisconnected() {
	d.watchers.Add(-1)
	d.metrics.WatcherDisconnected()
}

// Status returns the current daemon status.
func (d *Daemon) Status(context.Context) Status {
	d.mu.Lock()
	startedAt := d.startedAt
	d.mu.Unlock()

	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		LockFilePath: d.lockPath,
		Bus:          d.cfg.DBus.Bus,
		Service:      d.cfg.DBus.Service,
		RootPath:     d.cfg.DBus.RootPath,
		Watchers:     int(d.watchers.Load()),
	}
	if status.Running {
		status.APIAddress = d.api.address()
		status.StartedAt = startedAt
	}
	return status
}
