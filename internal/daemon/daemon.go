package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"log/slog"

	"github.com/gofrs/flock"

	"marquee/internal/animations"
	"marquee/internal/config"
	"marquee/internal/deps"
	"marquee/internal/history"
	"marquee/internal/logging"
	"marquee/internal/notifications"
	"marquee/internal/preflight"
	"marquee/internal/presets"
	"marquee/internal/sign"
)

// Daemon bundles the sign controller with the HTTP API, adapter monitor,
// and single-instance lock.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	controller *sign.Controller
	library    *animations.Library
	presetSet  *presets.Set
	store      *history.Store
	notifier   notifications.Service
	logPath    string

	lockPath string
	lock     *flock.Flock

	api     *apiServer
	monitor *adapterMonitor

	running    atomic.Bool
	shutdownFn func()
}

// Status represents daemon runtime information.
type Status struct {
	Running           bool
	PID               int
	Sign              sign.ControllerStatus
	LockPath          string
	LogPath           string
	HistoryPath       string
	AnimationsDir     string
	NetlinkMonitoring bool
	Checks            []preflight.Result
	Dependencies      []deps.Status
}

// New constructs a daemon with initialized dependencies. The history store
// may be nil when history is disabled.
func New(cfg *config.Config, controller *sign.Controller, library *animations.Library, presetSet *presets.Set, store *history.Store, notifier notifications.Service, logger *slog.Logger, logPath string) (*Daemon, error) {
	if cfg == nil || controller == nil || library == nil || presetSet == nil {
		return nil, errors.New("daemon requires config, controller, library, and presets")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewNoopService()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "marqueed.lock")
	d := &Daemon{
		cfg:        cfg,
		logger:     logger,
		controller: controller,
		library:    library,
		presetSet:  presetSet,
		store:      store,
		notifier:   notifier,
		logPath:    logPath,
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	d.monitor = newAdapterMonitor(logger, controller.Kick)
	return d, nil
}

// OnShutdownRequest registers fn to run when a client asks the daemon
// process to exit. Call before Start.
func (d *Daemon) OnShutdownRequest(fn func()) {
	d.shutdownFn = fn
}

// RequestShutdown asks the daemon process to exit. The caller gets an
// acknowledgement immediately; teardown happens on the run loop.
func (d *Daemon) RequestShutdown() {
	if d.shutdownFn != nil {
		d.shutdownFn()
	}
}

// Start acquires the instance lock and brings up the controller, HTTP API,
// and adapter monitor.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another marquee daemon instance is already running")
	}

	if err := d.controller.Start(ctx); err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("start sign worker: %w", err)
	}
	if err := d.api.start(ctx); err != nil {
		d.controller.Stop()
		_ = d.lock.Unlock()
		return fmt.Errorf("start api server: %w", err)
	}
	_ = d.monitor.Start(ctx)

	d.running.Store(true)
	d.logger.Info("marquee daemon started",
		logging.String("lock", d.lockPath),
		logging.String("device", d.controller.Status().Device),
	)
	return nil
}

// Stop shuts down the monitor, API, and controller and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.monitor.Stop()
	d.api.stop()
	d.controller.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("marquee daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// Play queues the named animation and waits for its outcome.
func (d *Daemon) Play(ctx context.Context, name string) (sign.Result, error) {
	return d.controller.Play(ctx, name)
}

// Off queues the blank animation.
func (d *Daemon) Off(ctx context.Context) (sign.Result, error) {
	return d.controller.Off(ctx)
}

// Resume replays the last non-blank animation.
func (d *Daemon) Resume(ctx context.Context) (sign.Result, error) {
	return d.controller.Resume(ctx)
}

// Message queues scrolling text.
func (d *Daemon) Message(ctx context.Context, spec sign.TextSpec) (sign.Result, error) {
	return d.controller.Message(ctx, spec)
}

// Preset queues a named preset, optionally overriding its text.
func (d *Daemon) Preset(ctx context.Context, name, overrideText string) (sign.Result, error) {
	return d.controller.Preset(ctx, name, overrideText)
}

// Animations lists the library contents.
func (d *Daemon) Animations() ([]animations.Entry, error) {
	return d.library.List()
}

// Presets returns the loaded preset set.
func (d *Daemon) Presets() *presets.Set {
	return d.presetSet
}

// History returns the most recent playback records, newest first. Returns
// nothing when history is disabled.
func (d *Daemon) History(ctx context.Context, limit int) ([]history.Record, error) {
	if d.store == nil {
		return nil, nil
	}
	return d.store.Recent(ctx, limit)
}

// TestNotification sends a test message through the configured notifier.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Kick cuts the current reconnect wait short.
func (d *Daemon) Kick() {
	d.controller.Kick()
}

// Status returns the current daemon status including preflight and
// dependency snapshots.
func (d *Daemon) Status() Status {
	status := Status{
		Running:           d.running.Load(),
		PID:               os.Getpid(),
		Sign:              d.controller.Status(),
		LockPath:          d.lockPath,
		LogPath:           d.logPath,
		AnimationsDir:     d.cfg.Sign.AnimationsDir,
		NetlinkMonitoring: d.monitor.Running(),
		Checks:            preflight.RunAll(d.cfg),
		Dependencies:      preflight.CheckSystemDeps(d.cfg),
	}
	if d.store != nil {
		status.HistoryPath = d.store.Path()
	}
	return status
}
