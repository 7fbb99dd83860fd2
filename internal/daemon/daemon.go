package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"shotnamer/internal/config"
	"shotnamer/internal/logging"
	"shotnamer/internal/pipeline"
	"shotnamer/internal/watcher"
)

// eventBuffer holds notifications that arrive while an event is in flight.
const eventBuffer = 64

// ErrAlreadyRunning reports that another process holds the directory lock.
var ErrAlreadyRunning = errors.New("another shotnamer instance is already watching this directory")

// Daemon watches one directory and feeds its events to the pipeline, holding
// a lock so only one process renames files there.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	pipeline *pipeline.Pipeline

	lockPath string
	lock     *flock.Flock

	mu        sync.Mutex
	running   atomic.Bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startedAt time.Time
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	WatchDir     string
	LockFilePath string
	StartedAt    time.Time
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, p *pipeline.Pipeline, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || p == nil {
		return nil, errors.New("daemon requires config and pipeline")
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		pipeline: p,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the directory lock and begins watching.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := d.cfg.EnsureDirectories(); err != nil {
		return err
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w (lock %s)", ErrAlreadyRunning, d.lockPath)
	}

	w, err := watcher.New(d.cfg.Watch.Dir, d.logger, eventBuffer)
	if err != nil {
		_ = d.lock.Unlock()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.startedAt = time.Now()
	d.running.Store(true)

	d.wg.Add(2)
	go func() {
		defer d.wg.Done()
		if err := w.Run(runCtx); err != nil {
			d.logger.Error("watcher stopped", logging.Error(err))
		}
	}()
	go func() {
		defer d.wg.Done()
		_ = d.pipeline.Run(runCtx, w.Events())
	}()

	d.logger.Info("shotnamer daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("dir", d.cfg.Watch.Dir),
		logging.String("model", d.cfg.Ollama.Model),
		logging.Duration("settle_delay", d.cfg.SettleDelay()),
		logging.Bool("journal", d.cfg.History.Enabled),
		logging.String("lock", d.lockPath),
	)
	return nil
}

// Stop stops watching, waits for the in-flight event, and releases the lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "lock_release_failed", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("shotnamer daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Run starts the daemon and blocks until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	d.Stop()
	return nil
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Status{
		Running:      d.running.Load(),
		WatchDir:     d.cfg.Watch.Dir,
		LockFilePath: d.lockPath,
		StartedAt:    d.startedAt,
	}
}
