package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"dubber/internal/config"
	"dubber/internal/deps"
	"dubber/internal/jobs"
	"dubber/internal/logging"
	"dubber/internal/pipeline"
)

// Daemon coordinates the job supervisor and HTTP API, and enforces
// single-instance execution through a file lock.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *jobs.Store
	history    *jobs.HistoryStore
	supervisor *pipeline.Supervisor
	api        *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger, store *jobs.Store, history *jobs.HistoryStore, supervisor *pipeline.Supervisor) (*Daemon, error) {
	if cfg == nil || logger == nil || store == nil || supervisor == nil {
		return nil, errors.New("daemon requires config, logger, store, and supervisor")
	}
	lockPath := filepath.Join(cfg.Paths.LogDir, "dubberd.lock")
	d := &Daemon{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		history:    history,
		supervisor: supervisor,
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the instance lock and brings up the API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another dubber daemon instance is already running")
	}

	missing := deps.MissingRequired(deps.CheckBinaries(deps.Requirements(d.cfg)))
	if len(missing) > 0 {
		_ = d.lock.Unlock()
		return fmt.Errorf("missing required tools: %v", missing)
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	if err := d.api.start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("dubber daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts down the API, cancels running jobs, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.supervisor.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("dubber daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.history != nil {
		return d.history.Close()
	}
	return nil
}

// Running reports whether Start succeeded and Stop has not run.
func (d *Daemon) Running() bool {
	return d.running.Load()
}
