// Package daemon hosts the long-running herald process: it owns the store,
// the workflow manager, and the HTTP API, and enforces single-instance
// execution with a lock file.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"log/slog"

	"github.com/gofrs/flock"

	"herald/internal/api"
	"herald/internal/campaign"
	"herald/internal/campaign/store"
	"herald/internal/config"
	"herald/internal/logging"
	"herald/internal/sender"
	"herald/internal/workflow"
)

// Daemon coordinates background campaign processing.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	workflow *workflow.Manager
	sender   *sender.Service

	lockPath string
	lock     *flock.Flock
	server   *apiServer

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger, wf *workflow.Manager) (*Daemon, error) {
	if cfg == nil || st == nil || logger == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, logger, and workflow manager")
	}
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    st,
		workflow: wf,
		sender:   sender.NewService(cfg, st, logger),
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}
	d.server = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the instance lock, sweeps jobs orphaned by a previous
// shutdown, and launches the workflow manager and API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another herald daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	// Jobs left queued or running by a crash can never finish; fail them so
	// pollers get a terminal answer instead of a stuck percentage.
	swept, err := d.store.FailInFlight(d.ctx, "daemon restarted")
	if err != nil {
		d.release()
		return fmt.Errorf("sweep in-flight jobs: %w", err)
	}
	if swept > 0 {
		d.logger.Warn("failed jobs orphaned by previous shutdown", logging.Int64("count", swept))
	}

	if err := d.workflow.Start(d.ctx); err != nil {
		d.release()
		return fmt.Errorf("start workflow: %w", err)
	}
	if err := d.server.start(d.ctx); err != nil {
		d.workflow.Stop()
		d.release()
		return err
	}

	d.running.Store(true)
	d.logger.Info("herald daemon started",
		logging.String("lock", d.lockPath),
		logging.String("database", d.store.Path()))
	return nil
}

func (d *Daemon) release() {
	_ = d.lock.Unlock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.ctx = nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.server.stop()
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("herald daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr returns the bound API address, or empty before Start.
func (d *Daemon) Addr() string {
	return d.server.addr()
}

// Health reports daemon runtime information for API consumers.
func (d *Daemon) Health(ctx context.Context) api.HealthResponse {
	counts := map[string]int{}
	if byStatus, err := d.store.CountByStatus(ctx); err == nil {
		for status, count := range byStatus {
			counts[string(status)] = count
		}
	}
	return api.HealthResponse{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
		JobCounts:    counts,
		Stages:       api.FromStageHealth(d.workflow.Health(ctx)),
	}
}

// ListJobs returns jobs filtered by optional statuses.
func (d *Daemon) ListJobs(ctx context.Context, statuses []campaign.Status) ([]*campaign.Job, error) {
	return d.store.ListJobs(ctx, statuses...)
}
