package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"sideline/internal/api"
	"sideline/internal/config"
	"sideline/internal/ingest"
	"sideline/internal/logging"
	"sideline/internal/pipeline"
	"sideline/internal/store"
	"sideline/internal/workflow"
)

// Daemon coordinates the background processing services and enforces
// single-instance execution.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *store.Store
	workflow   *workflow.Manager
	components *pipeline.Components
	service    *api.Service
	inbox      *ingest.Watcher
	apiServer  *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Workflow     workflow.StatusSummary
	DatabasePath string
	LockFilePath string
	Providers    []string
}

// New constructs a daemon with initialized dependencies. The workflow
// manager must already have its stages configured.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger, wf *workflow.Manager, components *pipeline.Components) (*Daemon, error) {
	if cfg == nil || st == nil || wf == nil || components == nil {
		return nil, errors.New("daemon requires config, store, workflow manager, and pipeline components")
	}
	logger = logging.NewComponentLogger(logger, "daemon")

	submissions := ingest.NewService(cfg, st, logger)
	submissions.OnSubmit(wf.Wake)

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:        cfg,
		logger:     logger,
		store:      st,
		workflow:   wf,
		components: components,
		service:    api.NewService(st, components, submissions),
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}
	if cfg.Inbox.Enabled {
		d.inbox = ingest.NewWatcher(cfg, submissions, logger)
	}
	srv, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.apiServer = srv
	return d, nil
}

// Start acquires the daemon lock, recovers stranded artifacts and launches
// the workflow manager, API server, inbox watcher and draft sweeper.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another sideline daemon instance is already running")
	}

	d.recover(ctx)

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.workflow.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		return fmt.Errorf("start workflow: %w", err)
	}
	if err := d.apiServer.start(runCtx); err != nil {
		d.workflow.Stop()
		_ = d.lock.Unlock()
		cancel()
		return err
	}
	d.cancel = cancel

	if d.inbox != nil {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := d.inbox.Run(runCtx); err != nil {
				logging.WarnWithContext(d.logger, "inbox watcher stopped", "inbox_watch_failed",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check paths.inbox_dir"),
					logging.String(logging.FieldImpact, "dropped files will not be submitted"),
				)
			}
		}()
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.sweepLoop(runCtx)
	}()

	d.running.Store(true)
	d.logger.Info("sideline daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.Bool("inbox", d.inbox != nil),
	)
	return nil
}

// recover returns in-flight artifacts to their start status and clears
// halts so configuration fixed since the last run is picked up.
func (d *Daemon) recover(ctx context.Context) {
	reset, err := d.store.ResetStuckProcessing(ctx)
	if err != nil {
		d.logger.Warn("reset stuck artifacts failed", logging.Error(err))
	}
	released, err := d.store.ReleaseHalted(ctx)
	if err != nil {
		d.logger.Warn("release halted artifacts failed", logging.Error(err))
	}
	if reset > 0 || released > 0 {
		d.logger.Info("recovered artifacts",
			logging.String(logging.FieldEventType, "artifacts_recovered"),
			logging.Int64("reset", reset),
			logging.Int64("released", released),
		)
	}
}

func (d *Daemon) sweepLoop(ctx context.Context) {
	interval := time.Duration(d.cfg.Drafts.SweepIntervalMinutes) * time.Minute
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		d.sweep(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (d *Daemon) sweep(ctx context.Context) {
	if _, err := d.components.Drafts.Sweep(ctx); err != nil && ctx.Err() == nil {
		logging.WarnWithContext(d.logger, "draft sweep failed", "draft_sweep_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale drafts stay pending until the next sweep"),
		)
	}
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
	d.apiServer.stop()
	d.workflow.Stop()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("sideline daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Service returns the coach-facing service backing the HTTP API.
func (d *Daemon) Service() *api.Service {
	return d.service
}

// APIAddress returns the bound API address, or "" when the API is disabled
// or not yet listening.
func (d *Daemon) APIAddress() string {
	return d.apiServer.address()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Workflow:     d.workflow.Status(ctx),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
		Providers:    d.components.Dispatcher.Providers(),
	}
}
