package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"folio/internal/config"
	"folio/internal/export"
	"folio/internal/logging"
	"folio/internal/notifications"
	"folio/internal/preflight"
	"folio/internal/store"
)

const component = "worker"

// ErrLocked reports that another worker owns the data directory.
var ErrLocked = errors.New("another folio worker is already running")

// Manager coordinates export workers against one data directory.
type Manager struct {
	cfg      *config.Config
	store    *store.Store
	pipeline *export.Pipeline
	notifier notifications.Service
	logger   *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time

	heartbeat *HeartbeatMonitor
	lock      *flock.Flock

	mu         sync.RWMutex
	running    bool
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	lastErr    error
	lastExport string
}

// Option configures optional Manager behavior.
type Option func(*Manager)

// WithNotifier overrides the notifier built from configuration.
func WithNotifier(notifier notifications.Service) Option {
	return func(m *Manager) {
		if notifier != nil {
			m.notifier = notifier
		}
	}
}

// WithClock overrides the time source used for heartbeats and stale cutoffs.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithTracer overrides the tracer used for worker spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(m *Manager) {
		if tracer != nil {
			m.tracer = tracer
		}
	}
}

// NewManager constructs a worker manager. The lock is not taken until Start
// or Drain.
func NewManager(cfg *config.Config, st *store.Store, pipeline *export.Pipeline, logger *slog.Logger, opts ...Option) *Manager {
	logger = logging.NewComponentLogger(logger, component)
	m := &Manager{
		cfg:      cfg,
		store:    st,
		pipeline: pipeline,
		notifier: notifications.NewService(cfg.Notifications),
		logger:   logger,
		tracer:   otel.Tracer("folio/worker"),
		now:      time.Now,
		lock:     flock.New(cfg.LockPath()),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.heartbeat = NewHeartbeatMonitor(st, logger, cfg.HeartbeatInterval(), cfg.HeartbeatTimeout(), m.now)
	return m
}

// Start acquires the worker lock, fails abandoned exports and launches the
// configured number of worker goroutines.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("worker already running")
	}
	if err := m.acquire(ctx); err != nil {
		m.mu.Unlock()
		return err
	}

	workers := m.cfg.Export.Workers
	if workers < 1 {
		workers = 1
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(workers)
	m.mu.Unlock()

	m.reclaim(runCtx)
	for i := range workers {
		go m.runWorker(runCtx, i)
	}

	m.logger.Info("export worker started",
		logging.String(logging.FieldEventType, "worker_started"),
		logging.Int("workers", workers),
		logging.String("lock", m.lock.Path()),
	)
	return nil
}

// Stop terminates background processing, waits for in-flight renders to
// observe cancellation and releases the lock.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	m.release()
	m.logger.Info("export worker stopped", logging.String(logging.FieldEventType, "worker_stopped"))
}

// Drain processes queued exports one at a time until the queue is empty and
// returns how many it rendered.
func (m *Manager) Drain(ctx context.Context) (int, error) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return 0, errors.New("worker already running")
	}
	if err := m.acquire(ctx); err != nil {
		m.mu.Unlock()
		return 0, err
	}
	m.mu.Unlock()
	defer m.release()

	m.reclaim(ctx)
	processed := 0
	for {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		id, err := m.store.NextQueuedExport(ctx)
		if err != nil {
			m.setLastError(err)
			return processed, err
		}
		if id == "" {
			return processed, nil
		}
		rendered, err := m.process(ctx, m.logger, id)
		if err != nil {
			return processed, err
		}
		if rendered {
			processed++
		}
	}
}

func (m *Manager) acquire(ctx context.Context) error {
	if err := m.cfg.EnsureDirectories(); err != nil {
		return err
	}
	results := preflight.RunAll(ctx, m.cfg)
	for _, r := range results {
		if !r.Passed && r.Optional {
			logging.WarnWithContext(m.logger, "optional preflight check failed", "preflight_degraded",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
				logging.String(logging.FieldImpact, "the feature relying on this check is degraded"),
			)
		}
	}
	if err := preflight.Err(results); err != nil {
		return err
	}
	ok, err := m.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire worker lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w (lock %s)", ErrLocked, m.lock.Path())
	}
	return nil
}

func (m *Manager) release() {
	if err := m.lock.Unlock(); err != nil {
		m.logger.Warn("failed to release worker lock",
			logging.Error(err),
			logging.String(logging.FieldEventType, "worker_unlock_failed"),
		)
	}
}
