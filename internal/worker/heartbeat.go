package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"folio/internal/logging"
	"folio/internal/store"
)

// AbandonedMessage is recorded on exports whose worker stopped heartbeating.
const AbandonedMessage = "abandoned by worker"

// HeartbeatMonitor touches processing exports and fails the ones whose
// heartbeat expired.
type HeartbeatMonitor struct {
	store    *store.Store
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time
}

// NewHeartbeatMonitor creates a new monitor.
func NewHeartbeatMonitor(st *store.Store, logger *slog.Logger, interval, timeout time.Duration, now func() time.Time) *HeartbeatMonitor {
	if now == nil {
		now = time.Now
	}
	return &HeartbeatMonitor{
		store:    st,
		logger:   logger,
		interval: interval,
		timeout:  timeout,
		now:      now,
	}
}

// FailStale fails processing exports whose heartbeat is older than the
// timeout. Abandoned exports are never re-queued.
func (h *HeartbeatMonitor) FailStale(ctx context.Context) (int64, error) {
	if h.timeout <= 0 {
		return 0, nil
	}
	cutoff := h.now().Add(-h.timeout)
	failed, err := h.store.FailStaleExports(ctx, cutoff, AbandonedMessage)
	if err != nil {
		return 0, err
	}
	if failed > 0 {
		logging.WarnWithContext(h.logger, "failed abandoned exports", "exports_abandoned",
			logging.Any("count", failed),
			logging.Duration("heartbeat_timeout", h.timeout),
			logging.String(logging.FieldErrorHint, "request the exports again"),
			logging.String(logging.FieldImpact, "abandoned exports stay failed"),
		)
	}
	return failed, nil
}

// Run refreshes the heartbeat of exportID until ctx ends.
func (h *HeartbeatMonitor) Run(ctx context.Context, exportID string) {
	if h.interval <= 0 {
		return
	}
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	logger := logging.WithContext(ctx, h.logger)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.store.UpdateExportHeartbeat(ctx, exportID, h.now()); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				logger.Warn("export heartbeat update failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "heartbeat_failed"),
				)
			}
		}
	}
}
