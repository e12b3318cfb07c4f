package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"folio/internal/content"
	"folio/internal/export"
	"folio/internal/logging"
	"folio/internal/notifications"
	"folio/internal/services"
)

const errorRetryInterval = 5 * time.Second

func (m *Manager) runWorker(ctx context.Context, index int) {
	defer m.wg.Done()
	logger := m.logger.With(logging.Int("worker", index))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// Only the first worker sweeps for abandoned exports.
		if index == 0 {
			m.reclaim(ctx)
		}

		id, err := m.store.NextQueuedExport(ctx)
		if err != nil {
			m.handleNextExportError(ctx, logger, err)
			continue
		}
		if id == "" {
			m.waitForExportOrShutdown(ctx)
			continue
		}
		if _, err := m.process(ctx, logger, id); err != nil && errors.Is(err, context.Canceled) {
			return
		}
	}
}

// process renders one export while heartbeating it. It reports false when
// another worker claimed the export first.
func (m *Manager) process(ctx context.Context, logger *slog.Logger, exportID string) (bool, error) {
	ctx = services.WithExportID(ctx, exportID)
	ctx, span := m.tracer.Start(ctx, "worker.process", trace.WithAttributes(
		attribute.String("folio.export_id", exportID),
	))
	defer span.End()

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	var hb sync.WaitGroup
	hb.Go(func() { m.heartbeat.Run(hbCtx, exportID) })

	err := m.pipeline.Render(ctx, exportID)
	stopHeartbeat()
	hb.Wait()

	if errors.Is(err, services.ErrPreconditionNotMet) {
		logging.WithContext(ctx, logger).Debug("export claimed elsewhere",
			logging.String(logging.FieldEventType, "export_claim_skipped"),
			logging.String("reason", err.Error()),
		)
		return false, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, services.Kind(err))
		m.setLastError(err)
		logging.ErrorWithContext(logging.WithContext(ctx, logger), "export bookkeeping failed", "export_process_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the database is writable"),
		)
		return false, err
	}
	m.setLastExport(exportID)
	m.notifyOutcome(ctx, logger, exportID)
	return true, nil
}

func (m *Manager) notifyOutcome(ctx context.Context, logger *slog.Logger, exportID string) {
	ctx = context.WithoutCancel(ctx)
	exp, err := m.store.GetExport(ctx, exportID)
	if err != nil {
		logger.Warn("read export outcome failed", logging.Error(err))
		return
	}
	title := exp.BookID
	if book, err := m.store.GetBook(ctx, exp.BookID); err == nil {
		title = book.Title
	}

	var (
		event   notifications.Event
		payload = notifications.Payload{"title": title, "format": string(exp.Format)}
	)
	switch exp.Status {
	case content.ExportComplete:
		event = notifications.EventExportCompleted
		payload["url"] = exp.FileURL
	case content.ExportFailed:
		if exp.ErrorMessage == export.CancelledMessage {
			return
		}
		event = notifications.EventExportFailed
		payload["error"] = exp.ErrorMessage
	default:
		return
	}
	m.publish(ctx, logger, event, payload)
}

func (m *Manager) publish(ctx context.Context, logger *slog.Logger, event notifications.Event, payload notifications.Payload) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Publish(context.WithoutCancel(ctx), event, payload); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, logger), "notification failed", "notification_failed",
			logging.Error(err),
			logging.String("event", string(event)),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		)
	}
}

func (m *Manager) reclaim(ctx context.Context) {
	failed, err := m.heartbeat.FailStale(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		m.setLastError(err)
		m.logger.Warn("reclaim stale exports failed; abandoned exports may stay processing",
			logging.Error(err),
			logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
			logging.String(logging.FieldErrorHint, "check database access"),
		)
		return
	}
	if failed > 0 {
		m.publish(ctx, m.logger, notifications.EventExportsAbandoned, notifications.Payload{"count": fmt.Sprint(failed)})
	}
}

func (m *Manager) handleNextExportError(ctx context.Context, logger *slog.Logger, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	m.setLastError(err)
	logger.Error("failed to fetch next export",
		logging.Error(err),
		logging.String(logging.FieldEventType, "export_fetch_failed"),
		logging.String(logging.FieldErrorHint, "check database access"),
	)
	select {
	case <-ctx.Done():
	case <-time.After(errorRetryInterval):
	}
}

func (m *Manager) waitForExportOrShutdown(ctx context.Context) {
	interval := m.cfg.PollInterval()
	if interval <= 0 {
		interval = time.Second
	}
	select {
	case <-ctx.Done():
	case <-time.After(interval):
	}
}
