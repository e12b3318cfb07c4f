package worker

import (
	"context"

	"folio/internal/content"
	"folio/internal/logging"
)

// StatusSummary represents lightweight worker diagnostics.
type StatusSummary struct {
	Running     bool
	LockPath    string
	LastError   string
	LastExport  string
	ExportStats map[content.ExportStatus]int
}

// Status returns the latest worker information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	summary := StatusSummary{
		Running:    m.running,
		LockPath:   m.lock.Path(),
		LastExport: m.lastExport,
	}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	m.mu.RUnlock()

	stats, err := m.store.ExportStats(ctx)
	if err != nil {
		m.logger.Warn("failed to read export stats", logging.Error(err))
	}
	summary.ExportStats = stats
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastExport(id string) {
	m.mu.Lock()
	m.lastExport = id
	m.mu.Unlock()
}
