package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"folio/internal/content"
	"folio/internal/services"
)

const exportColumns = "id, book_id, format, status, file_url, settings, error_message, created_at, started_at, rendered_at, completed_at, last_heartbeat"

func scanExport(scanner rowScanner) (content.Export, error) {
	var (
		e         content.Export
		format    string
		status    string
		fileURL   sql.NullString
		settings  sql.NullString
		errMsg    sql.NullString
		created   string
		started   sql.NullString
		rendered  sql.NullString
		completed sql.NullString
		heartbeat sql.NullString
	)
	if err := scanner.Scan(&e.ID, &e.BookID, &format, &status, &fileURL, &settings, &errMsg, &created, &started, &rendered, &completed, &heartbeat); err != nil {
		return content.Export{}, err
	}
	e.Format = content.ExportFormat(format)
	e.Status = content.ExportStatus(status)
	e.FileURL = fileURL.String
	e.ErrorMessage = errMsg.String
	if err := unmarshalJSON(settings, &e.Settings); err != nil {
		return content.Export{}, fmt.Errorf("export %s settings: %w", e.ID, err)
	}
	var err error
	if e.CreatedAt, err = parseTimeString(created); err != nil {
		return content.Export{}, err
	}
	for _, field := range []struct {
		raw    sql.NullString
		target **time.Time
	}{
		{started, &e.StartedAt},
		{rendered, &e.RenderedAt},
		{completed, &e.CompletedAt},
		{heartbeat, &e.LastHeartbeat},
	} {
		if *field.target, err = parseNullTime(field.raw); err != nil {
			return content.Export{}, err
		}
	}
	return e, nil
}

// InsertExport persists a queued export. A queued or processing export for
// the same book and format reports ErrExportInProgress.
func (q queries) InsertExport(ctx context.Context, e content.Export) error {
	settings, err := marshalJSON(e.Settings)
	if err != nil {
		return err
	}
	_, err = q.db.ExecContext(ctx,
		`INSERT INTO exports (`+exportColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.BookID,
		string(e.Format),
		string(e.Status),
		nullableString(e.FileURL),
		settings,
		nullableString(e.ErrorMessage),
		formatTime(e.CreatedAt),
		nullableTime(e.StartedAt),
		nullableTime(e.RenderedAt),
		nullableTime(e.CompletedAt),
		nullableTime(e.LastHeartbeat),
	)
	if err != nil && isUniqueViolation(err) {
		return services.Wrap(services.ErrExportInProgress, "store", "insert export",
			fmt.Sprintf("a %s export for book %s is already queued or processing", e.Format, e.BookID), err)
	}
	return translate(err, "insert export", nil)
}

// GetExport fetches an export by id.
func (q queries) GetExport(ctx context.Context, id string) (content.Export, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+exportColumns+` FROM exports WHERE id = ?`, id)
	e, err := scanExport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return content.Export{}, notFound("export", id)
	}
	if err != nil {
		return content.Export{}, fmt.Errorf("get export: %w", err)
	}
	return e, nil
}

// ListExports returns a book's exports, newest first.
func (q queries) ListExports(ctx context.Context, bookID string) ([]content.Export, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+exportColumns+` FROM exports WHERE book_id = ? ORDER BY created_at DESC, id`, bookID)
	if err != nil {
		return nil, fmt.Errorf("list exports: %w", err)
	}
	defer rows.Close()

	var exports []content.Export
	for rows.Next() {
		e, err := scanExport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan export: %w", err)
		}
		exports = append(exports, e)
	}
	return exports, rows.Err()
}

// ClaimExport moves a queued export to processing. It reports false when the
// export was no longer queued.
func (q queries) ClaimExport(ctx context.Context, id string, now time.Time) (bool, error) {
	stamp := formatTime(now)
	res, err := q.db.ExecContext(ctx,
		`UPDATE exports SET status = ?, started_at = ?, last_heartbeat = ? WHERE id = ? AND status = ?`,
		string(content.ExportProcessing), stamp, stamp, id, string(content.ExportQueued),
	)
	if err != nil {
		return false, fmt.Errorf("claim export: %w", err)
	}
	return affectedOne(res)
}

// NextQueuedExport returns the oldest queued export id, or "" when the queue
// is empty.
func (q queries) NextQueuedExport(ctx context.Context) (string, error) {
	var id string
	err := q.db.QueryRowContext(ctx,
		`SELECT id FROM exports WHERE status = ? ORDER BY created_at, id LIMIT 1`,
		string(content.ExportQueued),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("next queued export: %w", err)
	}
	return id, nil
}

// MarkExportRendered records that the renderer returned bytes. After this the
// export can no longer be cancelled.
func (q queries) MarkExportRendered(ctx context.Context, id string, at time.Time) (bool, error) {
	stamp := formatTime(at)
	res, err := q.db.ExecContext(ctx,
		`UPDATE exports SET rendered_at = ?, last_heartbeat = ? WHERE id = ? AND status = ? AND rendered_at IS NULL`,
		stamp, stamp, id, string(content.ExportProcessing),
	)
	if err != nil {
		return false, fmt.Errorf("mark export rendered: %w", err)
	}
	return affectedOne(res)
}

// CompleteExport finishes a processing export with its artifact URL.
func (q queries) CompleteExport(ctx context.Context, id, fileURL string, at time.Time) (bool, error) {
	stamp := formatTime(at)
	res, err := q.db.ExecContext(ctx,
		`UPDATE exports SET status = ?, file_url = ?, completed_at = ?, last_heartbeat = ? WHERE id = ? AND status = ?`,
		string(content.ExportComplete), fileURL, stamp, stamp, id, string(content.ExportProcessing),
	)
	if err != nil {
		return false, fmt.Errorf("complete export: %w", err)
	}
	return affectedOne(res)
}

// FailExport moves a non-terminal export to failed with message.
func (q queries) FailExport(ctx context.Context, id, message string) (bool, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE exports SET status = ?, error_message = ? WHERE id = ? AND status IN (?, ?)`,
		string(content.ExportFailed), message, id, string(content.ExportQueued), string(content.ExportProcessing),
	)
	if err != nil {
		return false, fmt.Errorf("fail export: %w", err)
	}
	return affectedOne(res)
}

// CancelExport fails an export that has not produced bytes yet. It reports
// false when the export is terminal or already rendered.
func (q queries) CancelExport(ctx context.Context, id, message string) (bool, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE exports SET status = ?, error_message = ?
		WHERE id = ? AND status IN (?, ?) AND rendered_at IS NULL`,
		string(content.ExportFailed), message, id, string(content.ExportQueued), string(content.ExportProcessing),
	)
	if err != nil {
		return false, fmt.Errorf("cancel export: %w", err)
	}
	return affectedOne(res)
}

// UpdateExportHeartbeat refreshes the heartbeat of a processing export.
func (q queries) UpdateExportHeartbeat(ctx context.Context, id string, at time.Time) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE exports SET last_heartbeat = ? WHERE id = ? AND status = ?`,
		formatTime(at), id, string(content.ExportProcessing),
	)
	if err != nil {
		return fmt.Errorf("update export heartbeat: %w", err)
	}
	return nil
}

// FailStaleExports fails processing exports whose heartbeat is older than
// cutoff. They are never re-queued.
func (q queries) FailStaleExports(ctx context.Context, cutoff time.Time, message string) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE exports SET status = ?, error_message = ?
		WHERE status = ? AND COALESCE(last_heartbeat, started_at, created_at) < ?`,
		string(content.ExportFailed), message, string(content.ExportProcessing), formatTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("fail stale exports: %w", err)
	}
	return res.RowsAffected()
}

// HasCompleteExport reports whether the book has a complete export in one of
// formats.
func (q queries) HasCompleteExport(ctx context.Context, bookID string, formats []content.ExportFormat) (bool, error) {
	if len(formats) == 0 {
		return false, nil
	}
	args := make([]any, 0, len(formats)+2)
	args = append(args, bookID, string(content.ExportComplete))
	for _, f := range formats {
		args = append(args, string(f))
	}
	var count int
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM exports WHERE book_id = ? AND status = ? AND format IN (`+makePlaceholders(len(formats))+`)`,
		args...,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("count complete exports: %w", err)
	}
	return count > 0, nil
}

// ExportStats counts exports per status.
func (q queries) ExportStats(ctx context.Context) (map[content.ExportStatus]int, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM exports GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("export stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[content.ExportStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan export stats: %w", err)
		}
		stats[content.ExportStatus(status)] = count
	}
	return stats, rows.Err()
}

func affectedOne(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
