package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"folio/internal/content"
)

// InsertQualityReport persists a report. The full report is kept as JSON
// alongside the indexed overall score.
func (q queries) InsertQualityReport(ctx context.Context, report content.QualityReport) error {
	encoded, err := marshalJSON(report)
	if err != nil {
		return err
	}
	_, err = q.db.ExecContext(ctx,
		`INSERT INTO quality_reports (id, book_id, overall_score, partial, report, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		report.ID,
		report.BookID,
		report.OverallScore,
		boolToInt(report.Partial),
		encoded,
		formatTime(report.CreatedAt),
	)
	return translate(err, "insert quality report", nil)
}

func scanReport(scanner rowScanner) (content.QualityReport, error) {
	var raw sql.NullString
	if err := scanner.Scan(&raw); err != nil {
		return content.QualityReport{}, err
	}
	var report content.QualityReport
	if err := unmarshalJSON(raw, &report); err != nil {
		return content.QualityReport{}, fmt.Errorf("quality report: %w", err)
	}
	return report, nil
}

// LatestQualityReport returns the most recent report for a book, or nil when
// none exists.
func (q queries) LatestQualityReport(ctx context.Context, bookID string) (*content.QualityReport, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT report FROM quality_reports WHERE book_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, bookID)
	report, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest quality report: %w", err)
	}
	return &report, nil
}

// ListQualityReports returns a book's reports, newest first.
func (q queries) ListQualityReports(ctx context.Context, bookID string) ([]content.QualityReport, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT report FROM quality_reports WHERE book_id = ? ORDER BY created_at DESC, rowid DESC`, bookID)
	if err != nil {
		return nil, fmt.Errorf("list quality reports: %w", err)
	}
	defer rows.Close()

	var reports []content.QualityReport
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quality report: %w", err)
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}
