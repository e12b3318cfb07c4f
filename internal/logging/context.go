package logging

import (
	"context"
	"log/slog"

	"folio/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldBookID is the standardized structured logging key for book identifiers.
	FieldBookID = "book_id"
	// FieldChapterID is the standardized structured logging key for chapter identifiers.
	FieldChapterID = "chapter_id"
	// FieldExportID is the standardized structured logging key for export job identifiers.
	FieldExportID = "export_id"
	// FieldFormat is the standardized structured logging key for export formats.
	FieldFormat = "format"
	// FieldBookStatus carries a book's lifecycle status.
	FieldBookStatus = "book_status"
	// FieldChapterStatus carries a chapter's lifecycle status.
	FieldChapterStatus = "chapter_status"
	// FieldExportStatus carries an export job's status.
	FieldExportStatus = "export_status"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType classifies a log line for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step to an operator.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldErrorKind carries services.Kind for failed operations.
	FieldErrorKind = "error_kind"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.BookIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldBookID, id))
	}
	if id, ok := services.ExportIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldExportID, id))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
