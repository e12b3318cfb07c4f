package services

import "context"

type contextKey string

const (
	bookIDKey    contextKey = "book_id"
	exportIDKey  contextKey = "export_id"
	requestIDKey contextKey = "request_id"
)

// WithBookID annotates context with the book identifier.
func WithBookID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, bookIDKey, id)
}

// BookIDFromContext extracts the book identifier if present.
func BookIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(bookIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithExportID annotates context with the export job identifier.
func WithExportID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, exportIDKey, id)
}

// ExportIDFromContext extracts the export job identifier if present.
func ExportIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(exportIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
