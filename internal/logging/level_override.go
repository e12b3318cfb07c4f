package logging

import (
	"context"
	"log/slog"
	"strings"
)

// componentLevelHandler enforces a minimum level that switches when a logger
// is tagged with a component that has a configured override. The wrapped
// handler must be configured with the most verbose level needed globally.
type componentLevelHandler struct {
	next      slog.Handler
	level     slog.Level
	overrides map[string]slog.Level
}

func newComponentLevelHandler(next slog.Handler, level slog.Level, overrides map[string]slog.Level) slog.Handler {
	if next == nil {
		return NoopHandler{}
	}
	return &componentLevelHandler{next: next, level: level, overrides: overrides}
}

func (h *componentLevelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if level < h.level {
		return false
	}
	return h.next.Enabled(ctx, level)
}

func (h *componentLevelHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Level < h.level {
		return nil
	}
	return h.next.Handle(ctx, record)
}

func (h *componentLevelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	level := h.level
	for _, attr := range attrs {
		if attr.Key != FieldComponent {
			continue
		}
		if override, ok := h.overrides[strings.ToLower(attr.Value.String())]; ok {
			level = override
		}
	}
	return &componentLevelHandler{next: h.next.WithAttrs(attrs), level: level, overrides: h.overrides}
}

func (h *componentLevelHandler) WithGroup(name string) slog.Handler {
	return &componentLevelHandler{next: h.next.WithGroup(name), level: h.level, overrides: h.overrides}
}
