// Package logging assembles structured slog loggers and formatting helpers used
// across folio.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can tag log
// lines with book, chapter, and export identifiers plus correlation IDs. Per
// component level overrides let one subsystem run at debug while the rest
// stays at info. The package also provides a no-op logger for tests and
// wiring code that cannot fail.
package logging
