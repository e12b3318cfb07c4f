// Package export runs the asynchronous export pipeline.
//
// RequestExport records a queued job and returns immediately. Render claims
// a queued job, assembles the canonical Document from the book's chapters,
// sections, citations and media, hands it to the renderer and publishes the
// bytes. Any failure is captured on the export as error_message; the book
// itself is never modified. Cancel fails a job that has not yet produced
// bytes and stops an in-process render.
//
// Chapter text may reference citations with [cite:<citation-id>] and media
// placeholders with [media:<placeholder-id>]. Both are resolved during
// assembly; an unknown citation fails the export.
package export
