// Package store persists every folio record in SQLite.
//
// A single Store wraps the database handle opened with foreign keys, WAL
// journaling, a busy timeout, and BEGIN IMMEDIATE write transactions so that
// concurrent mutations of one book serialize. Read and write helpers are
// available both on the Store (autocommit) and on a Tx obtained through
// WithTx; multi-step mutations must use WithTx.
//
// Constraint violations are translated into the services error taxonomy:
// duplicate order indices become ErrConflictingOrder, missing parents become
// ErrDanglingReference, a second in-flight export for the same book and format
// becomes ErrExportInProgress, and a version mismatch on a book aggregate
// becomes ErrStaleWrite.
package store
