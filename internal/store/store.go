package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"folio/internal/config"
	"folio/internal/services"
)

const (
	sqliteBusyCode          = 5
	sqliteConstraintFK      = 787
	sqliteConstraintUnique  = 2067
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// dbtx is the subset of *sql.DB and *sql.Tx used by record helpers.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries holds every record helper. Store and Tx embed it so the same methods
// run either in autocommit mode or inside a transaction.
type queries struct {
	db dbtx
}

// Store manages folio persistence backed by SQLite.
type Store struct {
	queries
	sqlDB *sql.DB
	path  string
}

// Tx is an open write transaction.
type Tx struct {
	queries
}

// Open initializes or connects to the folio database under the configured data directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.DatabasePath())
}

// OpenPath opens the database file at path, applying pending migrations.
func OpenPath(path string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	store := &Store{queries: queries{db: db}, sqlDB: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// dsn sets pragmas through the connection string so every pooled connection
// gets them, and makes write transactions BEGIN IMMEDIATE.
func dsn(path string) string {
	params := url.Values{}
	params.Add("_pragma", "foreign_keys(1)")
	params.Add("_pragma", "journal_mode(WAL)")
	params.Add("_pragma", "busy_timeout(5000)")
	params.Set("_txlock", "immediate")
	return "file:" + path + "?" + params.Encode()
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// WithTx runs fn inside a write transaction, committing when fn returns nil.
// Busy errors while starting or committing are retried with backoff.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	ctx = ensureContext(ctx)
	var sqlTx *sql.Tx
	if err := retryOnBusy(ctx, func() error {
		var err error
		sqlTx, err = s.sqlDB.BeginTx(ctx, nil)
		return err
	}); err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if err := fn(&Tx{queries: queries{db: sqlTx}}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func sqliteCode(err error) int {
	var coder interface{ Code() int }
	if errors.As(err, &coder) {
		return coder.Code()
	}
	return 0
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	if sqliteCode(err)&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return sqliteCode(err) == sqliteConstraintUnique || strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	return sqliteCode(err) == sqliteConstraintFK || strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func notFound(kind, id string) error {
	return services.Wrap(services.ErrNotFound, "store", "get "+kind, fmt.Sprintf("%s %s does not exist", kind, id), nil)
}

// translate maps constraint violations onto the services taxonomy.
func translate(err error, operation string, unique error) error {
	switch {
	case err == nil:
		return nil
	case unique != nil && isUniqueViolation(err):
		return services.Wrap(unique, "store", operation, "", err)
	case isForeignKeyViolation(err):
		return services.Wrap(services.ErrDanglingReference, "store", operation, "parent record does not exist", err)
	default:
		return fmt.Errorf("%s: %w", operation, err)
	}
}
