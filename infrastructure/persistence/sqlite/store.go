// Package sqlite implements the graph repositories on an embedded SQLite
// database. Every public operation of the application layer maps to one
// transaction here, so node rows, version records and search entries are
// always written or rolled back together.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"recipegraph/application/ports"
	pkgerrors "recipegraph/pkg/errors"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5

	// Fixed-width UTC timestamps so text ordering matches time ordering.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Store owns the database handle and hands out transactional units of work.
type Store struct {
	path   string
	db     *sql.DB
	logger *zap.Logger
}

var _ ports.TransactionManager = (*Store)(nil)

// Open opens (creating if needed) the database at path and applies migrations.
func Open(path string, busyTimeout time.Duration, logger *zap.Logger) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("database path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("database path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory %q: %w", dir, err)
		}
	}

	if busyTimeout <= 0 {
		busyTimeout = 2 * time.Second
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)",
		cleanPath, busyTimeout.Milliseconds())
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite database %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("Opened graph database", zap.String("path", cleanPath))

	return &Store{path: cleanPath, db: db, logger: logger}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Ping reports whether the database answers queries.
func (s *Store) Ping(ctx context.Context) error {
	var one int
	if err := s.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		return pkgerrors.NewStorageError("ping", err)
	}
	return nil
}

// WithinTransaction runs fn in a write transaction, committing when fn
// returns nil. Transient lock errors restart the whole transaction.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context, uow ports.UnitOfWork) error) error {
	return s.withRetry(ctx, "transaction", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return storageErr("begin transaction", err)
		}

		if err := fn(ctx, newUnitOfWork(tx)); err != nil {
			_ = tx.Rollback()
			return err
		}

		if err := tx.Commit(); err != nil {
			return storageErr("commit transaction", err)
		}
		return nil
	})
}

// ReadOnly runs fn against a consistent snapshot and always rolls back.
func (s *Store) ReadOnly(ctx context.Context, fn func(ctx context.Context, uow ports.UnitOfWork) error) error {
	return s.withRetry(ctx, "read", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return storageErr("begin read", err)
		}
		defer func() { _ = tx.Rollback() }()

		return fn(ctx, newUnitOfWork(tx))
	})
}

func (s *Store) withRetry(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		s.logger.Debug("Retrying locked sqlite operation",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt*25) * time.Millisecond):
		}
	}
	return lastErr
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// storageErr wraps driver failures. Application errors and context
// cancellation pass through untouched.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if pkgerrors.GetAppError(err) != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return pkgerrors.NewStorageError(op, err)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Parse(time.RFC3339Nano, raw)
	}
	return t, nil
}
