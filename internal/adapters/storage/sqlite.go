package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/okian/recicla/internal/domain/errs"
	"github.com/okian/recicla/pkg/logger"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
`

const upsert = `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

// SQLiteStore persists the key/value pairs in a single SQLite table.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger logger.Logger

	closeOnce sync.Once
	closeErr  error
}

var _ Store = (*SQLiteStore)(nil)

// SQLiteOption configures a SQLiteStore.
type SQLiteOption func(*SQLiteStore)

// WithLogger sets the logger used for lifecycle messages.
func WithLogger(l logger.Logger) SQLiteOption {
	return func(s *SQLiteStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// OpenSQLite opens (creating if needed) the database at path and ensures the
// kv table exists.
func OpenSQLite(ctx context.Context, path string, opts ...SQLiteOption) (*SQLiteStore, error) {
	const op = "storage.open"

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errs.WrapKind(op, errs.ErrStorage, fmt.Errorf("create directory: %w", err))
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errs.WrapKind(op, errs.ErrStorage, fmt.Errorf("open database: %w", err))
	}
	// One connection keeps SQLite's single writer and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, path: path}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("sqlite")
	}

	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, errs.WrapKind(op, errs.ErrStorage, err)
	}
	s.logger.Info(ctx, "sqlite store opened", logger.String("path", path))
	return s, nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("enable wal: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

func storageErr(op string, err error) error {
	return errs.WrapKind(storageOpPrefix+op, errs.ErrStorage, err)
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, key string) (v string, ok bool, err error) {
	defer func(start time.Time) { observe(backendSQLite, opGet, start, err) }(time.Now())
	err = s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&v)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, storageErr(opGet, err)
	}
	return v, true, nil
}

// Set implements Store.
func (s *SQLiteStore) Set(ctx context.Context, key, value string) (err error) {
	defer func(start time.Time) { observe(backendSQLite, opSet, start, err) }(time.Now())
	if _, err = s.db.ExecContext(ctx, upsert, key, value, time.Now().UnixMilli()); err != nil {
		return storageErr(opSet, err)
	}
	return nil
}

// Remove implements Store.
func (s *SQLiteStore) Remove(ctx context.Context, key string) (err error) {
	defer func(start time.Time) { observe(backendSQLite, opRemove, start, err) }(time.Now())
	if _, err = s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return storageErr(opRemove, err)
	}
	return nil
}

// MultiGet implements Store.
func (s *SQLiteStore) MultiGet(ctx context.Context, keys ...string) (out map[string]string, err error) {
	defer func(start time.Time) { observe(backendSQLite, opMultiGet, start, err) }(time.Now())
	out = make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	q := "SELECT key, value FROM kv WHERE key IN (?" + strings.Repeat(", ?", len(keys)-1) + ")"
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, storageErr(opMultiGet, err)
	}
	defer rows.Close()

	for rows.Next() {
		var k, v string
		if err = rows.Scan(&k, &v); err != nil {
			return nil, storageErr(opMultiGet, err)
		}
		out[k] = v
	}
	if err = rows.Err(); err != nil {
		return nil, storageErr(opMultiGet, err)
	}
	return out, nil
}

// MultiSet implements Store. All pairs land in one transaction.
func (s *SQLiteStore) MultiSet(ctx context.Context, pairs map[string]string) (err error) {
	defer func(start time.Time) { observe(backendSQLite, opMultiSet, start, err) }(time.Now())
	if len(pairs) == 0 {
		return nil
	}
	now := time.Now().UnixMilli()
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsert)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for k, v := range pairs {
			if _, err := stmt.ExecContext(ctx, k, v, now); err != nil {
				return fmt.Errorf("set %s: %w", k, err)
			}
		}
		return nil
	})
	if err != nil {
		return storageErr(opMultiSet, err)
	}
	return nil
}

// MultiRemove implements Store. All deletions land in one transaction.
func (s *SQLiteStore) MultiRemove(ctx context.Context, keys ...string) (err error) {
	defer func(start time.Time) { observe(backendSQLite, opMultiRemove, start, err) }(time.Now())
	if len(keys) == 0 {
		return nil
	}
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		for _, k := range keys {
			if _, err := tx.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", k); err != nil {
				return fmt.Errorf("remove %s: %w", k, err)
			}
		}
		return nil
	})
	if err != nil {
		return storageErr(opMultiRemove, err)
	}
	return nil
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Close closes the database. It is safe to call more than once.
func (s *SQLiteStore) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.db.Close()
		s.logger.Info(context.Background(), "sqlite store closed", logger.String("path", s.path))
	})
	return s.closeErr
}
