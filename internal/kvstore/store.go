package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"marclink/internal/failures"
)

// ErrLocked reports that another process holds the store's writer lock.
var ErrLocked = errors.New("store is locked by another process")

// Store is an ordered key/value store backed by one SQLite file.
type Store struct {
	db       *sql.DB
	path     string
	lock     *flock.Flock
	readOnly bool
}

// Options controls how a store is opened.
type Options struct {
	// ReadOnly takes a shared lock and rejects writes. The store must exist.
	ReadOnly bool
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
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

func persistence(operation, detail string, err error) error {
	return failures.Wrap(failures.ErrPersistence, "kvstore", operation, detail, err)
}

// Open creates or opens the store at path. Writers hold an exclusive lock on
// path+".lock" until Close.
func Open(path string, opts Options) (*Store, error) {
	if opts.ReadOnly {
		if _, err := os.Stat(path); err != nil {
			return nil, persistence("open", path, err)
		}
	} else if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, persistence("open", "create store directory", err)
	}

	lock := flock.New(path + ".lock")
	var (
		locked bool
		err    error
	)
	if opts.ReadOnly {
		locked, err = lock.TryRLock()
	} else {
		locked, err = lock.TryLock()
	}
	if err != nil {
		return nil, persistence("open", "acquire lock", err)
	}
	if !locked {
		return nil, persistence("open", path, ErrLocked)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		_ = lock.Unlock()
		return nil, persistence("open", path, err)
	}
	// One connection keeps transactions and cursors on the same SQLite handle.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, persistence("open", fmt.Sprintf("apply pragma %q", pragma), execErr)
		}
	}

	store := &Store{db: db, path: path, lock: lock, readOnly: opts.ReadOnly}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, persistence("open", path, err)
	}
	return store, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the database and releases the lock.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	if unlockErr := s.lock.Unlock(); unlockErr != nil && err == nil {
		err = unlockErr
	}
	if err != nil {
		return persistence("close", s.path, err)
	}
	return nil
}

func (s *Store) writable(operation string) error {
	if s.readOnly {
		return persistence(operation, s.path, errors.New("store opened read-only"))
	}
	return nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func get(ctx context.Context, q querier, bucket, key string) ([]byte, bool, error) {
	var value []byte
	err := retryOnBusy(ctx, func() error {
		return q.QueryRowContext(ctx, "SELECT value FROM entries WHERE bucket = ? AND key = ?", bucket, key).Scan(&value)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, persistence("get", bucket, err)
	}
	return value, true, nil
}

func set(ctx context.Context, q querier, bucket, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	err := retryOnBusy(ctx, func() error {
		_, execErr := q.ExecContext(ctx,
			`INSERT INTO entries (bucket, key, value) VALUES (?, ?, ?)
			 ON CONFLICT (bucket, key) DO UPDATE SET value = excluded.value`,
			bucket, key, value)
		return execErr
	})
	if err != nil {
		return persistence("set", bucket, err)
	}
	return nil
}

func remove(ctx context.Context, q querier, bucket, key string) (bool, error) {
	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = q.ExecContext(ctx, "DELETE FROM entries WHERE bucket = ? AND key = ?", bucket, key)
		return execErr
	})
	if err != nil {
		return false, persistence("remove", bucket, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, persistence("remove", bucket, err)
	}
	return n > 0, nil
}

// Get returns the value stored under key in bucket.
func (s *Store) Get(ctx context.Context, bucket, key string) ([]byte, bool, error) {
	return get(ensureContext(ctx), s.db, bucket, key)
}

// Set stores value under key in bucket, replacing any previous value.
func (s *Store) Set(ctx context.Context, bucket, key string, value []byte) error {
	if err := s.writable("set"); err != nil {
		return err
	}
	return set(ensureContext(ctx), s.db, bucket, key, value)
}

// Remove deletes key from bucket and reports whether it existed.
func (s *Store) Remove(ctx context.Context, bucket, key string) (bool, error) {
	if err := s.writable("remove"); err != nil {
		return false, err
	}
	return remove(ensureContext(ctx), s.db, bucket, key)
}

// Clear deletes every key in bucket and returns how many were removed.
func (s *Store) Clear(ctx context.Context, bucket string) (int64, error) {
	if err := s.writable("clear"); err != nil {
		return 0, err
	}
	ctx = ensureContext(ctx)
	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx, "DELETE FROM entries WHERE bucket = ?", bucket)
		return execErr
	})
	if err != nil {
		return 0, persistence("clear", bucket, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, persistence("clear", bucket, err)
	}
	return n, nil
}

// Count returns the number of keys in bucket.
func (s *Store) Count(ctx context.Context, bucket string) (int64, error) {
	ctx = ensureContext(ctx)
	var n int64
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM entries WHERE bucket = ?", bucket).Scan(&n)
	})
	if err != nil {
		return 0, persistence("count", bucket, err)
	}
	return n, nil
}

// Update runs fn inside one transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
func (s *Store) Update(ctx context.Context, fn func(tx *Tx) error) error {
	if err := s.writable("update"); err != nil {
		return err
	}
	ctx = ensureContext(ctx)
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence("update", "begin transaction", err)
	}
	defer func() { _ = sqlTx.Rollback() }()

	if err := fn(&Tx{ctx: ctx, tx: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return persistence("update", "commit transaction", err)
	}
	return nil
}

// Tx is a write transaction handed to Update callbacks. It must not be used
// after the callback returns.
type Tx struct {
	ctx context.Context
	tx  *sql.Tx
}

// Get returns the value stored under key in bucket, including uncommitted
// writes of this transaction.
func (t *Tx) Get(bucket, key string) ([]byte, bool, error) {
	return get(t.ctx, t.tx, bucket, key)
}

// Set stores value under key in bucket.
func (t *Tx) Set(bucket, key string, value []byte) error {
	return set(t.ctx, t.tx, bucket, key, value)
}

// Remove deletes key from bucket.
func (t *Tx) Remove(bucket, key string) (bool, error) {
	return remove(t.ctx, t.tx, bucket, key)
}
