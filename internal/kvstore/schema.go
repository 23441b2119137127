package kvstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"time"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql or the value layout changes.
// Version 1 kept the version in a table of its own and had no meta table.
const schemaVersion = 2

// Meta keys written by the store itself.
const (
	MetaSchemaVersion = "schema_version"
	MetaCreatedAt     = "created_at"
)

// ErrSchemaMismatch indicates the store was written by an incompatible version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

func (s *Store) initSchema(ctx context.Context) error {
	tables, err := s.tables(ctx)
	if err != nil {
		return err
	}
	switch {
	case tables["meta"]:
	case tables["entries"]:
		return s.mismatch(1)
	case s.readOnly:
		return fmt.Errorf("store %s is not initialized", s.path)
	default:
		return s.createSchema(ctx)
	}

	value, ok, err := s.Meta(ctx, MetaSchemaVersion)
	if err != nil {
		return err
	}
	version, convErr := strconv.Atoi(value)
	if !ok || convErr != nil {
		return fmt.Errorf("%w: store %s has no readable schema version %q", ErrSchemaMismatch, s.path, value)
	}
	if version != schemaVersion {
		return s.mismatch(version)
	}
	return nil
}

func (s *Store) mismatch(version int) error {
	return fmt.Errorf("%w: store has version %d, expected %d (delete %s and rebuild the index)",
		ErrSchemaMismatch, version, schemaVersion, s.path)
}

func (s *Store) tables(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table'")
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	found := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("list tables: %w", err)
		}
		found[name] = true
	}
	return found, rows.Err()
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	initial := map[string]string{
		MetaSchemaVersion: strconv.Itoa(schemaVersion),
		MetaCreatedAt:     time.Now().UTC().Format(time.RFC3339),
	}
	for key, value := range initial {
		if err := setMeta(ctx, tx, key, value); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

func setMeta(ctx context.Context, q querier, key, value string) error {
	err := retryOnBusy(ctx, func() error {
		_, execErr := q.ExecContext(ctx,
			"INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value",
			key, value)
		return execErr
	})
	if err != nil {
		return persistence("set meta", key, err)
	}
	return nil
}

// Meta returns a store-wide setting such as the schema version.
func (s *Store) Meta(ctx context.Context, key string) (string, bool, error) {
	ctx = ensureContext(ctx)
	var value string
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, persistence("meta", key, err)
	}
	return value, true, nil
}

// SetMeta records a store-wide setting.
func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	if err := s.writable("set meta"); err != nil {
		return err
	}
	return setMeta(ensureContext(ctx), s.db, key, value)
}
