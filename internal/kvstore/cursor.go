package kvstore

import (
	"context"
	"database/sql"
)

// Cursor walks one bucket in ascending key order. It holds the store's only
// connection until Close, so callers must not issue other store calls while
// a cursor is open.
type Cursor struct {
	bucket string
	rows   *sql.Rows
	key    string
	value  []byte
	err    error
}

// Cursor opens a forward cursor over bucket, positioned before the first key.
func (s *Store) Cursor(ctx context.Context, bucket string) (*Cursor, error) {
	ctx = ensureContext(ctx)
	var rows *sql.Rows
	err := retryOnBusy(ctx, func() error {
		var queryErr error
		rows, queryErr = s.db.QueryContext(ctx, "SELECT key, value FROM entries WHERE bucket = ? ORDER BY key", bucket)
		return queryErr
	})
	if err != nil {
		return nil, persistence("cursor", bucket, err)
	}
	return &Cursor{bucket: bucket, rows: rows}, nil
}

// Next advances to the next entry and reports whether there was one.
func (c *Cursor) Next() bool {
	if c.err != nil || c.rows == nil {
		return false
	}
	if !c.rows.Next() {
		if err := c.rows.Err(); err != nil {
			c.err = persistence("cursor", c.bucket, err)
		}
		return false
	}
	if err := c.rows.Scan(&c.key, &c.value); err != nil {
		c.err = persistence("cursor", c.bucket, err)
		return false
	}
	return true
}

// Key returns the current key.
func (c *Cursor) Key() string { return c.key }

// Value returns the current value.
func (c *Cursor) Value() []byte { return c.value }

// Err returns the first error met while iterating.
func (c *Cursor) Err() error { return c.err }

// Close releases the cursor. It is safe to call more than once.
func (c *Cursor) Close() error {
	if c.rows == nil {
		return nil
	}
	err := c.rows.Close()
	c.rows = nil
	if err != nil {
		return persistence("cursor", c.bucket, err)
	}
	return nil
}
