package kvstore_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"marclink/internal/failures"
	"marclink/internal/kvstore"
	"marclink/internal/testsupport"
)

func TestSetGetRemove(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, "titles", "missing"); err != nil || ok {
		t.Fatalf("Get(missing) = ok %v, err %v", ok, err)
	}
	if err := store.Set(ctx, "titles", "bibel", []byte("100")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Set(ctx, "titles", "bibel", []byte("100\x00200")); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	value, ok, err := store.Get(ctx, "titles", "bibel")
	if err != nil || !ok {
		t.Fatalf("Get: ok %v, err %v", ok, err)
	}
	if string(value) != "100\x00200" {
		t.Fatalf("Get = %q", value)
	}
	if _, ok, _ := store.Get(ctx, "authors", "bibel"); ok {
		t.Fatal("buckets must not share keys")
	}

	removed, err := store.Remove(ctx, "titles", "bibel")
	if err != nil || !removed {
		t.Fatalf("Remove = %v, %v", removed, err)
	}
	if removed, _ := store.Remove(ctx, "titles", "bibel"); removed {
		t.Fatal("second Remove should report false")
	}
}

func TestCursorWalksKeysInOrder(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	for _, key := range []string{"zeitschrift", "acta", "Bibel", "bibel"} {
		if err := store.Set(ctx, "titles", key, []byte(key)); err != nil {
			t.Fatalf("Set(%s): %v", key, err)
		}
	}
	if err := store.Set(ctx, "years", "1990", []byte("x")); err != nil {
		t.Fatalf("Set: %v", err)
	}

	cur, err := store.Cursor(ctx, "titles")
	if err != nil {
		t.Fatalf("Cursor: %v", err)
	}
	var keys []string
	for cur.Next() {
		if string(cur.Value()) != cur.Key() {
			t.Fatalf("value %q under key %q", cur.Value(), cur.Key())
		}
		keys = append(keys, cur.Key())
	}
	if err := cur.Err(); err != nil {
		t.Fatalf("cursor: %v", err)
	}
	if err := cur.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	want := []string{"Bibel", "acta", "bibel", "zeitschrift"}
	if !slices.Equal(keys, want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}

	n, err := store.Count(ctx, "titles")
	if err != nil || n != 4 {
		t.Fatalf("Count = %d, %v", n, err)
	}
	cleared, err := store.Clear(ctx, "titles")
	if err != nil || cleared != 4 {
		t.Fatalf("Clear = %d, %v", cleared, err)
	}
	if n, _ := store.Count(ctx, "years"); n != 1 {
		t.Fatalf("Clear touched another bucket, years count %d", n)
	}
}

func TestUpdateRollsBackOnError(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.Update(ctx, func(tx *kvstore.Tx) error {
		if err := tx.Set("titles", "a", []byte("1")); err != nil {
			return err
		}
		if value, ok, err := tx.Get("titles", "a"); err != nil || !ok || string(value) != "1" {
			t.Fatalf("uncommitted read = %q, %v, %v", value, ok, err)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Update error = %v", err)
	}
	if _, ok, _ := store.Get(ctx, "titles", "a"); ok {
		t.Fatal("rolled back write is visible")
	}

	if err := store.Update(ctx, func(tx *kvstore.Tx) error {
		return tx.Set("titles", "b", []byte("2"))
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "titles", "b"); !ok {
		t.Fatal("committed write missing")
	}
}

func TestSecondWriterIsLockedOut(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	_, err := kvstore.Open(store.Path(), kvstore.Options{})
	if !errors.Is(err, kvstore.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if !errors.Is(err, failures.ErrPersistence) {
		t.Fatalf("expected persistence marker, got %v", err)
	}
	if !failures.Fatal(err, false) {
		t.Fatal("persistence errors must be fatal")
	}
}

func TestReadOnlyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	if _, err := kvstore.Open(path, kvstore.Options{ReadOnly: true}); !errors.Is(err, failures.ErrPersistence) {
		t.Fatalf("expected persistence error for a missing store, got %v", err)
	}

	writer, err := kvstore.Open(path, kvstore.Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := writer.Set(context.Background(), "years", "1990", []byte("100")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reader, err := kvstore.Open(path, kvstore.Options{ReadOnly: true})
	if err != nil {
		t.Fatalf("Open read-only: %v", err)
	}
	defer reader.Close()
	if value, ok, err := reader.Get(context.Background(), "years", "1990"); err != nil || !ok || string(value) != "100" {
		t.Fatalf("Get = %q, %v, %v", value, ok, err)
	}
	if err := reader.Set(context.Background(), "years", "1991", nil); !errors.Is(err, failures.ErrPersistence) {
		t.Fatalf("expected write rejection, got %v", err)
	}
}

func TestMetaSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	ctx := context.Background()

	writer, err := kvstore.Open(path, kvstore.Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if version, ok, err := writer.Meta(ctx, kvstore.MetaSchemaVersion); err != nil || !ok || version != "2" {
		t.Fatalf("schema version = %q, %v, %v", version, ok, err)
	}
	if _, ok, _ := writer.Meta(ctx, kvstore.MetaCreatedAt); !ok {
		t.Fatal("creation time not recorded")
	}
	if err := writer.SetMeta(ctx, "year_slot_width", "10"); err != nil {
		t.Fatalf("SetMeta: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reader, err := kvstore.Open(path, kvstore.Options{ReadOnly: true})
	if err != nil {
		t.Fatalf("Open read-only: %v", err)
	}
	defer reader.Close()
	if width, ok, err := reader.Meta(ctx, "year_slot_width"); err != nil || !ok || width != "10" {
		t.Fatalf("Meta = %q, %v, %v", width, ok, err)
	}
	if _, ok, err := reader.Meta(ctx, "unknown"); err != nil || ok {
		t.Fatalf("Meta(unknown) = %v, %v", ok, err)
	}
	if err := reader.SetMeta(ctx, "year_slot_width", "12"); !errors.Is(err, failures.ErrPersistence) {
		t.Fatalf("expected write rejection, got %v", err)
	}
}

func TestOpenRejectsStoreWithoutMeta(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("CREATE TABLE entries (bucket TEXT, key TEXT, value BLOB)"); err != nil {
		t.Fatalf("create legacy table: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	_, err = kvstore.Open(path, kvstore.Options{})
	if !errors.Is(err, kvstore.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
	if !strings.Contains(err.Error(), "version 1") {
		t.Fatalf("error should name the old version: %v", err)
	}
}
