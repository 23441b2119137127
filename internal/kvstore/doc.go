// Package kvstore persists ordered key/value buckets in SQLite.
//
// A Store holds any number of named buckets in one database file. Keys are
// compared bytewise, so cursors walk a bucket in key order. Writers take an
// exclusive file lock next to the database; a second writer fails with
// ErrLocked instead of interleaving writes. Readers take a shared lock.
//
// Every failure is tagged with failures.ErrPersistence. The database only
// grows by inserts and updates inside transactions, so an interrupted build
// leaves a valid, merely incomplete, store.
//
// Schema changes bump schemaVersion in schema.go; users delete the store to
// adopt the new schema.
package kvstore
