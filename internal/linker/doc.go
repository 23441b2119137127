// Package linker runs the two-pass merge over a seekable record corpus.
//
// Pass 0 (only with implicit links) collects standard numbers. Pass 1 records
// every control number's byte offset and folds cross-links into groups.
// Between the passes, groups with missing partners or conflicting local
// holdings are dropped. Pass 2 rewinds, merges each group into its canonical
// record using seek-based partner lookups, skips absorbed records and patches
// uplinks in everything it writes.
package linker
