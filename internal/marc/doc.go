// Package marc models bibliographic records in the MARC-21 exchange format and
// provides the binary and MARCXML codecs that read and write them.
//
// A Record keeps the wire layout: a leader, a directory of (tag, length,
// offset) entries and a raw field-data buffer. Edits never overwrite buffer
// bytes; they append new contents and repoint the directory entry. Encode
// compacts the buffer and recomputes every offset, the base address and the
// record length, so stale offsets never reach the wire.
//
// Readers implement Source; the binary reader also implements SeekableSource
// so callers can remember Tell offsets and come back to them later.
package marc
