package marc

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// BinaryReader reads binary records from a seekable stream.
type BinaryReader struct {
	rs  io.ReadSeeker
	br  *bufio.Reader
	pos int64
}

// NewBinaryReader wraps rs, which must be positioned at its start.
func NewBinaryReader(rs io.ReadSeeker) *BinaryReader {
	return &BinaryReader{rs: rs, br: bufio.NewReaderSize(rs, 64*1024)}
}

// Read returns the next record. A record whose framing is broken is skipped
// up to the next record terminator and reported as a *FormatError; reading
// can continue afterwards.
func (r *BinaryReader) Read() (*Record, error) {
	start := r.pos
	head, err := r.br.Peek(5)
	if err != nil {
		if errors.Is(err, io.EOF) {
			if len(head) == 0 {
				return nil, io.EOF
			}
			n, _ := r.br.Discard(len(head))
			r.pos += int64(n)
			return nil, &FormatError{Offset: start, Reason: "truncated record at end of input"}
		}
		return nil, fmt.Errorf("read record at offset %d: %w", start, err)
	}

	length, ok := parseDigits(string(head))
	if !ok || length <= LeaderLength {
		skipped, err := r.resync()
		if err != nil {
			return nil, err
		}
		return nil, &FormatError{Offset: start, Reason: fmt.Sprintf("invalid record length %q, skipped %d bytes", head, skipped)}
	}

	buf := make([]byte, length)
	n, err := io.ReadFull(r.br, buf)
	r.pos += int64(n)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, &FormatError{Offset: start, Reason: fmt.Sprintf("truncated record: want %d bytes, got %d", length, n)}
		}
		return nil, fmt.Errorf("read record at offset %d: %w", start, err)
	}
	if buf[length-1] != RecordTerminator {
		if k := bytes.IndexByte(buf, RecordTerminator); k >= 0 {
			if err := r.Seek(start + int64(k) + 1); err != nil {
				return nil, err
			}
			return nil, &FormatError{Offset: start, Reason: fmt.Sprintf("declared length %d but record terminator found after %d bytes", length, k+1)}
		}
		skipped, err := r.resync()
		if err != nil {
			return nil, err
		}
		return nil, &FormatError{Offset: start, Reason: fmt.Sprintf("declared length %d does not end at a record terminator, skipped %d more bytes", length, skipped)}
	}

	rec, err := Decode(buf)
	if err != nil {
		var fe *FormatError
		if errors.As(err, &fe) {
			fe.Offset = start
		}
		return nil, err
	}
	return rec, nil
}

// resync consumes input up to and including the next record terminator.
func (r *BinaryReader) resync() (int, error) {
	skipped, err := r.br.ReadBytes(RecordTerminator)
	r.pos += int64(len(skipped))
	if err != nil && !errors.Is(err, io.EOF) {
		return len(skipped), fmt.Errorf("resync at offset %d: %w", r.pos, err)
	}
	return len(skipped), nil
}

// Tell returns the offset of the next record.
func (r *BinaryReader) Tell() int64 { return r.pos }

// Seek moves to an absolute offset previously returned by Tell.
func (r *BinaryReader) Seek(offset int64) error {
	if _, err := r.rs.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek to offset %d: %w", offset, err)
	}
	r.br.Reset(r.rs)
	r.pos = offset
	return nil
}

// Rewind moves back to the first record.
func (r *BinaryReader) Rewind() error { return r.Seek(0) }

// ReadAt reads the record at offset and restores the current position.
func (r *BinaryReader) ReadAt(offset int64) (*Record, error) {
	return ReadAt(r, offset)
}
