package marc

import (
	"errors"
	"fmt"
	"io"
)

// Source yields records in stream order. Read returns io.EOF after the last
// record and a *FormatError for a malformed record it could skip past.
type Source interface {
	Read() (*Record, error)
}

// SeekableSource is a Source whose position can be saved and restored.
type SeekableSource interface {
	Source
	// Tell returns the offset of the next record Read will return.
	Tell() int64
	Seek(offset int64) error
	Rewind() error
}

// Sink accepts records in output order.
type Sink interface {
	Write(*Record) error
}

// ReadAt reads the record at offset from src and restores the previous
// position on every return path.
func ReadAt(src SeekableSource, offset int64) (rec *Record, err error) {
	saved := src.Tell()
	if err := src.Seek(offset); err != nil {
		return nil, err
	}
	defer func() {
		if restoreErr := src.Seek(saved); restoreErr != nil && err == nil {
			rec, err = nil, restoreErr
		}
	}()
	rec, err = src.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("no record at offset %d: %w", offset, io.ErrUnexpectedEOF)
	}
	return rec, err
}
