package marc

import (
	"bufio"
	"fmt"
	"io"
)

// BinaryWriter writes binary records. Call Flush when done.
type BinaryWriter struct {
	w     *bufio.Writer
	count int
}

// NewBinaryWriter wraps w.
func NewBinaryWriter(w io.Writer) *BinaryWriter {
	return &BinaryWriter{w: bufio.NewWriterSize(w, 64*1024)}
}

// Write encodes and writes one record.
func (w *BinaryWriter) Write(r *Record) error {
	data, err := Encode(r)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(data); err != nil {
		return fmt.Errorf("write record %q: %w", r.ControlNumber(), err)
	}
	w.count++
	return nil
}

// Count returns the number of records written.
func (w *BinaryWriter) Count() int { return w.count }

// Flush writes buffered data to the underlying writer.
func (w *BinaryWriter) Flush() error {
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("flush records: %w", err)
	}
	return nil
}
