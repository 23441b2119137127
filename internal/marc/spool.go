package marc

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Spool copies every readable record of src into a new binary file in dir
// and returns its path. Malformed records are passed to onMalformed, which
// may be nil, and skipped. The caller removes the file.
func Spool(src Source, dir string, onMalformed func(error)) (path string, count int, err error) {
	file, err := os.CreateTemp(dir, "marclink-spool-*.mrc")
	if err != nil {
		return "", 0, fmt.Errorf("create spool file: %w", err)
	}
	path = file.Name()
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close spool file: %w", closeErr)
		}
		if err != nil {
			_ = os.Remove(path)
			path = ""
		}
	}()

	w := NewBinaryWriter(file)
	for {
		rec, readErr := src.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}
		var fe *FormatError
		if errors.As(readErr, &fe) {
			if onMalformed != nil {
				onMalformed(readErr)
			}
			continue
		}
		if readErr != nil {
			return "", 0, readErr
		}
		if err := w.Write(rec); err != nil {
			if errors.As(err, &fe) {
				if onMalformed != nil {
					onMalformed(err)
				}
				continue
			}
			return "", 0, err
		}
	}
	if err := w.Flush(); err != nil {
		return "", 0, err
	}
	return path, w.Count(), nil
}
