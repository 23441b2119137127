package testsupport

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"marclink/internal/marc"
)

// Corpus encodes records into one binary stream.
func Corpus(t testing.TB, recs ...*marc.Record) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := marc.NewBinaryWriter(&buf)
	for _, rec := range recs {
		if err := w.Write(rec); err != nil {
			t.Fatalf("write record %q: %v", rec.ControlNumber(), err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush corpus: %v", err)
	}
	return buf.Bytes()
}

// WriteCorpus writes records as a binary file at path.
func WriteCorpus(t testing.TB, path string, recs ...*marc.Record) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, Corpus(t, recs...), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// ReadAll decodes every record in data, failing on malformed input.
func ReadAll(t testing.TB, data []byte) []*marc.Record {
	t.Helper()

	r := marc.NewBinaryReader(bytes.NewReader(data))
	var out []*marc.Record
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("read record at %d: %v", r.Tell(), err)
		}
		out = append(out, rec)
	}
}

// ReadFile decodes every record stored at path.
func ReadFile(t testing.TB, path string) []*marc.Record {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return ReadAll(t, data)
}
