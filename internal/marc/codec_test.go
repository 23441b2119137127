package marc_test

import (
	"bytes"
	"errors"
	"io"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"marclink/internal/failures"
	"marclink/internal/marc"
)

func mustEncode(t *testing.T, rec *marc.Record) []byte {
	t.Helper()
	data, err := marc.Encode(rec)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return data
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	rec := sampleRecord()
	rec.UpdateField(rec.FieldIndex("245"), "10\x1FaGeänderter Titel\x1Fcvon X")
	rec.InsertField("936", "uw\x1Fd12\x1Fj2001")

	data := mustEncode(t, rec)
	decoded, err := marc.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(decoded.Fields(), rec.Fields()) {
		t.Fatalf("fields differ:\n got %q\nwant %q", decoded.Fields(), rec.Fields())
	}
	if decoded.BibliographicLevel() != 's' {
		t.Fatalf("leader lost: %q", decoded.Leader())
	}
	if again := mustEncode(t, decoded); !bytes.Equal(again, data) {
		t.Fatal("re-encoding a decoded record changed its bytes")
	}
}

func TestEncodeRecomputesLeader(t *testing.T) {
	rec := sampleRecord()
	data := mustEncode(t, rec)

	if got, want := string(data[0:5]), fmt.Sprintf("%05d", len(data)); got != want {
		t.Fatalf("record length field %q, want %q", got, want)
	}
	base := 24 + rec.Len()*12 + 1
	if got, want := string(data[12:17]), fmt.Sprintf("%05d", base); got != want {
		t.Fatalf("base address field %q, want %q", got, want)
	}
	if data[base-1] != marc.FieldTerminator || data[len(data)-1] != marc.RecordTerminator {
		t.Fatal("terminators missing")
	}
}

// rawRecord assembles a record from a literal directory and data area,
// filling in correct leader lengths.
func rawRecord(directory, fieldData string) []byte {
	base := 24 + len(directory) + 1
	total := base + len(fieldData) + 1
	leader := fmt.Sprintf("%05dnas a22%05d   4500", total, base)
	return []byte(leader + directory + "\x1E" + fieldData + "\x1D")
}

func TestDecodeRejectsMalformedStructure(t *testing.T) {
	good := mustEncode(t, sampleRecord())

	corrupt := func(mutate func([]byte) []byte) []byte {
		return mutate(bytes.Clone(good))
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"too short", good[:10]},
		{"length mismatch", corrupt(func(b []byte) []byte { return append(b[:len(b)-1], 'x', marc.RecordTerminator) })},
		{"no record terminator", corrupt(func(b []byte) []byte { b[len(b)-1] = 'x'; return b })},
		{"directory not multiple of entry width", rawRecord("001000400000X", "100\x1E")},
		{"field beyond data", corrupt(func(b []byte) []byte {
			copy(b[24+3:24+7], "9999")
			return b
		})},
		{"field missing terminator", rawRecord("001000300000", "100")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := marc.Decode(tt.data)
			if err == nil {
				t.Fatal("expected decode error")
			}
			var fe *marc.FormatError
			if !errors.As(err, &fe) {
				t.Fatalf("expected *FormatError, got %T", err)
			}
			if !errors.Is(err, failures.ErrFormat) {
				t.Fatal("FormatError must unwrap to ErrFormat")
			}
		})
	}
}

func TestDecodeAcceptsHandBuiltRecord(t *testing.T) {
	rec, err := marc.Decode(rawRecord("001000400000245001000004", "100\x1E10\x1FaTitel\x1E"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if rec.ControlNumber() != "100" || rec.ExtractFirstSubfield("245", 'a') != "Titel" {
		t.Fatalf("unexpected fields %q", rec.Fields())
	}
}

func TestEncodeRejectsOversizedField(t *testing.T) {
	rec := marc.NewRecord("")
	rec.AppendField(marc.NewControlField("001", "1"))
	rec.AppendField(marc.Field{Tag: "520", Contents: "  \x1Fa" + strings.Repeat("x", marc.MaxFieldLength)})
	if _, err := marc.Encode(rec); !errors.Is(err, failures.ErrFormat) {
		t.Fatalf("expected format error, got %v", err)
	}
}

func buildCorpus(t *testing.T, recs ...*marc.Record) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := marc.NewBinaryWriter(&buf)
	for _, rec := range recs {
		if err := w.Write(rec); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	return buf.Bytes()
}

func withID(id string) *marc.Record {
	rec := marc.NewRecord("00000nas a2200000   4500")
	rec.AppendField(marc.NewControlField("001", id))
	rec.AppendField(marc.Field{Tag: "245", Contents: "00\x1FaTitle " + id})
	return rec
}

func TestBinaryReaderTellSeekRewind(t *testing.T) {
	data := buildCorpus(t, withID("1"), withID("2"), withID("3"))
	r := marc.NewBinaryReader(bytes.NewReader(data))

	var offsets []int64
	var ids []string
	for {
		offset := r.Tell()
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		offsets = append(offsets, offset)
		ids = append(ids, rec.ControlNumber())
	}
	if !reflect.DeepEqual(ids, []string{"1", "2", "3"}) {
		t.Fatalf("ids = %v", ids)
	}

	if err := r.Seek(offsets[1]); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	rec, err := r.Read()
	if err != nil || rec.ControlNumber() != "2" {
		t.Fatalf("after seek got %v, %v", rec, err)
	}

	if err := r.Rewind(); err != nil {
		t.Fatalf("Rewind: %v", err)
	}
	if rec, _ := r.Read(); rec.ControlNumber() != "1" {
		t.Fatalf("after rewind got %q", rec.ControlNumber())
	}
}

func TestBinaryReaderReadAtRestoresPosition(t *testing.T) {
	data := buildCorpus(t, withID("1"), withID("2"), withID("3"))
	r := marc.NewBinaryReader(bytes.NewReader(data))

	first, _ := r.Read()
	thirdOffset := int64(len(mustEncode(t, withID("1"))) + len(mustEncode(t, withID("2"))))
	pos := r.Tell()

	partner, err := r.ReadAt(thirdOffset)
	if err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if partner.ControlNumber() != "3" {
		t.Fatalf("ReadAt returned %q", partner.ControlNumber())
	}
	if r.Tell() != pos {
		t.Fatalf("position not restored: %d vs %d", r.Tell(), pos)
	}
	next, _ := r.Read()
	if first.ControlNumber() != "1" || next.ControlNumber() != "2" {
		t.Fatal("forward scan disturbed by ReadAt")
	}

	pos = r.Tell()
	if _, err := r.ReadAt(int64(len(data))); err == nil {
		t.Fatal("expected error reading past the end")
	}
	if r.Tell() != pos {
		t.Fatalf("position after failed ReadAt = %d, want %d", r.Tell(), pos)
	}
}

func TestBinaryReaderSkipsGarbage(t *testing.T) {
	garbage := []byte("xx garbage\x1D")
	first := mustEncode(t, withID("1"))
	second := mustEncode(t, withID("2"))

	// The first record claims ten more bytes than it has.
	broken := bytes.Clone(first)
	copy(broken[0:5], fmt.Sprintf("%05d", len(first)+10))

	var data []byte
	data = append(data, garbage...)
	data = append(data, broken...)
	data = append(data, second...)
	r := marc.NewBinaryReader(bytes.NewReader(data))

	if _, err := r.Read(); !errors.Is(err, failures.ErrFormat) {
		t.Fatalf("expected format error for garbage, got %v", err)
	}
	if _, err := r.Read(); !errors.Is(err, failures.ErrFormat) {
		t.Fatalf("expected format error for bad length, got %v", err)
	}
	rec, err := r.Read()
	if err != nil || rec.ControlNumber() != "2" {
		t.Fatalf("expected record 2 after resync, got %v, %v", rec, err)
	}
	if _, err := r.Read(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestBinaryReaderTruncatedTail(t *testing.T) {
	full := mustEncode(t, withID("1"))
	r := marc.NewBinaryReader(bytes.NewReader(full[:len(full)-5]))
	if _, err := r.Read(); !errors.Is(err, failures.ErrFormat) {
		t.Fatalf("expected format error, got %v", err)
	}
	if _, err := r.Read(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}
