package marc

import (
	"bytes"
	"fmt"
	"strconv"

	"marclink/internal/failures"
)

// FormatError describes a structurally malformed record. It unwraps to
// failures.ErrFormat.
type FormatError struct {
	Offset        int64
	ControlNumber string
	Tag           string
	Reason        string
}

func (e *FormatError) Error() string {
	msg := "malformed record"
	if e.ControlNumber != "" {
		msg += " " + strconv.Quote(e.ControlNumber)
	}
	msg += " at offset " + strconv.FormatInt(e.Offset, 10)
	if e.Tag != "" {
		msg += " (field " + e.Tag + ")"
	}
	return msg + ": " + e.Reason
}

func (e *FormatError) Unwrap() error { return failures.ErrFormat }

// Decode parses one binary record. data must span exactly one record,
// record terminator included.
func Decode(data []byte) (*Record, error) {
	if len(data) < LeaderLength+1 {
		return nil, &FormatError{Reason: fmt.Sprintf("record of %d bytes is shorter than a leader", len(data))}
	}
	leader := string(data[:LeaderLength])

	declared, ok := parseDigits(leader[0:5])
	if !ok {
		return nil, &FormatError{Reason: fmt.Sprintf("non-numeric record length %q", leader[0:5])}
	}
	if declared != len(data) {
		return nil, &FormatError{Reason: fmt.Sprintf("declared length %d does not match actual length %d", declared, len(data))}
	}
	if data[len(data)-1] != RecordTerminator {
		return nil, &FormatError{Reason: "missing record terminator"}
	}

	base, ok := parseDigits(leader[12:17])
	if !ok {
		return nil, &FormatError{Reason: fmt.Sprintf("non-numeric base address %q", leader[12:17])}
	}
	if base <= LeaderLength || base > len(data)-1 {
		return nil, &FormatError{Reason: fmt.Sprintf("base address %d outside record", base)}
	}
	if data[base-1] != FieldTerminator {
		return nil, &FormatError{Reason: "directory is not terminated by a field terminator"}
	}

	directory := data[LeaderLength : base-1]
	if len(directory)%DirectoryEntryLength != 0 {
		return nil, &FormatError{Reason: fmt.Sprintf("directory length %d is not a multiple of %d", len(directory), DirectoryEntryLength)}
	}

	blob := data[base : len(data)-1]
	rec := &Record{leader: leader, raw: bytes.Clone(blob)}
	rec.entries = make([]directoryEntry, 0, len(directory)/DirectoryEntryLength)
	for pos := 0; pos < len(directory); pos += DirectoryEntryLength {
		entry := directory[pos : pos+DirectoryEntryLength]
		tag := string(entry[0:3])
		length, okLen := parseDigits(string(entry[3:7]))
		offset, okOff := parseDigits(string(entry[7:12]))
		if !okLen || !okOff {
			return nil, &FormatError{Tag: tag, Reason: fmt.Sprintf("non-numeric directory entry %q", entry)}
		}
		if length < 1 || offset+length > len(blob) {
			return nil, &FormatError{Tag: tag, Reason: fmt.Sprintf("field length %d at offset %d exceeds data of %d bytes", length, offset, len(blob))}
		}
		if blob[offset+length-1] != FieldTerminator {
			return nil, &FormatError{Tag: tag, Reason: "field is not terminated by a field terminator"}
		}
		rec.entries = append(rec.entries, directoryEntry{tag: tag, length: length, offset: offset})
	}
	return rec, nil
}

// Encode serializes r, recomputing the directory, base address and record
// length from the current fields.
func Encode(r *Record) ([]byte, error) {
	n := len(r.entries)
	base := LeaderLength + n*DirectoryEntryLength + 1

	dataLength := 0
	for _, e := range r.entries {
		dataLength += e.length
	}
	total := base + dataLength + 1
	if total > MaxRecordLength {
		return nil, &FormatError{ControlNumber: r.ControlNumber(), Reason: fmt.Sprintf("record length %d exceeds %d", total, MaxRecordLength)}
	}

	var directory, blob bytes.Buffer
	directory.Grow(n*DirectoryEntryLength + 1)
	blob.Grow(dataLength + 1)
	for _, e := range r.entries {
		if len(e.tag) != TagLength {
			return nil, &FormatError{ControlNumber: r.ControlNumber(), Tag: e.tag, Reason: "tag must be exactly 3 characters"}
		}
		if e.length > MaxFieldLength {
			return nil, &FormatError{ControlNumber: r.ControlNumber(), Tag: e.tag, Reason: fmt.Sprintf("field length %d exceeds %d", e.length, MaxFieldLength)}
		}
		fmt.Fprintf(&directory, "%s%04d%05d", e.tag, e.length, blob.Len())
		blob.Write(r.raw[e.offset : e.offset+e.length])
	}
	directory.WriteByte(FieldTerminator)
	blob.WriteByte(RecordTerminator)

	out := make([]byte, 0, total)
	out = append(out, stampLeader(r.leader, total, base)...)
	out = append(out, directory.Bytes()...)
	out = append(out, blob.Bytes()...)
	return out, nil
}
