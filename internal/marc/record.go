package marc

import (
	"slices"
	"strings"
)

// NotFound is returned by index lookups that find nothing.
const NotFound = -1

type directoryEntry struct {
	tag    string
	length int // field length including the field terminator
	offset int // offset into Record.raw
}

// IndexRange is a half-open range of field indices.
type IndexRange struct {
	Start int
	End   int
}

// Record is one bibliographic record. Copies made with Clone are independent.
type Record struct {
	leader  string
	raw     []byte
	entries []directoryEntry
}

// NewRecord returns an empty record with the given leader.
func NewRecord(leader string) *Record {
	return &Record{leader: normalizeLeader(leader)}
}

// Clone returns a deep copy with a compacted data buffer.
func (r *Record) Clone() *Record {
	out := NewRecord(r.leader)
	for i := range r.entries {
		out.AppendField(r.Field(i))
	}
	return out
}

// Leader returns the 24-byte leader.
func (r *Record) Leader() string { return r.leader }

// SetLeader replaces the leader.
func (r *Record) SetLeader(leader string) { r.leader = normalizeLeader(leader) }

// RecordType returns leader position 6.
func (r *Record) RecordType() byte { return r.leader[6] }

// BibliographicLevel returns leader position 7.
func (r *Record) BibliographicLevel() byte { return r.leader[7] }

// IsSerial reports whether the bibliographic level marks a serial.
func (r *Record) IsSerial() bool { return r.BibliographicLevel() == 's' }

// IsElectronicResource reports whether the record describes an online or
// other electronic manifestation.
func (r *Record) IsElectronicResource() bool {
	if r.RecordType() == 'm' {
		return true
	}
	for _, i := range r.FieldIndices("007") {
		if strings.HasPrefix(r.Field(i).Contents, "c") {
			return true
		}
	}
	for _, h := range r.ExtractSubfield("245", 'h') {
		lower := strings.ToLower(h)
		if strings.Contains(lower, "electronic resource") || strings.Contains(lower, "elektronische ressource") {
			return true
		}
	}
	for _, b := range r.ExtractSubfield("338", 'b') {
		if b == "cr" {
			return true
		}
	}
	return false
}

// ControlNumber returns the contents of the 001 field, or "".
func (r *Record) ControlNumber() string {
	if i := r.FieldIndex("001"); i != NotFound {
		return r.Field(i).Contents
	}
	return ""
}

// Len returns the number of fields.
func (r *Record) Len() int { return len(r.entries) }

// Empty reports whether the record has no fields.
func (r *Record) Empty() bool { return len(r.entries) == 0 }

// Tag returns the tag of field i.
func (r *Record) Tag(i int) string { return r.entries[i].tag }

// Field returns field i.
func (r *Record) Field(i int) Field {
	e := r.entries[i]
	return Field{Tag: e.tag, Contents: string(r.raw[e.offset : e.offset+e.length-1])}
}

// Fields returns all fields in directory order.
func (r *Record) Fields() []Field {
	out := make([]Field, len(r.entries))
	for i := range r.entries {
		out[i] = r.Field(i)
	}
	return out
}

// Back returns the last field; ok is false for an empty record.
func (r *Record) Back() (Field, bool) {
	if r.Empty() {
		return Field{}, false
	}
	return r.Field(len(r.entries) - 1), true
}

// FieldIndex returns the index of the first field with tag, or NotFound.
func (r *Record) FieldIndex(tag string) int {
	for i, e := range r.entries {
		if e.tag == tag {
			return i
		}
	}
	return NotFound
}

// FieldIndices returns the contiguous run of fields with tag that starts at
// the first match.
func (r *Record) FieldIndices(tag string) []int {
	start := r.FieldIndex(tag)
	if start == NotFound {
		return nil
	}
	var out []int
	for i := start; i < len(r.entries) && r.entries[i].tag == tag; i++ {
		out = append(out, i)
	}
	return out
}

// FirstField returns the first field with tag.
func (r *Record) FirstField(tag string) (Field, bool) {
	if i := r.FieldIndex(tag); i != NotFound {
		return r.Field(i), true
	}
	return Field{}, false
}

// TagRange returns every field with tag, wherever it occurs.
func (r *Record) TagRange(tag string) []Field {
	var out []Field
	for i, e := range r.entries {
		if e.tag == tag {
			out = append(out, r.Field(i))
		}
	}
	return out
}

func (r *Record) appendRaw(contents string) (offset, length int) {
	offset = len(r.raw)
	r.raw = append(r.raw, contents...)
	r.raw = append(r.raw, FieldTerminator)
	return offset, len(contents) + 1
}

// InsertField inserts a field at its tag-sorted position, after any fields
// with the same tag, and returns its index.
func (r *Record) InsertField(tag, contents string) int {
	pos := 0
	for pos < len(r.entries) && tag >= r.entries[pos].tag {
		pos++
	}
	offset, length := r.appendRaw(contents)
	r.entries = slices.Insert(r.entries, pos, directoryEntry{tag: tag, length: length, offset: offset})
	return pos
}

// AppendField adds f after the last field regardless of tag order.
func (r *Record) AppendField(f Field) int {
	offset, length := r.appendRaw(f.Contents)
	r.entries = append(r.entries, directoryEntry{tag: f.Tag, length: length, offset: offset})
	return len(r.entries) - 1
}

// UpdateField replaces the contents of field i.
func (r *Record) UpdateField(i int, contents string) {
	offset, length := r.appendRaw(contents)
	r.entries[i].offset = offset
	r.entries[i].length = length
}

// Retag renames every field tagged from to to.
func (r *Record) Retag(from, to string) int {
	n := 0
	for i := range r.entries {
		if r.entries[i].tag == from {
			r.entries[i].tag = to
			n++
		}
	}
	return n
}

// DeleteFields removes the given half-open index ranges in one pass. Ranges
// must be ascending and non-overlapping.
func (r *Record) DeleteFields(ranges []IndexRange) {
	if len(ranges) == 0 {
		return
	}
	kept := make([]directoryEntry, 0, len(r.entries))
	copyStart := 0
	for _, rg := range ranges {
		kept = append(kept, r.entries[copyStart:rg.Start]...)
		copyStart = rg.End
	}
	kept = append(kept, r.entries[copyStart:]...)
	r.entries = kept
}

// DeleteFieldsAt removes the fields at the given ascending indices.
func (r *Record) DeleteFieldsAt(indices []int) {
	ranges := make([]IndexRange, 0, len(indices))
	for _, i := range indices {
		if n := len(ranges); n > 0 && ranges[n-1].End == i {
			ranges[n-1].End = i + 1
			continue
		}
		ranges = append(ranges, IndexRange{Start: i, End: i + 1})
	}
	r.DeleteFields(ranges)
}

// FilterTags drops every field whose tag is in tags.
func (r *Record) FilterTags(tags ...string) {
	var doomed []int
	for i, e := range r.entries {
		if slices.Contains(tags, e.tag) {
			doomed = append(doomed, i)
		}
	}
	r.DeleteFieldsAt(doomed)
}

// SortFields stably sorts fields [start, end) by tag.
func (r *Record) SortFields(start, end int) {
	slices.SortStableFunc(r.entries[start:end], func(a, b directoryEntry) int {
		return strings.Compare(a.tag, b.tag)
	})
}

// ExtractSubfield returns every value of code in the run of fields with tag.
func (r *Record) ExtractSubfield(tag string, code byte) []string {
	var out []string
	for _, i := range r.FieldIndices(tag) {
		out = append(out, r.Field(i).Subfields().Extract(code)...)
	}
	return out
}

// ExtractSubfields returns the values of all codes in the run of fields with
// tag, in field order.
func (r *Record) ExtractSubfields(tag, codes string) []string {
	var out []string
	for _, i := range r.FieldIndices(tag) {
		out = append(out, r.Field(i).Subfields().ExtractCodes(codes)...)
	}
	return out
}

// ExtractFirstSubfield returns the first value of code in the first field
// with tag, or "".
func (r *Record) ExtractFirstSubfield(tag string, code byte) string {
	if f, ok := r.FirstField(tag); ok {
		return f.FirstSubfield(code)
	}
	return ""
}
