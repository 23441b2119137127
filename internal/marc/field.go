package marc

import "strings"

// Field is one variable field. For control fields Contents is the raw text;
// for data fields it is the two indicators followed by serialized subfields.
type Field struct {
	Tag      string
	Contents string
}

// NewControlField builds a control field.
func NewControlField(tag, contents string) Field {
	return Field{Tag: tag, Contents: contents}
}

// NewDataField builds a data field from indicators and subfields.
func NewDataField(tag string, ind1, ind2 byte, subfields Subfields) Field {
	var b strings.Builder
	b.WriteByte(ind1)
	b.WriteByte(ind2)
	b.WriteString(subfields.String())
	return Field{Tag: tag, Contents: b.String()}
}

// IsControlTag reports whether tag names a control field ("001" to "009").
func IsControlTag(tag string) bool {
	return strings.HasPrefix(tag, "00")
}

// IsControlField reports whether f is a control field.
func (f Field) IsControlField() bool {
	return IsControlTag(f.Tag)
}

// Indicator1 returns the first indicator, or ' ' for control or short fields.
func (f Field) Indicator1() byte {
	if f.IsControlField() || len(f.Contents) < 1 {
		return ' '
	}
	return f.Contents[0]
}

// Indicator2 returns the second indicator, or ' ' for control or short fields.
func (f Field) Indicator2() byte {
	if f.IsControlField() || len(f.Contents) < 2 {
		return ' '
	}
	return f.Contents[1]
}

// Indicators returns both indicators as a two-byte string.
func (f Field) Indicators() string {
	return string([]byte{f.Indicator1(), f.Indicator2()})
}

// Subfields parses the subfield list of a data field. Control fields have none.
func (f Field) Subfields() Subfields {
	if f.IsControlField() || len(f.Contents) < 2 {
		return nil
	}
	return ParseSubfields(f.Contents[2:])
}

// WithSubfields returns a copy of f whose subfields are replaced, keeping the
// indicators.
func (f Field) WithSubfields(subfields Subfields) Field {
	return NewDataField(f.Tag, f.Indicator1(), f.Indicator2(), subfields)
}

// FirstSubfield returns the first value with code, or "".
func (f Field) FirstSubfield(code byte) string {
	return f.Subfields().First(code)
}

// InsertOrReplaceSubfield returns a copy of f with code set to value.
func (f Field) InsertOrReplaceSubfield(code byte, value string) Field {
	return f.WithSubfields(f.Subfields().InsertOrReplace(code, value))
}

// Less orders fields by tag, then by contents.
func (f Field) Less(other Field) bool {
	if f.Tag != other.Tag {
		return f.Tag < other.Tag
	}
	return f.Contents < other.Contents
}
