package marc

import "strings"

// Subfield is one coded value inside a data field.
type Subfield struct {
	Code  byte
	Value string
}

// Subfields is an ordered subfield list. Codes may repeat.
type Subfields []Subfield

// ParseSubfields splits the subfield area of a data field (the contents
// after the two indicators).
func ParseSubfields(data string) Subfields {
	var out Subfields
	// parts[0] is whatever precedes the first delimiter and is not a subfield.
	parts := strings.Split(data, string(SubfieldDelimiter))
	for _, chunk := range parts[1:] {
		if chunk == "" {
			continue
		}
		out = append(out, Subfield{Code: chunk[0], Value: chunk[1:]})
	}
	return out
}

// String serializes the list in wire form.
func (s Subfields) String() string {
	var b strings.Builder
	for _, sf := range s {
		b.WriteByte(SubfieldDelimiter)
		b.WriteByte(sf.Code)
		b.WriteString(sf.Value)
	}
	return b.String()
}

// Codes returns the code sequence, e.g. "abc" for $a $b $c.
func (s Subfields) Codes() string {
	b := make([]byte, len(s))
	for i, sf := range s {
		b[i] = sf.Code
	}
	return string(b)
}

// Has reports whether any subfield carries code.
func (s Subfields) Has(code byte) bool {
	for _, sf := range s {
		if sf.Code == code {
			return true
		}
	}
	return false
}

// First returns the value of the first subfield with code, or "".
func (s Subfields) First(code byte) string {
	for _, sf := range s {
		if sf.Code == code {
			return sf.Value
		}
	}
	return ""
}

// Extract returns all values with code, in field order.
func (s Subfields) Extract(code byte) []string {
	var out []string
	for _, sf := range s {
		if sf.Code == code {
			out = append(out, sf.Value)
		}
	}
	return out
}

// ExtractCodes returns the values of every subfield whose code is in codes,
// in field order.
func (s Subfields) ExtractCodes(codes string) []string {
	var out []string
	for _, sf := range s {
		if strings.IndexByte(codes, sf.Code) >= 0 {
			out = append(out, sf.Value)
		}
	}
	return out
}

// Add appends a subfield.
func (s Subfields) Add(code byte, value string) Subfields {
	return append(s, Subfield{Code: code, Value: value})
}

// InsertOrReplace sets the first subfield with code to value, or inserts a
// new subfield keeping codes in ascending order when none exists.
func (s Subfields) InsertOrReplace(code byte, value string) Subfields {
	for i := range s {
		if s[i].Code == code {
			out := append(Subfields(nil), s...)
			out[i].Value = value
			return out
		}
	}
	pos := len(s)
	for i, sf := range s {
		if sf.Code > code {
			pos = i
			break
		}
	}
	out := make(Subfields, 0, len(s)+1)
	out = append(out, s[:pos]...)
	out = append(out, Subfield{Code: code, Value: value})
	return append(out, s[pos:]...)
}

// ReplaceAll replaces every value equal to oldValue under code with
// newValue and reports whether anything changed.
func (s Subfields) ReplaceAll(code byte, oldValue, newValue string) (Subfields, bool) {
	out := append(Subfields(nil), s...)
	changed := false
	for i := range out {
		if out[i].Code == code && out[i].Value == oldValue {
			out[i].Value = newValue
			changed = true
		}
	}
	return out, changed
}

// Remove drops every subfield with code.
func (s Subfields) Remove(code byte) Subfields {
	out := make(Subfields, 0, len(s))
	for _, sf := range s {
		if sf.Code != code {
			out = append(out, sf)
		}
	}
	return out
}
