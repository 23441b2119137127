package testsupport

import (
	"testing"

	"marclink/internal/marc"
)

const (
	serialLeader     = "00000nas a2200000   4500"
	monographLeader  = "00000nam a2200000   4500"
	electronicLeader = "00000nms a2200000   4500"
)

// Sub builds a subfield list from alternating code/value strings:
// Sub("a", "Title", "b", "Subtitle").
func Sub(pairs ...string) marc.Subfields {
	if len(pairs)%2 != 0 {
		panic("testsupport.Sub: odd number of arguments")
	}
	var out marc.Subfields
	for i := 0; i < len(pairs); i += 2 {
		out = out.Add(pairs[i][0], pairs[i+1])
	}
	return out
}

// Data builds a data field with the given indicators ("  " for blanks).
func Data(tag, indicators string, pairs ...string) marc.Field {
	return marc.NewDataField(tag, indicators[0], indicators[1], Sub(pairs...))
}

// Control builds a control field.
func Control(tag, contents string) marc.Field {
	return marc.NewControlField(tag, contents)
}

// Serial builds a print serial record with control number id; fields are
// appended in the given order after 001.
func Serial(id string, fields ...marc.Field) *marc.Record {
	return build(serialLeader, id, fields)
}

// OnlineSerial builds a serial whose record type marks an electronic resource.
func OnlineSerial(id string, fields ...marc.Field) *marc.Record {
	return build(electronicLeader, id, fields)
}

// Monograph builds a non-serial record.
func Monograph(id string, fields ...marc.Field) *marc.Record {
	return build(monographLeader, id, fields)
}

func build(leader, id string, fields []marc.Field) *marc.Record {
	rec := marc.NewRecord(leader)
	if id != "" {
		rec.AppendField(marc.NewControlField("001", id))
	}
	for _, f := range fields {
		rec.AppendField(f)
	}
	return rec
}

// AlsoAs returns a 776 cross-link pointing at id in the K10plus namespace.
func AlsoAs(id string) marc.Field {
	return Data("776", "08", "i", "Erscheint auch als", "w", "(DE-627)"+id)
}

// Uplink returns a link field of tag pointing at id.
func Uplink(tag, id string) marc.Field {
	return Data(tag, "08", "w", "(DE-627)"+id)
}

// Tags returns the tags of rec in order.
func Tags(rec *marc.Record) []string {
	out := make([]string, rec.Len())
	for i := range out {
		out[i] = rec.Tag(i)
	}
	return out
}

// MustEncode encodes rec or fails the test.
func MustEncode(t testing.TB, rec *marc.Record) []byte {
	t.Helper()
	data, err := marc.Encode(rec)
	if err != nil {
		t.Fatalf("marc.Encode: %v", err)
	}
	return data
}
