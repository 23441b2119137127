package marc

import (
	"fmt"
	"strings"
)

const (
	LeaderLength         = 24
	DirectoryEntryLength = 12
	TagLength            = 3
	// MaxFieldLength is the largest field length, terminator included, that
	// fits the four-digit directory length column.
	MaxFieldLength = 9999
	// MaxRecordLength is bounded by the five-digit leader and offset columns.
	MaxRecordLength = 99999

	FieldTerminator   byte = 0x1E
	RecordTerminator  byte = 0x1D
	SubfieldDelimiter byte = 0x1F
)

// defaultLeader is used when a record is built without one.
const defaultLeader = "00000nam a2200000   4500"

// normalizeLeader pads or truncates leader to LeaderLength bytes.
func normalizeLeader(leader string) string {
	switch {
	case leader == "":
		return defaultLeader
	case len(leader) < LeaderLength:
		return leader + strings.Repeat(" ", LeaderLength-len(leader))
	case len(leader) > LeaderLength:
		return leader[:LeaderLength]
	default:
		return leader
	}
}

// stampLeader writes the computed length and base address into leader along
// with the fixed indicator/subfield counts and entry map.
func stampLeader(leader string, recordLength, baseAddress int) string {
	b := []byte(normalizeLeader(leader))
	copy(b[0:5], fmt.Sprintf("%05d", recordLength))
	b[10] = '2'
	b[11] = '2'
	copy(b[12:17], fmt.Sprintf("%05d", baseAddress))
	copy(b[20:24], "4500")
	return string(b)
}

// parseDigits parses an unsigned decimal number, rejecting anything else.
func parseDigits(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}
