package guesser

import (
	"bytes"
	"fmt"
	"slices"
	"strings"
)

const idSeparator = '\x00'

// checkID rejects ids that cannot be stored unambiguously.
func checkID(id string, width int) error {
	switch {
	case id == "":
		return fmt.Errorf("empty control number")
	case strings.IndexByte(id, idSeparator) >= 0:
		return fmt.Errorf("control number %q contains a NUL byte", id)
	case width > 0 && len(id) > width:
		return fmt.Errorf("control number %q is longer than %d bytes", id, width)
	}
	return nil
}

// appendID adds id to a NUL-joined list. added is false when id was
// already present.
func appendID(list []byte, id string) (out []byte, added bool, err error) {
	if err := checkID(id, 0); err != nil {
		return nil, false, err
	}
	ids, err := decodeIDs(list)
	if err != nil {
		return nil, false, err
	}
	if slices.Contains(ids, id) {
		return list, false, nil
	}
	out = slices.Clone(list)
	if len(out) > 0 {
		out = append(out, idSeparator)
	}
	return append(out, id...), true, nil
}

// decodeIDs splits a NUL-joined list. Empty elements mean the value was not
// written by appendID.
func decodeIDs(list []byte) ([]string, error) {
	if len(list) == 0 {
		return nil, nil
	}
	parts := bytes.Split(list, []byte{idSeparator})
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if len(p) == 0 {
			return nil, fmt.Errorf("corrupt id list %q: empty element", list)
		}
		ids = append(ids, string(p))
	}
	return ids, nil
}

// appendFixed adds id to a list of width+1 byte slots, each NUL padded.
func appendFixed(list []byte, id string, width int) (out []byte, added bool, err error) {
	if err := checkID(id, width); err != nil {
		return nil, false, err
	}
	ids, err := decodeFixed(list, width)
	if err != nil {
		return nil, false, err
	}
	if slices.Contains(ids, id) {
		return list, false, nil
	}
	out = make([]byte, len(list), len(list)+width+1)
	copy(out, list)
	out = append(out, id...)
	for i := len(id); i <= width; i++ {
		out = append(out, idSeparator)
	}
	return out, true, nil
}

// decodeFixed splits a list of width+1 byte slots.
func decodeFixed(list []byte, width int) ([]string, error) {
	slot := width + 1
	if len(list)%slot != 0 {
		return nil, fmt.Errorf("corrupt fixed-width id list: %d bytes is not a multiple of %d", len(list), slot)
	}
	ids := make([]string, 0, len(list)/slot)
	for off := 0; off < len(list); off += slot {
		s := list[off : off+slot]
		id, _, _ := bytes.Cut(s, []byte{idSeparator})
		if len(id) == 0 {
			return nil, fmt.Errorf("corrupt fixed-width id list: empty slot at byte %d", off)
		}
		ids = append(ids, string(id))
	}
	return ids, nil
}
