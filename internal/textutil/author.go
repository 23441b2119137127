package textutil

import (
	"strings"
	"unicode"
)

// NormalizeAuthor produces the author-index key.
//
// "Last, First" is swapped to "First Last" at the first comma; any further
// commas count as whitespace. A single letter followed by a period collapses
// to the bare letter. Only the first and last remaining words are kept.
func NormalizeAuthor(name string) string {
	name = strings.TrimSpace(foldKey(name))
	if last, first, ok := strings.Cut(name, ","); ok {
		name = strings.TrimSpace(first) + " " + strings.TrimSpace(last)
	}

	var b strings.Builder
	b.Grow(len(name))
	spaceSeen := true
	wordLength := 0
	for _, r := range name {
		switch {
		case r == '.':
			if wordLength != 1 {
				b.WriteByte('.')
			}
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			spaceSeen = true
			wordLength = 0
		case r == ',' || unicode.IsSpace(r):
			if !spaceSeen {
				b.WriteByte(' ')
			}
			spaceSeen = true
			wordLength = 0
		default:
			b.WriteRune(r)
			spaceSeen = false
			wordLength++
		}
	}

	words := strings.Fields(b.String())
	switch len(words) {
	case 0:
		return ""
	case 1:
		return words[0]
	default:
		return words[0] + " " + words[len(words)-1]
	}
}
