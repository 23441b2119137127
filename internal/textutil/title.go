package textutil

import (
	"strings"
	"unicode"
)

// isTitleSeparator reports runes that split title words.
func isTitleSeparator(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) || isDash(r)
}

// NormalizeTitle produces the title-index key: ligatures expanded, diacritics
// stripped, case folded, and every run of punctuation, dashes or whitespace
// replaced by a single space with none at either end.
func NormalizeTitle(title string) string {
	folded := foldKey(title)

	var b strings.Builder
	b.Grow(len(folded))
	separatorSeen := true
	for _, r := range folded {
		if isTitleSeparator(r) {
			if !separatorSeen {
				b.WriteByte(' ')
			}
			separatorSeen = true
			continue
		}
		b.WriteRune(r)
		separatorSeen = false
	}
	return strings.TrimSuffix(b.String(), " ")
}
