package textutil

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ligatureReplacer expands typographic ligatures into their letter sequences.
var ligatureReplacer = strings.NewReplacer(
	"ﬀ", "ff",
	"ﬁ", "fi",
	"ﬂ", "fl",
	"ﬃ", "ffi",
	"ﬄ", "ffl",
	"ﬅ", "st",
	"ﬆ", "st",
	"Æ", "AE",
	"æ", "ae",
	"Œ", "OE",
	"œ", "oe",
	"Ĳ", "IJ",
	"ĳ", "ij",
	"Ǆ", "DŽ",
	"ǅ", "Dž",
	"ǆ", "dž",
	"Ǉ", "LJ",
	"ǈ", "Lj",
	"ǉ", "lj",
	"Ǌ", "NJ",
	"ǋ", "Nj",
	"ǌ", "nj",
)

// ExpandLigatures replaces ligature code points with the letters they join.
func ExpandLigatures(s string) string {
	return ligatureReplacer.Replace(s)
}

// RemoveDiacritics decomposes s, drops combining marks and recomposes it.
// Invalid UTF-8 is returned unchanged.
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Fold applies Unicode case folding. Runes that case folding would change
// again (the Cherokee letters swap between cases on every fold) are mapped to
// one representative of their case orbit, so Fold(Fold(s)) == Fold(s).
func Fold(s string) string {
	return strings.Map(foldRepresentative, cases.Fold().String(s))
}

var foldRepresentatives sync.Map // rune -> rune

// foldRepresentative returns r when folding leaves it alone. Otherwise it
// returns the first fold-stable member of its simple case orbit, or the
// lowest member when the orbit has none.
func foldRepresentative(r rune) rune {
	if r < utf8.RuneSelf {
		return r
	}
	if rep, ok := foldRepresentatives.Load(r); ok {
		return rep.(rune)
	}

	rep := r
	if !foldStable(r) {
		lowest, stable := r, rune(-1)
		for o := unicode.SimpleFold(r); o != r; o = unicode.SimpleFold(o) {
			if foldStable(o) {
				stable = o
				break
			}
			lowest = min(lowest, o)
		}
		rep = lowest
		if stable >= 0 {
			rep = stable
		}
	}
	foldRepresentatives.Store(r, rep)
	return rep
}

func foldStable(r rune) bool {
	s := string(r)
	return cases.Fold().String(s) == s
}

// foldKey runs the character-level steps shared by the index normalizers.
// Folding goes first since it can emit combining marks (İ folds to i + U+0307).
// Diacritics go before ligature expansion so ǣ reaches the æ rule, and once
// more after it since ǆ expands to dž.
func foldKey(s string) string {
	return RemoveDiacritics(ExpandLigatures(RemoveDiacritics(Fold(s))))
}

// isDash reports whether r is any Unicode dash, including the minus sign.
func isDash(r rune) bool {
	return unicode.Is(unicode.Pd, r) || r == '−' || r == '⁃' || r == '﹣' || r == '－'
}

// CanonicalText returns the comparison form used when merging field values:
// case folded, whitespace runs collapsed to one space, no leading whitespace,
// no trailing whitespace or commas, and every dash variant mapped to '-'.
func CanonicalText(s string) string {
	folded := Fold(s)

	var b strings.Builder
	b.Grow(len(folded))
	pendingSpace := false
	for _, r := range folded {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = b.Len() > 0
		default:
			if pendingSpace {
				b.WriteByte(' ')
				pendingSpace = false
			}
			if isDash(r) {
				b.WriteByte('-')
			} else {
				b.WriteRune(r)
			}
		}
	}

	return strings.TrimRightFunc(b.String(), func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}
