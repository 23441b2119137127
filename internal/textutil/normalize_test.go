package textutil

import (
	"testing"
	"unicode"
)

func TestCanonicalText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"leading whitespace", "   Berlin", "berlin"},
		{"collapse internal", "Berlin \t  Springer", "berlin springer"},
		{"trailing commas and spaces", "Berlin , ,  ", "berlin"},
		{"en dash", "1990–1995", "1990-1995"},
		{"em dash and minus", "a—b−c", "a-b-c"},
		{"case fold", "STRASSE", "strasse"},
		{"inner comma kept", "Berlin, Heidelberg", "berlin, heidelberg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanonicalText(tt.in); got != tt.want {
				t.Fatalf("CanonicalText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Die Bibel, 2. Aufl.", "die bibel 2 aufl"},
		{"die  bibel 2 aufl", "die bibel 2 aufl"},
		{"  --Zeitschrift für Théologie--  ", "zeitschrift fur theologie"},
		{"Oﬃce Æsthetics", "office aesthetics"},
		{"", ""},
		{"...", ""},
	}

	for _, tt := range tests {
		if got := NormalizeTitle(tt.in); got != tt.want {
			t.Fatalf("NormalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeAuthor(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Müller, Hans", "hans muller"},
		{"  Hans   Müller ", "hans muller"},
		{"Müller, Hans J.", "hans muller"},
		{"J. Smith", "j smith"},
		{"Smith, J.", "j smith"},
		{"Dr. Smith", "dr. smith"},
		{"Doe, John, Jr.", "john doe"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeAuthor(tt.in); got != tt.want {
			t.Fatalf("NormalizeAuthor(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAuthorNormalizationStripsRatherThanTransliterates(t *testing.T) {
	if NormalizeAuthor("Müller, Hans") == NormalizeAuthor("hans mueller") {
		t.Fatal("diacritic stripping must not respell ü as ue")
	}
}

func TestNormalizationIsIdempotent(t *testing.T) {
	inputs := []string{
		"Die Bibel, 2. Aufl.",
		"Müller, Hans J.",
		"  İstanbul ve Çevresi ",
		"Doe, John, Jr.",
		"a . b",
		"ǅemal, Ǉubo",
		"Œuvres complètes — tome Ⅱ",
		"Straße, ẞ",
		".",
		", ,",
		"x.y.z",
		"Ǣ",
		"Ǽrø",
		"Ꭰ",
		"ꭰ",
		"ᏸᎣᏏ",
	}
	funcs := map[string]func(string) string{
		"CanonicalText":   CanonicalText,
		"NormalizeTitle":  NormalizeTitle,
		"NormalizeAuthor": NormalizeAuthor,
	}

	for name, fn := range funcs {
		for _, in := range inputs {
			once := fn(in)
			if twice := fn(once); twice != once {
				t.Fatalf("%s not idempotent for %q: %q then %q", name, in, once, twice)
			}
		}
	}
}

func TestNormalizationIsIdempotentForEveryPrintableRune(t *testing.T) {
	if testing.Short() {
		t.Skip("walks the printable runes of the first three planes")
	}
	funcs := map[string]func(string) string{
		"CanonicalText":   CanonicalText,
		"NormalizeTitle":  NormalizeTitle,
		"NormalizeAuthor": NormalizeAuthor,
	}

	for name, fn := range funcs {
		for r := rune(0x20); r <= 0x2FFFF; r++ {
			if !unicode.IsPrint(r) {
				continue
			}
			in := "x" + string(r) + string(r)
			once := fn(in)
			if twice := fn(once); twice != once {
				t.Errorf("%s not idempotent for U+%04X: %q then %q", name, r, once, twice)
			}
		}
	}
}

func TestFoldIsStableForCherokee(t *testing.T) {
	upper, lower := Fold("Ꭰ"), Fold("ꭰ")
	if upper != lower {
		t.Fatalf("Fold disagrees across cases: %q vs %q", upper, lower)
	}
	if again := Fold(upper); again != upper {
		t.Fatalf("Fold(%q) = %q, want a fixed point", upper, again)
	}
}
