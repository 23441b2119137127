package merge_test

import (
	"slices"
	"testing"

	"marclink/internal/merge"
	ts "marclink/internal/testsupport"
)

func lookup(m map[string]string) merge.CanonicalLookup {
	return func(id string) (string, bool) {
		c, ok := m[id]
		return c, ok
	}
}

func TestPatchUplinksCollapsesMergedTargets(t *testing.T) {
	rec := ts.Monograph("300",
		ts.Data("773", "08", "w", "(DE-600)ZDB1"),
		ts.Data("800", "1 ", "a", "Reihe", "w", "(DE-576)100"),
		ts.Uplink("830", "100"),
		ts.Uplink("830", "200"),
		ts.Uplink("830", "500"),
	)

	patched := newMerger().PatchUplinks(rec, lookup(map[string]string{"100": "200"}))
	if patched != 2 {
		t.Fatalf("patched = %d, want 2", patched)
	}
	if got := ts.Tags(rec); !slices.Equal(got, []string{"001", "773", "800", "830", "830"}) {
		t.Fatalf("tags = %v", got)
	}
	if got := rec.ExtractFirstSubfield("800", 'w'); got != "(DE-576)200" {
		t.Fatalf("800 $w = %q, want the namespace prefix kept", got)
	}
	if got := rec.ExtractSubfield("830", 'w'); !slices.Equal(got, []string{"(DE-627)200", "(DE-627)500"}) {
		t.Fatalf("830 $w = %v", got)
	}
	if got := rec.ExtractFirstSubfield("773", 'w'); got != "(DE-600)ZDB1" {
		t.Fatalf("foreign namespace must be left alone, got %q", got)
	}
}

func TestPatchUplinksWithoutMergedTargets(t *testing.T) {
	rec := ts.Monograph("300", ts.Uplink("830", "100"))
	if n := newMerger().PatchUplinks(rec, lookup(nil)); n != 0 {
		t.Fatalf("patched = %d", n)
	}
	if rec.Len() != 2 {
		t.Fatalf("record changed: %v", ts.Tags(rec))
	}
}

func TestDeleteCrossLinkFields(t *testing.T) {
	rec := ts.Serial("200",
		ts.AlsoAs("100"),
		ts.AlsoAs("999"),
		ts.Data("775", "08", "w", "(DE-627)200"),
		ts.Data("780", "00", "w", "(DE-627)100"),
	)
	if n := newMerger().DeleteCrossLinkFields(rec, []string{"200", "100"}); n != 2 {
		t.Fatalf("deleted = %d, want 2", n)
	}
	if got := ts.Tags(rec); !slices.Equal(got, []string{"001", "776", "780"}) {
		t.Fatalf("tags = %v", got)
	}
	if got := rec.ExtractFirstSubfield("776", 'w'); got != "(DE-627)999" {
		t.Fatalf("remaining 776 $w = %q", got)
	}
}

func TestPatch246i(t *testing.T) {
	rec := ts.Serial("100",
		ts.Data("246", "13", "i", "Nebentitel:", "a", "A"),
		ts.Data("246", "13", "i", "Parallel", "a", "B"),
	)
	if n := merge.Patch246i(rec); n != 1 {
		t.Fatalf("patched = %d", n)
	}
	if got := rec.ExtractSubfield("246", 'i'); !slices.Equal(got, []string{"Abweichender Titel", "Parallel"}) {
		t.Fatalf("246 $i = %v", got)
	}
}
