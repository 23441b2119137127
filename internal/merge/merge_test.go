package merge_test

import (
	"bytes"
	"errors"
	"slices"
	"testing"

	"marclink/internal/failures"
	"marclink/internal/logging"
	"marclink/internal/marc"
	"marclink/internal/merge"
	ts "marclink/internal/testsupport"
)

func newMerger() *merge.Merger {
	return merge.NewMerger(merge.DefaultOptions(), logging.NewNop())
}

func printSerial() *marc.Record {
	return ts.Serial("100",
		ts.Control("005", "20200101093000.0"),
		ts.Data("022", "  ", "a", "1234-5678"),
		ts.Data("245", "00", "a", "Zeitschrift  für Theologie,", "b", "gedruckt"),
		ts.Data("246", "13", "i", "Nebentitel:", "a", "ZfT"),
		ts.Data("260", "  ", "a", "Berlin", "b", "Verlag ", "c", "1990-2000"),
		ts.Data("500", "  ", "a", "Nur gedruckt"),
	)
}

func onlineSerial() *marc.Record {
	return ts.OnlineSerial("200",
		ts.Control("005", "20190101093000.0"),
		ts.Data("022", "  ", "a", "8765-4321"),
		ts.Data("245", "00", "a", "Zeitschrift für Theologie", "b", "online"),
		ts.Data("264", " 1", "a", "Berlin", "b", "Verlag", "c", "2001-"),
		ts.AlsoAs("100"),
	)
}

func mustMerge(t *testing.T, a, b *marc.Record) merge.Result {
	t.Helper()
	res, err := newMerger().MergePair(a, b)
	if err != nil {
		t.Fatalf("MergePair(%s, %s): %v", a.ControlNumber(), b.ControlNumber(), err)
	}
	return res
}

func TestMergePairIsCommutative(t *testing.T) {
	p, o := printSerial(), onlineSerial()
	before := ts.MustEncode(t, p)

	ab := mustMerge(t, p, o)
	ba := mustMerge(t, o, p)

	if ab.Survivor != "200" || ab.Absorbed != "100" {
		t.Fatalf("unexpected survivor/absorbed %s/%s", ab.Survivor, ab.Absorbed)
	}
	if ba.Survivor != ab.Survivor || ba.Absorbed != ab.Absorbed {
		t.Fatalf("argument order changed the survivor: %s vs %s", ba.Survivor, ab.Survivor)
	}
	if !bytes.Equal(ts.MustEncode(t, ab.Record), ts.MustEncode(t, ba.Record)) {
		t.Fatal("merge result depends on argument order")
	}
	if got := ab.Record.ControlNumber(); got != "200" {
		t.Fatalf("merged control number = %q", got)
	}
	if !bytes.Equal(before, ts.MustEncode(t, p)) {
		t.Fatal("MergePair modified its input")
	}
}

func TestMergePairFieldPolicy(t *testing.T) {
	res := mustMerge(t, printSerial(), onlineSerial())
	rec := res.Record

	want := []string{"001", "005", "022", "022", "245", "246", "264", "500", "776", "ZWI"}
	if got := ts.Tags(rec); !slices.Equal(got, want) {
		t.Fatalf("tags = %v, want %v", got, want)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("unexpected warnings %v", res.Warnings)
	}

	if f, _ := rec.FirstField("005"); f.Contents != "20200101093000.0" {
		t.Fatalf("005 = %q, want the later timestamp", f.Contents)
	}

	issns := rec.TagRange("022")
	if issns[0].FirstSubfield('a') != "8765-4321" || issns[0].FirstSubfield('2') != "electronic" {
		t.Fatalf("unexpected first 022 %q", issns[0].Contents)
	}
	if issns[1].FirstSubfield('a') != "1234-5678" || issns[1].FirstSubfield('2') != "print" {
		t.Fatalf("unexpected second 022 %q", issns[1].Contents)
	}

	title, _ := rec.FirstField("245")
	if got := title.FirstSubfield('a'); got != "Zeitschrift für Theologie" {
		t.Fatalf("245 $a = %q, want the survivor's value once", got)
	}
	if got := title.FirstSubfield('b'); got != "online (electronic); gedruckt (print)" {
		t.Fatalf("245 $b = %q", got)
	}

	if got := rec.ExtractFirstSubfield("246", 'i'); got != "Abweichender Titel" {
		t.Fatalf("246 $i = %q", got)
	}

	pub, _ := rec.FirstField("264")
	if pub.Indicators() != " 1" {
		t.Fatalf("264 indicators = %q", pub.Indicators())
	}
	if got := pub.FirstSubfield('c'); got != "2001- (electronic); 1990-2000 (print)" {
		t.Fatalf("264 $c = %q", got)
	}

	zwi, _ := rec.FirstField(merge.MergedIDsTag)
	if zwi.FirstSubfield('a') != "1" || !slices.Equal(merge.MergedIDs(rec), []string{"100"}) {
		t.Fatalf("unexpected ZWI %q", zwi.Contents)
	}
}

func TestMergePairKeepsUnmatchedPublications(t *testing.T) {
	a := ts.Serial("100", ts.Data("264", " 1", "a", "Berlin", "b", "Verlag A", "c", "1990"))
	b := ts.Serial("200", ts.Data("264", " 1", "a", "Wien", "b", "Verlag B", "c", "1991"))
	rec := mustMerge(t, a, b).Record
	if got := len(rec.TagRange("264")); got != 2 {
		t.Fatalf("expected both publication statements, got %d", got)
	}
}

func TestMergePairSubfieldSequenceMismatch(t *testing.T) {
	a := ts.Serial("100", ts.Data("245", "00", "a", "Titel", "c", "Verantwortung"))
	b := ts.Serial("200", ts.Data("245", "00", "a", "Titel", "b", "Zusatz"))
	res := mustMerge(t, a, b)

	if len(res.Warnings) != 1 {
		t.Fatalf("expected one warning, got %v", res.Warnings)
	}
	w := res.Warnings[0]
	if w.Tag != "245" || w.ControlNumber != "200" || !errors.Is(w, failures.ErrPolicyGap) {
		t.Fatalf("unexpected warning %+v", w)
	}
	title, _ := res.Record.FirstField("245")
	if got := title.Subfields().Codes(); got != "ab" {
		t.Fatalf("expected the survivor's 245 unchanged, got codes %q", got)
	}
}

func TestMergePairVolumeFields(t *testing.T) {
	tests := []struct {
		name     string
		survivor string
		absorbed string
		want     string
		warnings int
	}{
		{"equal after canonicalization", "Bd. 1", "bd.  1", "Bd. 1", 0},
		{"survivor unknown", "?", "Bd. 2", "Bd. 2", 0},
		{"absorbed unknown", "Bd. 3", "?", "Bd. 3", 0},
		{"conflict keeps survivor", "Bd. 4", "Bd. 5", "Bd. 4", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := ts.Serial("100", ts.Data("936", "uw", "d", tt.absorbed))
			b := ts.Serial("200", ts.Data("936", "uw", "d", tt.survivor))
			res := mustMerge(t, a, b)
			fields := res.Record.TagRange("936")
			if len(fields) != 1 || fields[0].FirstSubfield('d') != tt.want {
				t.Fatalf("936 fields = %v, want one with $d %q", fields, tt.want)
			}
			if len(res.Warnings) != tt.warnings {
				t.Fatalf("warnings = %v", res.Warnings)
			}
		})
	}
}

func TestMergePairAppendsRemainingFields(t *testing.T) {
	a := ts.Serial("100",
		ts.Data("245", "00", "a", "Titel"),
		ts.Data("650", " 4", "a", "Theologie"),
		ts.Data("700", "1 ", "a", "Muster, Max"),
	)
	b := ts.Serial("200", ts.Data("245", "00", "a", "Titel"))
	rec := mustMerge(t, a, b).Record
	want := []string{"001", "245", "650", "700", "ZWI"}
	if got := ts.Tags(rec); !slices.Equal(got, want) {
		t.Fatalf("tags = %v, want %v", got, want)
	}
}

func TestMergePairSuppressesDuplicates(t *testing.T) {
	shared := ts.Data("650", " 4", "a", "Kirchengeschichte")
	a := ts.Serial("100", shared, ts.Data("650", " 4", "a", "Mission"))
	b := ts.Serial("200", shared)
	rec := mustMerge(t, a, b).Record
	if got := len(rec.TagRange("650")); got != 2 {
		t.Fatalf("expected shared 650 once plus the extra one, got %d", got)
	}
}

func TestMergePairLocalHoldings(t *testing.T) {
	lok := ts.Data("LOK", "  ", "0", "000 xxxxxnu  a22     uu 4500")
	a := ts.Serial("100", ts.Data("245", "00", "a", "Titel"), lok, ts.Data("LOK", "  ", "0", "852", "a", "DE-21"))
	b := ts.Serial("200", ts.Data("245", "00", "a", "Titel"))

	rec := mustMerge(t, a, b).Record
	if got := ts.Tags(rec); !slices.Equal(got, []string{"001", "245", "LOK", "LOK", "ZWI"}) {
		t.Fatalf("tags = %v", got)
	}

	c := ts.Serial("200", ts.Data("245", "00", "a", "Titel"), lok)
	_, err := newMerger().MergePair(a, c)
	var ce *failures.ConsistencyError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConsistencyError, got %v", err)
	}
	if !slices.Equal(ce.Group, []string{"100", "200"}) {
		t.Fatalf("unexpected group %v", ce.Group)
	}
}

func TestMergePairAccumulatesMergedIDs(t *testing.T) {
	a := ts.Serial("300", ts.Data(merge.MergedIDsTag, "  ", "a", "1", "b", "050"))
	b := ts.Serial("400", ts.Data(merge.MergedIDsTag, "  ", "a", "1", "b", "030"))
	rec := mustMerge(t, a, b).Record
	if got := len(rec.TagRange(merge.MergedIDsTag)); got != 1 {
		t.Fatalf("expected one ZWI field, got %d", got)
	}
	if got := merge.MergedIDs(rec); !slices.Equal(got, []string{"030", "050", "300"}) {
		t.Fatalf("merged ids = %v", got)
	}
}

func TestMergePairRejectsSelfMerge(t *testing.T) {
	if _, err := newMerger().MergePair(ts.Serial("100"), ts.Serial("100")); !errors.Is(err, failures.ErrConsistency) {
		t.Fatalf("expected consistency error, got %v", err)
	}
	if _, err := newMerger().MergePair(ts.Serial(""), ts.Serial("100")); err == nil {
		t.Fatal("expected error for a record without control number")
	}
}

func TestOptionsFromConfigMatchesDefaults(t *testing.T) {
	cfg := ts.NewConfig(t)
	opts, err := merge.OptionsFromConfig(cfg)
	if err != nil {
		t.Fatalf("OptionsFromConfig: %v", err)
	}
	want := merge.DefaultOptions()
	if !slices.Equal(opts.UplinkTags, want.UplinkTags) ||
		!slices.Equal(opts.Links.CrossLinkTags, want.Links.CrossLinkTags) ||
		!slices.Equal(opts.Links.NamespacePrefixes, want.Links.NamespacePrefixes) ||
		!slices.Equal(opts.Links.StandardNumberSubfields, want.Links.StandardNumberSubfields) ||
		opts.Links.ImplicitLinks != want.Links.ImplicitLinks ||
		opts.Links.SerialsOnly != want.Links.SerialsOnly {
		t.Fatalf("options from default config = %+v, want %+v", opts, want)
	}

	cfg.Merge.StandardNumberSubfields = []string{"022"}
	if _, err := merge.OptionsFromConfig(cfg); err == nil {
		t.Fatal("expected error for malformed subfield spec")
	}
}
