package merge

import (
	"errors"
	"log/slog"
	"slices"
	"strings"

	"marclink/internal/failures"
	"marclink/internal/logging"
	"marclink/internal/marc"
	"marclink/internal/textutil"
)

const (
	tagLatestTransaction = "005"
	tagISSN              = "022"
	tagPublication       = "264"
	tagOldPublication    = "260"
	tagVolume            = "936"
	tagVariantTitle      = "246"

	// MergedIDsTag holds the ids absorbed into a record over every merge.
	MergedIDsTag = "ZWI"
)

// Result is the outcome of one pair merge.
type Result struct {
	Record   *marc.Record
	Survivor string
	Absorbed string
	Warnings []Warning
}

// Merger applies the pair merge policy. It holds no per-pair state.
type Merger struct {
	opts   Options
	logger *slog.Logger
}

// NewMerger returns a Merger logging through logger.
func NewMerger(opts Options, logger *slog.Logger) *Merger {
	return &Merger{opts: opts, logger: logging.NewComponentLogger(logger, "merge")}
}

// Options returns the policy the merger was built with.
func (m *Merger) Options() Options { return m.opts }

func medium(electronic bool) string {
	if electronic {
		return "electronic"
	}
	return "print"
}

// MergePair merges a and b into one record carrying the greater of the two
// control numbers. Neither input is modified. Both sides carrying local
// holdings is a *failures.ConsistencyError.
func (m *Merger) MergePair(a, b *marc.Record) (Result, error) {
	idA, idB := a.ControlNumber(), b.ControlNumber()
	if idA == "" || idB == "" {
		return Result{}, errors.New("merge: both records need a control number")
	}
	if idA == idB {
		return Result{}, &failures.ConsistencyError{Group: []string{idA}, ControlNumber: idA, Reason: "record merged with itself"}
	}
	rec1, rec2 := a.Clone(), b.Clone()
	if idB > idA {
		rec1, rec2 = rec2, rec1
	}
	survivor, absorbed := rec1.ControlNumber(), rec2.ControlNumber()

	if rec1.HasLocalHoldings() && rec2.HasLocalHoldings() {
		return Result{}, &failures.ConsistencyError{
			Group:         []string{absorbed, survivor},
			ControlNumber: survivor,
			Reason:        "both records carry local holdings",
		}
	}

	p := pairMerge{
		survivor:    survivor,
		electronic1: rec1.IsElectronicResource(),
		electronic2: rec2.IsElectronicResource(),
		merged:      marc.NewRecord(rec1.Leader()),
	}

	fields1, local1 := prepare(rec1)
	fields2, local2 := prepare(rec2)
	p.walk(fields1, fields2)

	local := local1
	if len(local) == 0 {
		local = local2
	}
	for _, f := range local {
		p.merged.AppendField(f)
	}

	setMergedIDs(p.merged, absorbed, rec1, rec2)

	for _, w := range p.warnings {
		logging.WarnWithContext(m.logger, "merge conflict resolved by keeping the survivor's field", "merge_policy_gap",
			logging.ControlNumber(w.ControlNumber),
			logging.String("tag", w.Tag),
			logging.String("reason", w.Reason),
			logging.String(logging.FieldImpact, "the absorbed record's value for this field is lost"),
			logging.String(logging.FieldErrorHint, "review the field in both records"),
		)
	}
	m.logger.Debug("merged record pair",
		logging.String("survivor", survivor),
		logging.String("absorbed", absorbed),
		logging.Int("fields", p.merged.Len()),
	)

	return Result{Record: p.merged, Survivor: survivor, Absorbed: absorbed, Warnings: p.warnings}, nil
}

// prepare retags, relabels and sorts rec, returning the tag-sorted fields
// before the local block and the local block itself.
func prepare(rec *marc.Record) (fields, local []marc.Field) {
	Patch246i(rec)
	rec.Retag(tagOldPublication, tagPublication)
	start := rec.LocalBlockStart()
	rec.SortFields(0, start)
	all := rec.Fields()
	return all[:start], all[start:]
}

type pairMerge struct {
	survivor    string
	electronic1 bool
	electronic2 bool
	merged      *marc.Record
	warnings    []Warning
}

func (p *pairMerge) warn(tag, reason string) {
	p.warnings = append(p.warnings, Warning{ControlNumber: p.survivor, Tag: tag, Reason: reason})
}

func (p *pairMerge) emit(f marc.Field) {
	if back, ok := p.merged.Back(); ok && back == f {
		return
	}
	p.merged.AppendField(f)
}

func (p *pairMerge) walk(fields1, fields2 []marc.Field) {
	i, j := 0, 0
	for i < len(fields1) && j < len(fields2) {
		x, y := fields1[i], fields2[j]
		if back, ok := p.merged.Back(); ok {
			if back == x {
				i++
				continue
			}
			if back == y {
				j++
				continue
			}
		}

		switch {
		case x.Tag == y.Tag && !marc.IsRepeatable(x.Tag):
			if x.IsControlField() {
				p.emit(mergeControlFields(x, y))
			} else {
				p.emit(p.mergeDataFields(x, y))
			}
			i, j = i+1, j+1
		case x.Tag == tagISSN && y.Tag == tagISSN:
			p.emit(x.InsertOrReplaceSubfield('2', medium(p.electronic1)))
			p.emit(y.InsertOrReplaceSubfield('2', medium(p.electronic2)))
			i, j = i+1, j+1
		case x.Tag == tagPublication && y.Tag == tagPublication && leadingSubfieldsEqual(x, y, "ab"):
			p.emit(p.mergePublication(x, y))
			i, j = i+1, j+1
		case x.Tag == tagVolume && y.Tag == tagVolume:
			p.emit(p.mergeVolume(x, y))
			i, j = i+1, j+1
		case x.Less(y):
			p.emit(x)
			i++
		case y.Less(x):
			p.emit(y)
			j++
		default:
			p.emit(x)
			i, j = i+1, j+1
		}
	}
	for ; i < len(fields1); i++ {
		p.emit(fields1[i])
	}
	for ; j < len(fields2); j++ {
		p.emit(fields2[j])
	}
}

func mergeControlFields(x, y marc.Field) marc.Field {
	if x.Tag == tagLatestTransaction && y.Contents > x.Contents {
		return y
	}
	return x
}

// mergeDataFields merges two occurrences of a non-repeatable data field
// subfield by subfield. Differing code sequences keep x.
func (p *pairMerge) mergeDataFields(x, y marc.Field) marc.Field {
	sf1, sf2 := x.Subfields(), y.Subfields()
	if sf1.Codes() != sf2.Codes() {
		p.warn(x.Tag, "subfield sequences differ ("+sf1.Codes()+" vs "+sf2.Codes()+")")
		return x
	}
	merged := make(marc.Subfields, 0, len(sf1))
	for k := range sf1 {
		v1, v2 := sf1[k].Value, sf2[k].Value
		if textutil.CanonicalText(v1) == textutil.CanonicalText(v2) {
			merged = merged.Add(sf1[k].Code, v1)
			continue
		}
		merged = merged.Add(sf1[k].Code, p.annotate(v1, v2))
	}
	return x.WithSubfields(merged)
}

func (p *pairMerge) annotate(v1, v2 string) string {
	var parts []string
	if v1 != "" {
		parts = append(parts, v1+" ("+medium(p.electronic1)+")")
	}
	if v2 != "" {
		parts = append(parts, v2+" ("+medium(p.electronic2)+")")
	}
	return strings.Join(parts, "; ")
}

// leadingSubfieldsEqual reports whether both fields start with subfields
// named by codes, in order, with canonical-equal values.
func leadingSubfieldsEqual(x, y marc.Field, codes string) bool {
	sf1, sf2 := x.Subfields(), y.Subfields()
	if len(sf1) < len(codes) || len(sf2) < len(codes) {
		return false
	}
	for k := 0; k < len(codes); k++ {
		if sf1[k].Code != codes[k] || sf2[k].Code != codes[k] {
			return false
		}
		if textutil.CanonicalText(sf1[k].Value) != textutil.CanonicalText(sf2[k].Value) {
			return false
		}
	}
	return true
}

func (p *pairMerge) mergePublication(x, y marc.Field) marc.Field {
	c1, c2 := x.FirstSubfield('c'), y.FirstSubfield('c')
	var date string
	if textutil.CanonicalText(c1) == textutil.CanonicalText(c2) {
		date = c1
	} else {
		date = p.annotate(c1, c2)
	}
	if date == "" {
		return x
	}
	return x.InsertOrReplaceSubfield('c', date)
}

// mergeVolume keeps one 936. A '?' marks an unknown volume on that side.
func (p *pairMerge) mergeVolume(x, y marc.Field) marc.Field {
	unknown1 := strings.Contains(x.Contents, "?")
	unknown2 := strings.Contains(y.Contents, "?")
	switch {
	case textutil.CanonicalText(x.Contents) == textutil.CanonicalText(y.Contents):
		return x
	case unknown1 && !unknown2:
		return y
	case unknown2 && !unknown1:
		return x
	default:
		p.warn(x.Tag, "conflicting volume information")
		return x
	}
}

// setMergedIDs writes the ZWI field: $a 1 followed by every absorbed id in
// ascending order, including ids recorded by earlier merges of either input.
func setMergedIDs(merged *marc.Record, absorbed string, inputs ...*marc.Record) {
	ids := []string{absorbed}
	for _, rec := range inputs {
		ids = append(ids, MergedIDs(rec)...)
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)

	sf := marc.Subfields{}.Add('a', "1")
	for _, id := range ids {
		sf = sf.Add('b', id)
	}
	var doomed []int
	for i := 0; i < merged.Len(); i++ {
		if merged.Tag(i) == MergedIDsTag {
			doomed = append(doomed, i)
		}
	}
	merged.DeleteFieldsAt(doomed)
	merged.InsertField(MergedIDsTag, marc.NewDataField(MergedIDsTag, ' ', ' ', sf).Contents)
}

// MergedIDs returns the ids recorded in rec's ZWI fields.
func MergedIDs(rec *marc.Record) []string {
	var ids []string
	for _, f := range rec.TagRange(MergedIDsTag) {
		ids = append(ids, f.Subfields().Extract('b')...)
	}
	return ids
}

// Patch246i relabels 246 $i "Nebentitel:" as "Abweichender Titel" and
// returns the number of fields changed.
func Patch246i(rec *marc.Record) int {
	n := 0
	for i := 0; i < rec.Len(); i++ {
		if rec.Tag(i) != tagVariantTitle {
			continue
		}
		f := rec.Field(i)
		sf, changed := f.Subfields().ReplaceAll('i', "Nebentitel:", "Abweichender Titel")
		if changed {
			rec.UpdateField(i, f.WithSubfields(sf).Contents)
			n++
		}
	}
	return n
}
