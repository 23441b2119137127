package crossref

import (
	"log/slog"
	"maps"
	"slices"

	"marclink/internal/failures"
	"marclink/internal/logging"
	"marclink/internal/marc"
)

// Group is one equivalence class of control numbers. Members excludes the
// canonical id and is sorted.
type Group struct {
	Canonical string
	Members   []string
}

// IDs returns the canonical id followed by the members.
func (g Group) IDs() []string {
	return append([]string{g.Canonical}, g.Members...)
}

// MissingPartner describes a group dropped because some of its ids were
// never read from the corpus.
type MissingPartner struct {
	Missing []string
	Group   Group
}

// Resolver accumulates offsets and cross-reference groups over one forward
// pass. It is not safe for concurrent use.
type Resolver struct {
	opts   Options
	logger *slog.Logger

	offsets   map[string]int64
	canonical map[string]string   // non-canonical id -> canonical id
	members   map[string][]string // canonical id -> non-canonical ids
	issnToID  map[string]string

	records int
}

// NewResolver returns an empty resolver.
func NewResolver(opts Options, logger *slog.Logger) *Resolver {
	return &Resolver{
		opts:      opts,
		logger:    logging.NewComponentLogger(logger, "crossref"),
		offsets:   make(map[string]int64),
		canonical: make(map[string]string),
		members:   make(map[string][]string),
		issnToID:  make(map[string]string),
	}
}

func (r *Resolver) eligible(rec *marc.Record) bool {
	return !r.opts.SerialsOnly || rec.IsSerial()
}

// AddStandardNumbers records every ISSN of rec in the ISSN map. The first
// record seen for an ISSN keeps it. It returns the number of ISSNs found.
func (r *Resolver) AddStandardNumbers(rec *marc.Record) int {
	id := rec.ControlNumber()
	if id == "" || !r.eligible(rec) {
		return 0
	}
	found := 0
	for _, spec := range r.opts.StandardNumberSubfields {
		for _, f := range rec.TagRange(spec.Tag) {
			for _, value := range f.Subfields().Extract(spec.Code) {
				issn, ok := NormalizeISSN(value)
				if !ok {
					logging.WarnWithContext(r.logger, "unusual ISSN kept verbatim", "crossref_issn",
						logging.String("control_number", id),
						logging.String("issn", value),
						logging.String(logging.FieldErrorHint, "check the "+spec.String()+" subfield of the record"),
						logging.String(logging.FieldImpact, "implicit links through this ISSN may not match"),
					)
				}
				if _, exists := r.issnToID[issn]; !exists {
					r.issnToID[issn] = id
				}
				found++
			}
		}
	}
	return found
}

// StandardNumberCount returns the number of distinct ISSNs collected.
func (r *Resolver) StandardNumberCount() int { return len(r.issnToID) }

// ExplicitLinks returns the control numbers rec names in its cross-link
// fields, excluding its own.
func (r *Resolver) ExplicitLinks(rec *marc.Record) []string {
	own := rec.ControlNumber()
	var out []string
	for _, tag := range r.opts.CrossLinkTags {
		for _, f := range rec.TagRange(tag) {
			for _, id := range r.opts.CrossLinkTargets(f) {
				if id != own && !slices.Contains(out, id) {
					out = append(out, id)
				}
			}
		}
	}
	return out
}

// ImplicitLinks returns the records that own an ISSN rec lists in a 029
// field with indicators 'x' and 'c' or 'd'.
func (r *Resolver) ImplicitLinks(rec *marc.Record) []string {
	own := rec.ControlNumber()
	var out []string
	for _, f := range rec.TagRange("029") {
		if f.Indicator1() != 'x' || (f.Indicator2() != 'c' && f.Indicator2() != 'd') {
			continue
		}
		sf := f.Subfields()
		if !sf.Has('a') {
			continue
		}
		issn, _ := NormalizeISSN(sf.First('a'))
		id, ok := r.issnToID[issn]
		if ok && id != own && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// Observe registers rec, read at offset, and folds its links into the
// groups. A control number seen twice yields a *failures.ConsistencyError;
// the first offset is kept and the record is otherwise ignored.
func (r *Resolver) Observe(rec *marc.Record, offset int64) error {
	id := rec.ControlNumber()
	if id == "" {
		return nil
	}
	r.records++
	if _, dup := r.offsets[id]; dup {
		return &failures.ConsistencyError{ControlNumber: id, Reason: "duplicate control number in input"}
	}
	r.offsets[id] = offset

	if !r.eligible(rec) {
		return nil
	}
	links := r.ExplicitLinks(rec)
	if len(links) == 0 && r.opts.ImplicitLinks {
		links = r.ImplicitLinks(rec)
	}
	if len(links) == 0 {
		return nil
	}
	r.union(id, links)
	return nil
}

// groupOf returns every id in the group containing id, or nil.
func (r *Resolver) groupOf(id string) []string {
	canonical := id
	if c, ok := r.canonical[id]; ok {
		canonical = c
	}
	members, ok := r.members[canonical]
	if !ok {
		return nil
	}
	return append([]string{canonical}, members...)
}

func (r *Resolver) union(id string, links []string) {
	set := map[string]struct{}{id: {}}
	for _, seed := range append([]string{id}, links...) {
		set[seed] = struct{}{}
		for _, other := range r.groupOf(seed) {
			set[other] = struct{}{}
		}
	}
	ids := slices.Sorted(maps.Keys(set))
	winner := ids[len(ids)-1]

	for _, x := range ids {
		delete(r.canonical, x)
		delete(r.members, x)
	}
	for _, x := range ids[:len(ids)-1] {
		r.canonical[x] = winner
	}
	r.members[winner] = ids[:len(ids)-1]
}

// EliminateDangling drops every group whose canonical id or any member was
// not read, and returns those groups ordered by canonical id.
func (r *Resolver) EliminateDangling() []MissingPartner {
	var dropped []MissingPartner
	for _, g := range r.Groups() {
		var missing []string
		for _, x := range g.IDs() {
			if _, ok := r.offsets[x]; !ok {
				missing = append(missing, x)
			}
		}
		if len(missing) == 0 {
			continue
		}
		r.logger.Info("dropping cross-reference group with missing partner",
			logging.String("canonical", g.Canonical),
			logging.Any("missing", missing),
			logging.Int("group_size", len(g.Members)+1),
		)
		r.DropGroup(g.Canonical)
		dropped = append(dropped, MissingPartner{Missing: missing, Group: g})
	}
	return dropped
}

// DropGroup forgets the group whose canonical id is canonical.
func (r *Resolver) DropGroup(canonical string) {
	for _, m := range r.members[canonical] {
		delete(r.canonical, m)
	}
	delete(r.members, canonical)
}

// Groups returns all groups ordered by canonical id.
func (r *Resolver) Groups() []Group {
	out := make([]Group, 0, len(r.members))
	for _, canonical := range slices.Sorted(maps.Keys(r.members)) {
		out = append(out, Group{Canonical: canonical, Members: slices.Clone(r.members[canonical])})
	}
	return out
}

// CanonicalOf returns the canonical id for a non-canonical group member.
func (r *Resolver) CanonicalOf(id string) (string, bool) {
	c, ok := r.canonical[id]
	return c, ok
}

// MembersOf returns the non-canonical members of the group led by canonical.
func (r *Resolver) MembersOf(canonical string) []string {
	return slices.Clone(r.members[canonical])
}

// IsCanonical reports whether id leads a group.
func (r *Resolver) IsCanonical(id string) bool {
	_, ok := r.members[id]
	return ok
}

// Offset returns the byte offset id was read at.
func (r *Resolver) Offset(id string) (int64, bool) {
	off, ok := r.offsets[id]
	return off, ok
}

// Records returns the number of records observed.
func (r *Resolver) Records() int { return r.records }

// LinkedCount returns the number of non-canonical ids currently grouped.
func (r *Resolver) LinkedCount() int { return len(r.canonical) }

// Options returns the link policy the resolver was built with.
func (r *Resolver) Options() Options { return r.opts }
