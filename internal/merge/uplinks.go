package merge

import (
	"slices"

	"marclink/internal/marc"
)

// CanonicalLookup maps an absorbed control number to its survivor.
type CanonicalLookup func(id string) (canonical string, ok bool)

// PatchUplinks rewrites the $w of every uplink field in rec that points at
// an absorbed id so it points at the survivor, keeping the namespace prefix.
// An uplink whose target, after rewriting, was already kept for the same tag
// is deleted. It returns the number of rewritten links.
func (m *Merger) PatchUplinks(rec *marc.Record, canonicalOf CanonicalLookup) int {
	patched := 0
	kept := make(map[string]struct{})
	var doomed []int
	for i := 0; i < rec.Len(); i++ {
		tag := rec.Tag(i)
		if !m.opts.isUplinkTag(tag) {
			continue
		}
		f := rec.Field(i)
		if f.IsControlField() {
			continue
		}
		id, prefix, ok := m.opts.Links.StripNamespace(f.FirstSubfield('w'))
		if !ok {
			continue
		}
		target := id
		if canonical, found := canonicalOf(id); found {
			target = canonical
		}
		key := tag + "\x00" + target
		if _, dup := kept[key]; dup {
			doomed = append(doomed, i)
			continue
		}
		kept[key] = struct{}{}
		if target != id {
			rec.UpdateField(i, f.InsertOrReplaceSubfield('w', prefix+target).Contents)
			patched++
		}
	}
	rec.DeleteFieldsAt(doomed)
	return patched
}

// DeleteCrossLinkFields removes the cross-link fields of rec that point at a
// member of group, rec's own merge group, and returns how many were removed.
func (m *Merger) DeleteCrossLinkFields(rec *marc.Record, group []string) int {
	var doomed []int
	for i := 0; i < rec.Len(); i++ {
		if !m.opts.Links.IsCrossLinkTag(rec.Tag(i)) {
			continue
		}
		for _, target := range m.opts.Links.CrossLinkTargets(rec.Field(i)) {
			if slices.Contains(group, target) {
				doomed = append(doomed, i)
				break
			}
		}
	}
	rec.DeleteFieldsAt(doomed)
	return len(doomed)
}
