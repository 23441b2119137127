package crossref

import (
	"fmt"
	"strings"

	"marclink/internal/marc"
)

// StandardNumberSubfield names a tag/subfield pair that may carry an ISSN.
type StandardNumberSubfield struct {
	Tag  string
	Code byte
}

// ParseStandardNumberSubfield parses the "022a" shorthand.
func ParseStandardNumberSubfield(spec string) (StandardNumberSubfield, error) {
	spec = strings.TrimSpace(spec)
	if len(spec) != marc.TagLength+1 {
		return StandardNumberSubfield{}, fmt.Errorf("standard number subfield %q must be a tag followed by one subfield code", spec)
	}
	return StandardNumberSubfield{Tag: spec[:marc.TagLength], Code: spec[marc.TagLength]}, nil
}

func (s StandardNumberSubfield) String() string {
	return s.Tag + string(s.Code)
}

// Options controls which links the resolver follows.
type Options struct {
	// CrossLinkTags carry "also exists as" links in $w.
	CrossLinkTags []string
	// NamespacePrefixes mark $w values that hold a local control number.
	NamespacePrefixes []string
	// StandardNumberSubfields are scanned in the side pass for ISSNs.
	StandardNumberSubfields []StandardNumberSubfield
	// ImplicitLinks enables ISSN-based links for records without explicit ones.
	ImplicitLinks bool
	// SerialsOnly restricts grouping to serial records.
	SerialsOnly bool
}

// DefaultOptions returns the link policy for K10plus/SWB style data.
func DefaultOptions() Options {
	specs := []string{"022a", "029a", "440x", "490x", "730x", "773x", "776x", "780x", "785x"}
	subfields := make([]StandardNumberSubfield, 0, len(specs))
	for _, spec := range specs {
		sf, _ := ParseStandardNumberSubfield(spec)
		subfields = append(subfields, sf)
	}
	return Options{
		CrossLinkTags:           []string{"775", "776"},
		NamespacePrefixes:       []string{"(DE-627)", "(DE-576)"},
		StandardNumberSubfields: subfields,
		ImplicitLinks:           true,
		SerialsOnly:             true,
	}
}

// StripNamespace removes a known namespace prefix from value. ok is false
// when value carries none of the prefixes.
func (o Options) StripNamespace(value string) (id, prefix string, ok bool) {
	for _, p := range o.NamespacePrefixes {
		if rest, found := strings.CutPrefix(value, p); found && rest != "" {
			return rest, p, true
		}
	}
	return "", "", false
}

// IsCrossLinkTag reports whether tag is one of the cross-link tags.
func (o Options) IsCrossLinkTag(tag string) bool {
	for _, t := range o.CrossLinkTags {
		if t == tag {
			return true
		}
	}
	return false
}

// CrossLinkTargets returns the control numbers a cross-link field points at.
func (o Options) CrossLinkTargets(f marc.Field) []string {
	if !o.IsCrossLinkTag(f.Tag) {
		return nil
	}
	var out []string
	for _, w := range f.Subfields().Extract('w') {
		if id, _, ok := o.StripNamespace(w); ok {
			out = append(out, id)
		}
	}
	return out
}
