package merge

import (
	"fmt"
	"slices"

	"marclink/internal/config"
	"marclink/internal/crossref"
)

// Options carries the tag policy used while merging and patching.
type Options struct {
	Links      crossref.Options
	UplinkTags []string
}

// DefaultOptions returns the K10plus/SWB merge policy.
func DefaultOptions() Options {
	return Options{
		Links:      crossref.DefaultOptions(),
		UplinkTags: []string{"800", "810", "830", "773", "776"},
	}
}

// OptionsFromConfig builds the link and merge policy from the [merge] section.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	subfields := make([]crossref.StandardNumberSubfield, 0, len(cfg.Merge.StandardNumberSubfields))
	for _, spec := range cfg.Merge.StandardNumberSubfields {
		sf, err := crossref.ParseStandardNumberSubfield(spec)
		if err != nil {
			return Options{}, fmt.Errorf("merge options: %w", err)
		}
		subfields = append(subfields, sf)
	}
	return Options{
		Links: crossref.Options{
			CrossLinkTags:           slices.Clone(cfg.Merge.CrossLinkTags),
			NamespacePrefixes:       slices.Clone(cfg.Merge.NamespacePrefixes),
			StandardNumberSubfields: subfields,
			ImplicitLinks:           cfg.Merge.ImplicitLinks,
			SerialsOnly:             cfg.Merge.SerialsOnly,
		},
		UplinkTags: slices.Clone(cfg.Merge.UplinkTags),
	}, nil
}

func (o Options) isUplinkTag(tag string) bool {
	return slices.Contains(o.UplinkTags, tag)
}
