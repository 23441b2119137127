package marc

import (
	"fmt"
	"slices"
	"strings"
)

const (
	// LocalTag starts a local holdings block; everything from the first LOK
	// field to the end of the record is local data.
	LocalTag = "LOK"
	// localBlockMarker opens each further block inside the local data.
	localBlockMarker = "  \x1F0000"
	// holdingsTag is the embedded tag naming the holding institution.
	holdingsTag = "852"
)

// LocalBlockStart returns the index of the first LOK field, or Len() when the
// record carries no local data.
func (r *Record) LocalBlockStart() int {
	if i := r.FieldIndex(LocalTag); i != NotFound {
		return i
	}
	return r.Len()
}

// HasLocalHoldings reports whether the record carries a local holdings block.
func (r *Record) HasLocalHoldings() bool {
	return r.FieldIndex(LocalTag) != NotFound
}

// FindAllLocalDataBlocks returns the boundaries of each local data block.
func (r *Record) FindAllLocalDataBlocks() []IndexRange {
	start := r.FieldIndex(LocalTag)
	if start == NotFound {
		return nil
	}
	var blocks []IndexRange
	end := start + 1
	for ; end < r.Len(); end++ {
		if strings.HasPrefix(r.Field(end).Contents, localBlockMarker) {
			blocks = append(blocks, IndexRange{Start: start, End: end})
			start = end
		}
	}
	return append(blocks, IndexRange{Start: start, End: end})
}

// IndicatorsMatch compares two indicators against a two-character pattern
// where '?' matches anything.
func IndicatorsMatch(pattern, indicators string) bool {
	if len(pattern) != 2 || len(indicators) != 2 {
		return false
	}
	for i := 0; i < 2; i++ {
		if pattern[i] != '?' && pattern[i] != indicators[i] {
			return false
		}
	}
	return true
}

// FindFieldsInLocalBlock returns the indices of the fields inside block that
// embed tag and whose embedded indicators match pattern.
func (r *Record) FindFieldsInLocalBlock(tag, pattern string, block IndexRange) ([]int, error) {
	if len(pattern) != 2 {
		return nil, fmt.Errorf("indicator pattern %q must be exactly 2 characters", pattern)
	}
	prefix := "  \x1F0" + tag
	var out []int
	for i := block.Start; i < block.End && i < r.Len(); i++ {
		contents := r.Field(i).Contents
		if len(contents) < len(prefix)+2 || !strings.HasPrefix(contents, prefix) {
			continue
		}
		if IndicatorsMatch(pattern, contents[len(prefix):len(prefix)+2]) {
			out = append(out, i)
		}
	}
	return out, nil
}

// LocalInstitutions returns the sorted, distinct ISILs ($a of the embedded
// 852 fields) across all local data blocks.
func (r *Record) LocalInstitutions() []string {
	var isils []string
	for _, block := range r.FindAllLocalDataBlocks() {
		indices, err := r.FindFieldsInLocalBlock(holdingsTag, "??", block)
		if err != nil {
			continue
		}
		for _, i := range indices {
			if isil := r.Field(i).FirstSubfield('a'); isil != "" {
				isils = append(isils, isil)
			}
		}
	}
	slices.Sort(isils)
	return slices.Compact(isils)
}
