// Package merge folds a print/electronic pair of serial records into one
// record and rewrites the links other records hold to the absorbed id.
//
// The survivor of a pair is always the record with the greater control
// number, so MergePair(a, b) and MergePair(b, a) produce the same record.
// Field conflicts that have no safe resolution keep the survivor's field and
// are reported as Warning values wrapping failures.ErrPolicyGap.
package merge
