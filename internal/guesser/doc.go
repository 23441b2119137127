// Package guesser maintains the duplicate-candidate indices.
//
// Three buckets of a kvstore.Store map normalized keys to control numbers:
// titles and authors hold separator-joined lists, years hold fixed-width
// slots so a value splits without scanning. Indices only grow; Clear empties
// them before a rebuild.
//
// Guess intersects the title bucket with the union of the author buckets and,
// optionally, the year bucket. ControlNumberPartners answers the same
// question for an indexed record from a partition of the whole index that is
// computed once per Guesser.
package guesser
