// Package crossref groups records that describe the same work in different
// manifestations, such as the print and online edition of a journal.
//
// A Resolver reads a corpus once, in order. It records each control number's
// byte offset and follows "also exists as" links: explicit linking-entry
// fields with a namespaced control number in $w, and implicit links through
// shared ISSNs collected in an earlier side pass. Linked ids are unioned into
// groups whose canonical member is the lexicographically greatest id.
//
// After the pass, EliminateDangling drops every group that references an id
// the corpus does not contain and reports it as a missing partner. Groups
// that survive are safe to merge.
package crossref
