// Package textutil provides the pure text normalizations used to compare and
// index bibliographic values.
//
// The primary use cases are:
//   - CanonicalText for equality tests while merging two records
//   - NormalizeTitle and NormalizeAuthor for duplicate-index keys
//
// Every function here is pure and idempotent: applying it to its own output
// returns the output unchanged. Diacritics are stripped, never transliterated,
// so "Müller" becomes "muller" and not "mueller".
package textutil
