// Package failures defines the error taxonomy shared by the record codec, the
// cross-reference resolver, the merger and the duplicate index.
//
// Every failure carries one marker:
//   - ErrFormat: malformed record structure; the record is skipped and reported.
//   - ErrConsistency: a cross-reference group cannot be merged; the group is
//     skipped, or the run aborts in strict mode.
//   - ErrPolicyGap: a merge rule fell back to keeping one side; warning only.
//   - ErrPersistence: the key/value store failed; the run aborts.
//
// Use Wrap to attach component and operation context without losing the
// marker, and Fatal to decide whether a failure ends the run.
package failures
