// Package preflight provides readiness checks for the filesystem paths and
// the index store that marclink depends on.
//
// These checks run in two contexts:
//   - merge and guess build call RunAll before touching any record and stop
//     when a check fails, so a long run does not die at its last write.
//   - The CLI "marclink doctor" command renders every check as a table.
//
// Optional paths are only checked when they are configured.
package preflight
