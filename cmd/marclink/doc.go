// Package main hosts the marclink CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration, builds a run-scoped logger,
// and hands the real work to the internal packages: merge drives a linker
// session over a corpus, guess reads and writes the duplicate indices, and
// doctor runs the preflight checks.
package main
