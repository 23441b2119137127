// Package metrics exposes the counters of one batch run in Prometheus form.
//
// marclink runs as a batch job, so nothing is served over HTTP. A Run owns a
// private registry; after the command finishes the registry is written to a
// node-exporter textfile when metrics.textfile_path is configured.
package metrics
