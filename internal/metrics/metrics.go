package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"marclink/internal/guesser"
	"marclink/internal/linker"
)

// Run collects the counters of one command invocation.
type Run struct {
	registry *prometheus.Registry
	command  string

	RecordsRead          prometheus.Counter
	RecordsWritten       prometheus.Counter
	RecordsMalformed     prometheus.Counter
	RecordsUnwritable    prometheus.Counter
	RecordsMerged        prometheus.Counter
	Groups               prometheus.Counter
	MissingPartnerGroups prometheus.Counter
	SkippedGroups        prometheus.Counter
	UplinksPatched       prometheus.Counter
	PolicyGapWarnings    prometheus.Counter
	RecordsIndexed       prometheus.Counter
	RecordsRejected      prometheus.Counter
	Duration             prometheus.Gauge
	Success              prometheus.Gauge
	LastRun              prometheus.Gauge
}

// NewRun registers a fresh set of counters labelled with command.
func NewRun(command string) *Run {
	labels := prometheus.Labels{"command": command}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "marclink", Name: name, Help: help, ConstLabels: labels,
		})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "marclink", Name: name, Help: help, ConstLabels: labels,
		})
	}

	r := &Run{
		registry:             prometheus.NewRegistry(),
		command:              command,
		RecordsRead:          counter("records_read_total", "Records read from the input corpus"),
		RecordsWritten:       counter("records_written_total", "Records written to the output"),
		RecordsMalformed:     counter("records_malformed_total", "Malformed records skipped"),
		RecordsUnwritable:    counter("records_unwritable_total", "Records left out because they exceed the MARC-21 size limits"),
		RecordsMerged:        counter("records_merged_total", "Records absorbed into a canonical record"),
		Groups:               counter("groups_total", "Cross-reference groups merged"),
		MissingPartnerGroups: counter("missing_partner_groups_total", "Groups dropped because a member was not in the corpus"),
		SkippedGroups:        counter("skipped_groups_total", "Groups left unmerged after a consistency failure"),
		UplinksPatched:       counter("uplinks_patched_total", "Uplink fields rewritten to a canonical record"),
		PolicyGapWarnings:    counter("policy_gap_warnings_total", "Merge conflicts resolved by keeping one side"),
		RecordsIndexed:       counter("records_indexed_total", "Records added to the duplicate indices"),
		RecordsRejected:      counter("records_rejected_total", "Records whose control number could not be indexed"),
		Duration:             gauge("run_duration_seconds", "Wall time of the last run"),
		Success:              gauge("run_success", "1 if the last run completed without error"),
		LastRun:              gauge("run_timestamp_seconds", "Unix time the last run finished"),
	}
	r.registry.MustRegister(
		r.RecordsRead, r.RecordsWritten, r.RecordsMalformed, r.RecordsUnwritable, r.RecordsMerged,
		r.Groups, r.MissingPartnerGroups, r.SkippedGroups, r.UplinksPatched,
		r.PolicyGapWarnings, r.RecordsIndexed, r.RecordsRejected,
		r.Duration, r.Success, r.LastRun,
	)
	return r
}

// Registry returns the run's registry.
func (r *Run) Registry() *prometheus.Registry { return r.registry }

// ObserveMerge adds the counters of a merge session.
func (r *Run) ObserveMerge(stats linker.Stats) {
	r.RecordsRead.Add(float64(stats.Records))
	r.RecordsWritten.Add(float64(stats.Written))
	r.RecordsMalformed.Add(float64(stats.Malformed))
	r.RecordsUnwritable.Add(float64(stats.Unwritable))
	r.RecordsMerged.Add(float64(stats.Merged))
	r.Groups.Add(float64(stats.Groups))
	r.MissingPartnerGroups.Add(float64(stats.MissingPartnerGroups))
	r.SkippedGroups.Add(float64(stats.SkippedGroups))
	r.UplinksPatched.Add(float64(stats.PatchedUplinks))
	r.PolicyGapWarnings.Add(float64(stats.Warnings))
}

// ObserveBuild adds the counters of a guesser index build.
func (r *Run) ObserveBuild(stats guesser.BuildStats) {
	r.RecordsRead.Add(float64(stats.Records))
	r.RecordsMalformed.Add(float64(stats.Malformed))
	r.RecordsIndexed.Add(float64(stats.Indexed))
	r.RecordsRejected.Add(float64(stats.Rejected))
}

// Finish records the outcome of the run.
func (r *Run) Finish(elapsed time.Duration, err error) {
	r.Duration.Set(elapsed.Seconds())
	if err == nil {
		r.Success.Set(1)
	} else {
		r.Success.Set(0)
	}
	r.LastRun.SetToCurrentTime()
}

// WriteTextfile writes the registry in text exposition format to path.
// The file is replaced atomically.
func (r *Run) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
