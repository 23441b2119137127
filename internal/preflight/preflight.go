package preflight

import (
	"context"
	"path/filepath"

	"marclink/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Index directory", cfg.Paths.IndexDir),
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
	}
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	if cfg.Merge.DebugMapsDir != "" {
		results = append(results, CheckDirectoryAccess("Debug maps directory", cfg.Merge.DebugMapsDir))
	}
	if cfg.Metrics.TextfilePath != "" {
		results = append(results, CheckDirectoryAccess("Metrics textfile directory", filepath.Dir(cfg.Metrics.TextfilePath)))
	}
	results = append(results, CheckStoreLock(ctx, cfg.GuesserStorePath()))
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
