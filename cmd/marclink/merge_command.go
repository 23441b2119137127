package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"marclink/internal/config"
	"marclink/internal/crossref"
	"marclink/internal/linker"
	"marclink/internal/logging"
	"marclink/internal/marc"
	"marclink/internal/merge"
	"marclink/internal/metrics"
	"marclink/internal/preflight"
)

func newMergeCommand(ctx *commandContext) *cobra.Command {
	var strict bool
	var debugMaps string
	var missingFile string

	cmd := &cobra.Command{
		Use:   "merge <input> <output>",
		Short: "Merge cross-referenced records and patch uplinks",
		Long: "Merge reads a binary MARC or MARCXML corpus twice. The first passes group\n" +
			"records that reference each other as alternate editions; the last pass writes\n" +
			"one merged record per group and repoints uplinks at the surviving record.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("strict") {
				cfg.Merge.Strict = strict
			}
			if cmd.Flags().Changed("debug-maps") {
				cfg.Merge.DebugMapsDir = strings.TrimSpace(debugMaps)
			}
			if cmd.Flags().Changed("missing-partners") {
				cfg.Merge.MissingPartnersFile = strings.TrimSpace(missingFile)
			}
			return runMerge(cmd, ctx, cfg, args[0], args[1])
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Abort on the first inconsistent group")
	cmd.Flags().StringVar(&debugMaps, "debug-maps", "", "Directory for resolver map dumps")
	cmd.Flags().StringVar(&missingFile, "missing-partners", "", "File listing ids referenced but absent from the corpus")
	return cmd
}

func runMerge(cmd *cobra.Command, cc *commandContext, cfg *config.Config, inputPath, outputPath string) (err error) {
	runCtx, logger, err := cc.runLogger(cmd)
	if err != nil {
		return err
	}
	started := time.Now()
	run := metrics.NewRun("merge")
	defer func() {
		run.Finish(time.Since(started), err)
		if path := cfg.Metrics.TextfilePath; path != "" {
			if writeErr := run.WriteTextfile(path); writeErr != nil {
				logging.WarnWithContext(logger, "metrics textfile not written", "metrics_write_failed",
					logging.Error(writeErr),
					logging.String(logging.FieldErrorHint, "check metrics.textfile_path"),
					logging.String(logging.FieldImpact, "the run is not visible to the node exporter"),
				)
			}
		}
	}()

	checks := []preflight.Result{
		preflight.CheckInputFile("Input corpus", inputPath),
		preflight.CheckDirectoryAccess("Output directory", filepath.Dir(outputPath)),
		preflight.CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
	}
	if cfg.Merge.DebugMapsDir != "" {
		if mkErr := os.MkdirAll(cfg.Merge.DebugMapsDir, 0o755); mkErr != nil {
			return fmt.Errorf("create debug maps directory: %w", mkErr)
		}
		checks = append(checks, preflight.CheckDirectoryAccess("Debug maps directory", cfg.Merge.DebugMapsDir))
	}
	if failed := preflight.Failed(checks); len(failed) > 0 {
		return fmt.Errorf("preflight: %s: %s", failed[0].Name, failed[0].Detail)
	}

	mergeOpts, err := merge.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}

	input, err := openCorpus(inputPath, cfg.Paths.WorkDir, logger)
	if err != nil {
		return err
	}
	defer input.Close()

	out, err := createOutput(outputPath)
	if err != nil {
		return err
	}
	defer out.Abort()

	sink := marc.NewBinaryWriter(out)
	session := linker.NewSession(
		input.source,
		sink,
		crossref.NewResolver(mergeOpts.Links, logger),
		merge.NewMerger(mergeOpts, logger),
		linker.Options{
			Strict:       cfg.Merge.Strict,
			DebugMapsDir: cfg.Merge.DebugMapsDir,
			InputSize:    input.size,
		},
		logger,
	)
	logger.Info("merge started",
		logging.String(logging.FieldEventType, "merge_start"),
		logging.String("input", inputPath),
		logging.String("format", input.format.String()),
		logging.String("output", outputPath),
		logging.Bool("strict", cfg.Merge.Strict),
	)

	stats, runErr := session.Run(runCtx)
	stats.Malformed += input.malformed
	run.ObserveMerge(stats)

	if path := missingPartnersPath(cfg, outputPath); path != "" {
		if writeErr := writeMissingPartners(path, session.MissingPartners()); writeErr != nil && runErr == nil {
			runErr = writeErr
		}
	}
	if runErr != nil {
		logging.ErrorWithContext(logger, "merge run failed", "merge_failed", runErr,
			logging.String("input", inputPath),
			logging.Int("records_read", stats.Records),
		)
		return runErr
	}

	if err := sink.Flush(); err != nil {
		return err
	}
	if err := out.Commit(); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, renderCounts(mergeSummaryRows(stats)))
	colorize := shouldColorize(w)
	for _, skipped := range session.SkippedGroups() {
		fmt.Fprintln(w, renderStatusLine("Unmerged group "+skipped.ControlNumber, statusWarn, skipped.Reason, colorize))
	}
	if len(session.MissingPartners()) > 0 {
		fmt.Fprintln(w, renderStatusLine("Missing partners", statusWarn,
			fmt.Sprintf("%d group(s) left unmerged", stats.MissingPartnerGroups), colorize))
	}
	fmt.Fprintln(w, renderStatusLine("Output", statusOK, outputPath, colorize))
	return nil
}

func missingPartnersPath(cfg *config.Config, outputPath string) string {
	name := strings.TrimSpace(cfg.Merge.MissingPartnersFile)
	if name == "" {
		return ""
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(filepath.Dir(outputPath), name)
}

func writeMissingPartners(path string, dropped []crossref.MissingPartner) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create missing partners file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close missing partners file: %w", closeErr)
		}
	}()
	return crossref.WriteMissingPartners(file, dropped)
}

func mergeSummaryRows(stats linker.Stats) [][]string {
	itoa := strconv.Itoa
	return [][]string{
		{"Records read", itoa(stats.Records)},
		{"Malformed records", itoa(stats.Malformed)},
		{"Duplicate control numbers", itoa(stats.DuplicateIDs)},
		{"Standard numbers", itoa(stats.StandardNumbers)},
		{"Groups merged", itoa(stats.Groups)},
		{"Records absorbed", itoa(stats.Merged)},
		{"Groups with missing partners", itoa(stats.MissingPartnerGroups)},
		{"Groups left unmerged", itoa(stats.SkippedGroups)},
		{"Uplinks patched", itoa(stats.PatchedUplinks)},
		{"Cross-links removed", itoa(stats.CrossLinksRemoved)},
		{"Merge warnings", itoa(stats.Warnings)},
		{"Records written", itoa(stats.Written)},
		{"Unwritable records", itoa(stats.Unwritable)},
		{"Elapsed", stats.Duration.Round(time.Millisecond).String()},
	}
}
