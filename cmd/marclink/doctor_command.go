package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"marclink/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check directories and the index store before a run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Preflight", colorize) {
				fmt.Fprintln(out, line)
			}
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				rows = append(rows, []string{r.Name, statusKindLabel(resultKind(r)), r.Detail})
			}
			fmt.Fprintln(out, renderTable([]string{"Check", "Status", "Detail"}, rows, nil))

			failed := preflight.Failed(results)
			if len(failed) > 0 {
				fmt.Fprintln(out, renderStatusLine("Summary", statusError, fmt.Sprintf("%d of %d checks failed", len(failed), len(results)), colorize))
				return fmt.Errorf("%d preflight check(s) failed", len(failed))
			}
			fmt.Fprintln(out, renderStatusLine("Summary", statusOK, "all checks passed", colorize))
			return nil
		},
	}
}

func resultKind(r preflight.Result) statusKind {
	if r.Passed {
		return statusOK
	}
	return statusError
}
