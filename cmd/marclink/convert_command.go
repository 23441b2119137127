package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"marclink/internal/failures"
	"marclink/internal/logging"
	"marclink/internal/marc"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var dropTags []string

	cmd := &cobra.Command{
		Use:   "convert <input> <output>",
		Short: "Rewrite a MARCXML or binary corpus as binary MARC",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, logger, err := ctx.runLogger(cmd)
			if err != nil {
				return err
			}
			src, closer, err := streamSource(args[0])
			if err != nil {
				return err
			}
			defer closer.Close()

			out, err := createOutput(args[1])
			if err != nil {
				return err
			}
			defer out.Abort()

			sink := marc.NewBinaryWriter(out)
			malformed := 0
			for {
				if err := runCtx.Err(); err != nil {
					return err
				}
				rec, err := src.Read()
				if errors.Is(err, io.EOF) {
					break
				}
				if errors.Is(err, failures.ErrFormat) {
					malformed++
					logging.WarnWithContext(logger, "skipping malformed record", "malformed_record",
						logging.Error(err),
						logging.String(logging.FieldImpact, "the record is not written"),
					)
					continue
				}
				if err != nil {
					return err
				}
				if len(dropTags) > 0 {
					rec.FilterTags(dropTags...)
				}
				if err := sink.Write(rec); err != nil {
					if errors.Is(err, failures.ErrFormat) {
						malformed++
						logging.WarnWithContext(logger, "record cannot be encoded", "encode_failed",
							logging.ControlNumber(rec.ControlNumber()),
							logging.Error(err),
							logging.String(logging.FieldErrorHint, "a field exceeds the binary directory limits"),
							logging.String(logging.FieldImpact, "the record is not written"),
						)
						continue
					}
					return err
				}
			}
			if err := sink.Flush(); err != nil {
				return err
			}
			if err := out.Commit(); err != nil {
				return err
			}

			logger.Info("conversion complete",
				logging.String("input", args[0]),
				logging.String("output", args[1]),
				logging.Int("written", sink.Count()),
				logging.Int("malformed", malformed),
			)
			fmt.Fprintln(cmd.OutOrStdout(), renderCounts([][]string{
				{"Records written", strconv.Itoa(sink.Count())},
				{"Malformed records", strconv.Itoa(malformed)},
			}))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&dropTags, "drop-tags", nil, "Remove every field with these tags (comma separated)")
	return cmd
}
