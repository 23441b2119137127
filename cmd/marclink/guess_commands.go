package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"marclink/internal/config"
	"marclink/internal/guesser"
	"marclink/internal/kvstore"
	"marclink/internal/logging"
	"marclink/internal/metrics"
)

func newGuessCommand(ctx *commandContext) *cobra.Command {
	guessCmd := &cobra.Command{
		Use:   "guess",
		Short: "Build and query the duplicate title/author/year indices",
	}

	guessCmd.AddCommand(newGuessBuildCommand(ctx))
	guessCmd.AddCommand(newGuessQueryCommand(ctx))
	guessCmd.AddCommand(newGuessPartnersCommand(ctx))
	guessCmd.AddCommand(newGuessDumpCommand(ctx))
	return guessCmd
}

func openGuesserStore(cfg *config.Config, readOnly bool) (*kvstore.Store, error) {
	path := cfg.GuesserStorePath()
	store, err := kvstore.Open(path, kvstore.Options{ReadOnly: readOnly})
	switch {
	case err == nil:
		return store, nil
	case errors.Is(err, kvstore.ErrLocked):
		return nil, fmt.Errorf("index store %s is in use by another marclink process", path)
	case readOnly && errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("index store %s does not exist; run `marclink guess build` first", path)
	default:
		return nil, err
	}
}

func newGuessBuildCommand(ctx *commandContext) *cobra.Command {
	var clearFirst bool

	cmd := &cobra.Command{
		Use:   "build <input>",
		Short: "Index the titles, authors and years of a corpus",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runCtx, logger, err := ctx.runLogger(cmd)
			if err != nil {
				return err
			}

			started := time.Now()
			run := metrics.NewRun("guess_build")
			defer func() {
				run.Finish(time.Since(started), err)
				if path := cfg.Metrics.TextfilePath; path != "" {
					if writeErr := run.WriteTextfile(path); writeErr != nil {
						logger.Warn("metrics textfile not written", logging.Error(writeErr))
					}
				}
			}()

			store, err := openGuesserStore(cfg, false)
			if err != nil {
				return err
			}
			defer store.Close()

			src, closer, err := streamSource(args[0])
			if err != nil {
				return err
			}
			defer closer.Close()

			g := guesser.New(store, guesser.Options{MaxControlNumberLength: cfg.Guesser.MaxControlNumberLength}, logger)
			if clearFirst {
				if err := g.Clear(runCtx); err != nil {
					return err
				}
			}
			stats, err := g.Build(runCtx, src, cfg.Guesser.BatchSize)
			run.ObserveBuild(stats)
			if err != nil {
				return err
			}
			counts, err := g.Counts(runCtx)
			if err != nil {
				return err
			}

			rows := [][]string{
				{"Records read", strconv.Itoa(stats.Records)},
				{"Records indexed", strconv.Itoa(stats.Indexed)},
				{"Malformed records", strconv.Itoa(stats.Malformed)},
				{"Rejected control numbers", strconv.Itoa(stats.Rejected)},
			}
			for _, idx := range guesser.Indices {
				rows = append(rows, []string{"Keys in " + string(idx), strconv.FormatInt(counts[idx], 10)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderCounts(rows))
			return nil
		},
	}

	cmd.Flags().BoolVar(&clearFirst, "clear", false, "Empty all indices before indexing")
	return cmd
}

func newGuessQueryCommand(ctx *commandContext) *cobra.Command {
	var title string
	var authors []string
	var year string

	cmd := &cobra.Command{
		Use:   "query",
		Short: "List records sharing a title, an author and optionally a year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(title) == "" || len(authors) == 0 {
				return errors.New("query needs --title and at least one --author")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runCtx, logger, err := ctx.runLogger(cmd)
			if err != nil {
				return err
			}
			store, err := openGuesserStore(cfg, true)
			if err != nil {
				return err
			}
			defer store.Close()

			g := guesser.New(store, guesser.Options{MaxControlNumberLength: cfg.Guesser.MaxControlNumberLength}, logger)
			ids, err := g.Guess(runCtx, title, authors, strings.TrimSpace(year))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(ids) == 0 {
				fmt.Fprintln(out, renderStatusLine("Matches", statusInfo, "none", shouldColorize(out)))
				return nil
			}
			for _, id := range ids {
				fmt.Fprintln(out, id)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Title to look up")
	cmd.Flags().StringArrayVar(&authors, "author", nil, "Author name (repeatable)")
	cmd.Flags().StringVar(&year, "year", "", "Publication year")
	return cmd
}

func newGuessPartnersCommand(ctx *commandContext) *cobra.Command {
	var useYears bool

	cmd := &cobra.Command{
		Use:   "partners <control-number>",
		Short: "Show the duplicate cluster a record belongs to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runCtx, logger, err := ctx.runLogger(cmd)
			if err != nil {
				return err
			}
			store, err := openGuesserStore(cfg, true)
			if err != nil {
				return err
			}
			defer store.Close()

			g := guesser.New(store, guesser.Options{MaxControlNumberLength: cfg.Guesser.MaxControlNumberLength}, logger)
			partners, err := g.ControlNumberPartners(runCtx, args[0], useYears)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(partners) == 0 {
				fmt.Fprintln(out, renderStatusLine(args[0], statusInfo, "no partners", shouldColorize(out)))
				return nil
			}
			fmt.Fprintln(out, strings.Join(partners, " "))
			return nil
		},
	}

	cmd.Flags().BoolVar(&useYears, "years", false, "Only keep partners with the same publication year")
	return cmd
}

func newGuessDumpCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:       "dump <titles|authors|years>",
		Short:     "Print an index in key order",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(guesser.Titles), string(guesser.Authors), string(guesser.Years)},
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := guesser.ParseIndex(args[0])
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runCtx, logger, err := ctx.runLogger(cmd)
			if err != nil {
				return err
			}
			store, err := openGuesserStore(cfg, true)
			if err != nil {
				return err
			}
			defer store.Close()

			g := guesser.New(store, guesser.Options{MaxControlNumberLength: cfg.Guesser.MaxControlNumberLength}, logger)
			out := cmd.OutOrStdout()
			return g.Each(runCtx, index, func(key string, ids []string) error {
				_, err := fmt.Fprintf(out, "%s\t%s\n", key, strings.Join(ids, ","))
				return err
			})
		},
	}
}
