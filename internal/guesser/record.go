package guesser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"marclink/internal/failures"
	"marclink/internal/kvstore"
	"marclink/internal/logging"
	"marclink/internal/marc"
)

// Entry is what a record contributes to the indices.
type Entry struct {
	ControlNumber string
	Title         string
	Authors       []string
	Year          string
}

// EntryFor extracts the title (245 $a and $b), the authors (100, 110 and
// 700 $a) and the publication year of rec.
func EntryFor(rec *marc.Record) Entry {
	title := strings.Join(rec.ExtractSubfields("245", "ab"), " ")
	var authors []string
	for _, tag := range []string{"100", "110", "700"} {
		authors = append(authors, rec.ExtractSubfield(tag, 'a')...)
	}
	return Entry{
		ControlNumber: rec.ControlNumber(),
		Title:         title,
		Authors:       authors,
		Year:          publicationYear(rec),
	}
}

// publicationYear reads 008/07-10 and falls back to the first four-digit
// run in 264 $c or 260 $c.
func publicationYear(rec *marc.Record) string {
	if f, ok := rec.FirstField("008"); ok && len(f.Contents) >= 11 {
		if year := f.Contents[7:11]; isDigits(year) {
			return year
		}
	}
	for _, tag := range []string{"264", "260"} {
		for _, c := range rec.ExtractSubfield(tag, 'c') {
			if year := firstYear(c); year != "" {
				return year
			}
		}
	}
	return ""
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

func firstYear(s string) string {
	run := 0
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			run++
			if run == 4 && (i+1 == len(s) || s[i+1] < '0' || s[i+1] > '9') {
				return s[i-3 : i+1]
			}
			continue
		}
		run = 0
	}
	return ""
}

// index validates the control number before touching any bucket so a
// rejected record leaves no partial entries.
func (g *Guesser) index(db kv, e Entry) error {
	if err := checkID(e.ControlNumber, g.opts.MaxControlNumberLength); err != nil {
		return g.invalid(e.ControlNumber, err)
	}
	if _, err := g.insertTitle(db, e.Title, e.ControlNumber); err != nil {
		return err
	}
	if _, err := g.insertAuthors(db, e.Authors, e.ControlNumber); err != nil {
		return err
	}
	_, err := g.insertYear(db, e.Year, e.ControlNumber)
	return err
}

// BuildStats summarizes a Build.
type BuildStats struct {
	Records   int
	Indexed   int
	Malformed int
	Rejected  int
}

// Build indexes every record of src, committing every batchSize records.
// Records with unusable control numbers are logged and skipped.
func (g *Guesser) Build(ctx context.Context, src marc.Source, batchSize int) (BuildStats, error) {
	if batchSize <= 0 {
		batchSize = 1
	}
	var stats BuildStats
	if err := g.checkSlotWidth(ctx, true); err != nil {
		return stats, err
	}
	done := false
	for !done {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		err := g.store.Update(ctx, func(tx *kvstore.Tx) error {
			for n := 0; n < batchSize; n++ {
				rec, err := src.Read()
				if errors.Is(err, io.EOF) {
					done = true
					return nil
				}
				if errors.Is(err, failures.ErrFormat) {
					stats.Malformed++
					logging.WarnWithContext(g.logger, "skipping malformed record", "malformed_record",
						logging.Error(err),
						logging.String(logging.FieldImpact, "the record is not indexed"),
					)
					continue
				}
				if err != nil {
					return fmt.Errorf("read record: %w", err)
				}
				stats.Records++
				e := EntryFor(rec)
				if e.ControlNumber == "" {
					stats.Rejected++
					continue
				}
				if err := g.index(tx, e); err != nil {
					if errors.Is(err, failures.ErrFormat) {
						stats.Rejected++
						logging.WarnWithContext(g.logger, "control number cannot be indexed", "guesser_rejected",
							logging.ControlNumber(e.ControlNumber),
							logging.Error(err),
							logging.String(logging.FieldImpact, "the record is not indexed"),
						)
						continue
					}
					return err
				}
				stats.Indexed++
			}
			return nil
		})
		if err != nil {
			return stats, err
		}
		g.logger.Debug("committed index batch", logging.Int("records", stats.Records))
	}
	g.partners = nil
	g.yearPartners = nil
	g.logger.Info("index build complete",
		logging.String(logging.FieldEventType, "guesser_build_complete"),
		logging.Int("records", stats.Records),
		logging.Int("indexed", stats.Indexed),
		logging.Int("malformed", stats.Malformed),
		logging.Int("rejected", stats.Rejected),
	)
	return stats, nil
}
