package linker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"marclink/internal/crossref"
	"marclink/internal/failures"
	"marclink/internal/logging"
	"marclink/internal/marc"
	"marclink/internal/merge"
)

const (
	passStandardNumbers = "standard_numbers"
	passObserve         = "observe"
	passEmit            = "emit"
)

// Session owns the state of one merge run. It is not safe for concurrent
// use and must not be reused.
type Session struct {
	src      marc.SeekableSource
	sink     marc.Sink
	resolver *crossref.Resolver
	merger   *merge.Merger
	opts     Options
	logger   *slog.Logger
	progress *logging.ProgressSampler

	holdings map[string][]string
	missing  []crossref.MissingPartner
	skipped  []failures.ConsistencyError
	stats    Stats
	unmerged int
}

// NewSession wires a session. The source must be positioned anywhere; every
// pass rewinds it first.
func NewSession(src marc.SeekableSource, sink marc.Sink, resolver *crossref.Resolver, merger *merge.Merger, opts Options, logger *slog.Logger) *Session {
	return &Session{
		src:      src,
		sink:     sink,
		resolver: resolver,
		merger:   merger,
		opts:     opts,
		logger:   logging.NewComponentLogger(logger, "linker"),
		progress: logging.NewProgressSampler(10),
		holdings: make(map[string][]string),
	}
}

// MissingPartners returns the groups dropped because a member was never read.
func (s *Session) MissingPartners() []crossref.MissingPartner {
	return slices.Clone(s.missing)
}

// SkippedGroups returns the groups left unmerged in defensive mode, either
// for conflicting local holdings or because the merged record could not be
// encoded.
func (s *Session) SkippedGroups() []failures.ConsistencyError {
	return slices.Clone(s.skipped)
}

// Stats returns the counters collected so far.
func (s *Session) Stats() Stats { return s.stats }

// Run executes all passes and returns the collected counters. Records are
// written to the sink in input order.
func (s *Session) Run(ctx context.Context) (Stats, error) {
	started := time.Now()
	defer func() { s.stats.Duration = time.Since(started) }()

	if s.resolver.Options().ImplicitLinks {
		if err := s.collectStandardNumbers(ctx); err != nil {
			return s.stats, err
		}
	}
	if err := s.observe(ctx); err != nil {
		return s.stats, err
	}
	if err := s.dumpMaps(""); err != nil {
		return s.stats, err
	}
	if err := s.settleGroups(); err != nil {
		return s.stats, err
	}
	if err := s.dumpMaps("2"); err != nil {
		return s.stats, err
	}
	if err := s.emit(ctx); err != nil {
		return s.stats, err
	}

	s.logger.Info("merge run complete",
		logging.String(logging.FieldEventType, "merge_complete"),
		logging.Int("records", s.stats.Records),
		logging.Int("written", s.stats.Written),
		logging.Int("merged", s.stats.Merged),
		logging.Int("groups", s.stats.Groups),
		logging.Int("missing_partner_groups", s.stats.MissingPartnerGroups),
		logging.Int("skipped_groups", s.stats.SkippedGroups),
		logging.Int("unwritable", s.stats.Unwritable),
		logging.Int("warnings", s.stats.Warnings),
		logging.Duration("elapsed", time.Since(started)),
	)
	return s.stats, nil
}

// scan rewinds the source and calls fn for every well-formed record with the
// offset it was read at. Malformed records are passed to onMalformed.
func (s *Session) scan(ctx context.Context, pass string, onMalformed func(error), fn func(rec *marc.Record, offset int64) error) error {
	if err := s.src.Rewind(); err != nil {
		return fmt.Errorf("%s pass: rewind: %w", pass, err)
	}
	s.progress.Reset()
	s.logProgress(pass, 0)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		offset := s.src.Tell()
		rec, err := s.src.Read()
		if errors.Is(err, io.EOF) {
			s.logProgress(pass, s.opts.InputSize)
			return nil
		}
		if err != nil {
			if errors.Is(err, failures.ErrFormat) {
				if onMalformed != nil {
					onMalformed(err)
				}
				continue
			}
			return fmt.Errorf("%s pass: %w", pass, err)
		}
		if err := fn(rec, offset); err != nil {
			return err
		}
		s.logProgress(pass, s.src.Tell())
	}
}

func (s *Session) logProgress(pass string, position int64) {
	percent := -1.0
	if s.opts.InputSize > 0 {
		percent = float64(position) * 100 / float64(s.opts.InputSize)
	}
	if !s.progress.ShouldLog(percent, pass) {
		return
	}
	attrs := []logging.Attr{logging.Pass(pass), logging.Offset(position)}
	if percent >= 0 {
		attrs = append(attrs, logging.Float64("percent", percent))
	}
	s.logger.Info("pass progress", logging.Args(attrs...)...)
}

func (s *Session) collectStandardNumbers(ctx context.Context) error {
	err := s.scan(ctx, passStandardNumbers, nil, func(rec *marc.Record, _ int64) error {
		s.resolver.AddStandardNumbers(rec)
		return nil
	})
	s.stats.StandardNumbers = s.resolver.StandardNumberCount()
	return err
}

func (s *Session) observe(ctx context.Context) error {
	onMalformed := func(err error) {
		s.stats.Malformed++
		hint := "repair or remove the record; it is left out of the output"
		var fe *marc.FormatError
		if errors.As(err, &fe) && fe.ControlNumber != "" {
			hint = "repair record " + fe.ControlNumber + "; it is left out of the output"
		}
		logging.WarnWithContext(s.logger, "skipping malformed record", "malformed_record",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, hint),
			logging.String(logging.FieldImpact, "the record is not written"),
		)
	}
	return s.scan(ctx, passObserve, onMalformed, func(rec *marc.Record, offset int64) error {
		s.stats.Records++
		if err := s.resolver.Observe(rec, offset); err != nil {
			s.stats.DuplicateIDs++
			if failures.Fatal(err, s.opts.Strict) {
				return err
			}
			logging.WarnWithContext(s.logger, "duplicate control number", "duplicate_control_number",
				logging.ControlNumber(rec.ControlNumber()),
				logging.Offset(offset),
				logging.String(logging.FieldErrorHint, "remove the duplicate from the corpus"),
				logging.String(logging.FieldImpact, "the later copy is written unmerged"),
			)
			return nil
		}
		if rec.HasLocalHoldings() {
			s.holdings[rec.ControlNumber()] = rec.LocalInstitutions()
		}
		return nil
	})
}

// settleGroups drops groups that cannot be merged: those with missing
// partners and those where more than one record carries local holdings.
func (s *Session) settleGroups() error {
	s.missing = s.resolver.EliminateDangling()
	s.stats.MissingPartnerGroups = len(s.missing)
	if len(s.missing) > 0 && s.opts.Strict {
		first := s.missing[0]
		return &failures.ConsistencyError{
			Group:         first.Group.IDs(),
			ControlNumber: first.Group.Canonical,
			Reason:        fmt.Sprintf("%d group(s) reference records absent from the corpus, first missing %v", len(s.missing), first.Missing),
		}
	}

	for _, g := range s.resolver.Groups() {
		var holders, institutions []string
		for _, id := range g.IDs() {
			isils, ok := s.holdings[id]
			if !ok {
				continue
			}
			holders = append(holders, id)
			label := id
			if len(isils) > 0 {
				label += " (" + strings.Join(isils, ", ") + ")"
			}
			institutions = append(institutions, label)
		}
		if len(holders) < 2 {
			continue
		}
		conflict := failures.ConsistencyError{
			Group:         g.IDs(),
			ControlNumber: g.Canonical,
			Reason:        fmt.Sprintf("records %s all carry local holdings", strings.Join(institutions, "; ")),
		}
		if s.opts.Strict {
			return &conflict
		}
		logging.WarnWithContext(s.logger, "leaving cross-reference group unmerged", "group_skipped",
			logging.ControlNumber(g.Canonical),
			logging.Members(g.IDs()),
			logging.Any("holders", holders),
			logging.Any("institutions", institutions),
			logging.String(logging.FieldErrorHint, "move the local holdings onto one record of the group"),
			logging.String(logging.FieldImpact, "the group's records are written unmerged"),
		)
		s.resolver.DropGroup(g.Canonical)
		s.skipped = append(s.skipped, conflict)
		s.stats.SkippedGroups++
	}
	s.stats.Groups = len(s.resolver.Groups())
	return nil
}

func (s *Session) dumpMaps(suffix string) error {
	if s.opts.DebugMapsDir == "" {
		return nil
	}
	paths, err := s.resolver.DumpMaps(s.opts.DebugMapsDir, suffix)
	if err != nil {
		return err
	}
	s.logger.Debug("wrote resolver maps", logging.Any("paths", paths))
	return nil
}

func (s *Session) emit(ctx context.Context) error {
	expected := s.resolver.LinkedCount()
	processed := make(map[string]struct{}, expected)

	err := s.scan(ctx, passEmit, nil, func(rec *marc.Record, offset int64) error {
		id := rec.ControlNumber()
		if first, known := s.resolver.Offset(id); known && first != offset {
			return s.write(rec)
		}
		if _, absorbed := s.resolver.CanonicalOf(id); absorbed {
			return nil
		}
		if s.resolver.IsCanonical(id) {
			return s.emitGroup(rec, processed)
		}
		return s.write(rec)
	})
	if err != nil {
		return err
	}

	if done := s.stats.Merged + s.unmerged; done != expected {
		var unprocessed []string
		for _, g := range s.resolver.Groups() {
			for _, id := range g.Members {
				if _, ok := processed[id]; !ok {
					unprocessed = append(unprocessed, id)
				}
			}
		}
		return &failures.ConsistencyError{
			Group:  unprocessed,
			Reason: fmt.Sprintf("merged %d records but %d were linked", done, expected),
		}
	}
	return nil
}

// groupMerge is the outcome of folding one group. Its counts reach the
// session stats only once the merged record is known to be writable.
type groupMerge struct {
	record            *marc.Record
	members           []*marc.Record
	warnings          int
	crossLinksRemoved int
}

// emitGroup writes the merged record of the group led by canonical. When the
// merged record cannot be encoded the group's records are written unmerged
// instead, unless the run is strict.
func (s *Session) emitGroup(canonical *marc.Record, processed map[string]struct{}) error {
	id := canonical.ControlNumber()
	gm, err := s.mergeGroup(canonical)
	if err != nil {
		return err
	}
	for _, member := range gm.members {
		processed[member.ControlNumber()] = struct{}{}
	}

	_, err = marc.Encode(gm.record)
	if err == nil {
		s.stats.Merged += len(gm.members)
		s.stats.Warnings += gm.warnings
		s.stats.CrossLinksRemoved += gm.crossLinksRemoved
		return s.write(gm.record)
	}
	if !errors.Is(err, failures.ErrFormat) {
		return fmt.Errorf("encode merged record %s: %w", id, err)
	}

	group := append([]string{id}, s.resolver.MembersOf(id)...)
	conflict := failures.ConsistencyError{
		Group:         group,
		ControlNumber: id,
		Reason:        "merged record cannot be encoded: " + err.Error(),
	}
	if failures.Fatal(&conflict, s.opts.Strict) {
		return &conflict
	}
	logging.WarnWithContext(s.logger, "leaving cross-reference group unmerged", "group_skipped",
		logging.ControlNumber(id),
		logging.Members(group),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "shorten the records of the group or merge them by hand"),
		logging.String(logging.FieldImpact, "the group's records are written unmerged"),
	)
	s.skipped = append(s.skipped, conflict)
	s.stats.SkippedGroups++
	s.stats.Groups--
	s.unmerged += len(gm.members)

	if err := s.write(canonical); err != nil {
		return err
	}
	for _, member := range gm.members {
		if err := s.write(member); err != nil {
			return err
		}
	}
	return nil
}

// write patches the uplinks of rec and hands it to the sink. A record the
// sink cannot encode is logged and left out.
func (s *Session) write(rec *marc.Record) error {
	s.stats.PatchedUplinks += s.merger.PatchUplinks(rec, s.resolver.CanonicalOf)
	err := s.sink.Write(rec)
	if err == nil {
		s.stats.Written++
		return nil
	}
	if failures.Fatal(err, s.opts.Strict) {
		return fmt.Errorf("write record %s: %w", rec.ControlNumber(), err)
	}
	s.stats.Unwritable++
	logging.WarnWithContext(s.logger, "skipping unwritable record", "unwritable_record",
		logging.ControlNumber(rec.ControlNumber()),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "shorten the record below the MARC-21 size limits"),
		logging.String(logging.FieldImpact, "the record is not written"),
	)
	return nil
}

// mergeGroup folds every member of the group led by canonical into a copy of
// it. The members are fetched by offset; the source position is restored
// afterwards.
func (s *Session) mergeGroup(canonical *marc.Record) (groupMerge, error) {
	id := canonical.ControlNumber()
	gm := groupMerge{record: canonical}
	for _, member := range s.resolver.MembersOf(id) {
		offset, ok := s.resolver.Offset(member)
		if !ok {
			return groupMerge{}, &failures.ConsistencyError{Group: []string{member, id}, ControlNumber: member, Reason: "no offset recorded for group member"}
		}
		partner, err := marc.ReadAt(s.src, offset)
		if err != nil {
			return groupMerge{}, fmt.Errorf("fetch %s at offset %d: %w", member, offset, err)
		}
		result, err := s.merger.MergePair(gm.record, partner)
		if err != nil {
			return groupMerge{}, err
		}
		gm.record = result.Record
		gm.members = append(gm.members, partner)
		gm.warnings += len(result.Warnings)
	}
	if len(gm.members) == 0 {
		return gm, nil
	}
	group := append([]string{id}, s.resolver.MembersOf(id)...)
	gm.crossLinksRemoved = s.merger.DeleteCrossLinkFields(gm.record, group)
	return gm, nil
}
