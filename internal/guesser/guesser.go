package guesser

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"

	"marclink/internal/failures"
	"marclink/internal/kvstore"
	"marclink/internal/logging"
	"marclink/internal/textutil"
)

// Index names one of the three buckets.
type Index string

const (
	Titles  Index = "titles"
	Authors Index = "authors"
	Years   Index = "years"
)

// Indices lists every index in dump order.
var Indices = []Index{Titles, Authors, Years}

// ParseIndex validates an index name.
func ParseIndex(name string) (Index, error) {
	for _, idx := range Indices {
		if string(idx) == name {
			return idx, nil
		}
	}
	return "", fmt.Errorf("unknown index %q (want titles, authors or years)", name)
}

// Options controls the guesser.
type Options struct {
	// MaxControlNumberLength is the slot width of the year index.
	MaxControlNumberLength int
}

// kv is the subset of a store transaction used for inserts.
type kv interface {
	Get(bucket, key string) ([]byte, bool, error)
	Set(bucket, key string, value []byte) error
}

// Guesser reads and writes the duplicate indices. The partner partitions are
// computed on first use and kept for the lifetime of the Guesser; inserts
// made afterwards are not reflected in them.
type Guesser struct {
	store  *kvstore.Store
	opts   Options
	logger *slog.Logger

	partners     map[string][]string
	yearPartners map[string][]string
}

// New returns a guesser over store.
func New(store *kvstore.Store, opts Options, logger *slog.Logger) *Guesser {
	if opts.MaxControlNumberLength <= 0 {
		opts.MaxControlNumberLength = 10
	}
	return &Guesser{
		store:  store,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "guesser"),
	}
}

func (g *Guesser) corrupt(index Index, key string, err error) error {
	return failures.Wrap(failures.ErrPersistence, "guesser", string(index), fmt.Sprintf("key %q", key), err)
}

func (g *Guesser) invalid(id string, err error) error {
	return failures.Wrap(failures.ErrFormat, "guesser", "insert", "control number "+id, err)
}

func (g *Guesser) decode(index Index, key string, value []byte) ([]string, error) {
	var (
		ids []string
		err error
	)
	if index == Years {
		ids, err = decodeFixed(value, g.opts.MaxControlNumberLength)
	} else {
		ids, err = decodeIDs(value)
	}
	if err != nil {
		return nil, g.corrupt(index, key, err)
	}
	return ids, nil
}

func (g *Guesser) insert(db kv, index Index, key, id string) (bool, error) {
	value, _, err := db.Get(string(index), key)
	if err != nil {
		return false, err
	}
	width := 0
	if index == Years {
		width = g.opts.MaxControlNumberLength
	}
	if err := checkID(id, width); err != nil {
		return false, g.invalid(id, err)
	}
	var (
		updated []byte
		added   bool
	)
	if index == Years {
		updated, added, err = appendFixed(value, id, width)
	} else {
		updated, added, err = appendID(value, id)
	}
	if err != nil {
		return false, g.corrupt(index, key, err)
	}
	if !added {
		return false, nil
	}
	return true, db.Set(string(index), key, updated)
}

func (g *Guesser) insertTitle(db kv, title, id string) (bool, error) {
	key := textutil.NormalizeTitle(title)
	if key == "" {
		logging.WarnWithContext(g.logger, "empty normalized title", "guesser_empty_title",
			logging.ControlNumber(id),
			logging.String("title", title),
			logging.String(logging.FieldErrorHint, "check field 245 of the record"),
			logging.String(logging.FieldImpact, "the record cannot be found by title"),
		)
		return false, nil
	}
	return g.insert(db, Titles, key, id)
}

func (g *Guesser) insertAuthors(db kv, authors []string, id string) (int, error) {
	added := 0
	for _, author := range authors {
		key := textutil.NormalizeAuthor(author)
		if key == "" {
			continue
		}
		ok, err := g.insert(db, Authors, key, id)
		if err != nil {
			return added, err
		}
		if ok {
			added++
		}
	}
	return added, nil
}

func (g *Guesser) insertYear(db kv, year, id string) (bool, error) {
	if year == "" {
		return false, nil
	}
	return g.insert(db, Years, year, id)
}

// metaYearSlotWidth records the slot width the year index was written with.
const metaYearSlotWidth = "year_slot_width"

// checkSlotWidth refuses a store whose year index was written with another
// slot width. When record is set a store without a width gets the configured one.
func (g *Guesser) checkSlotWidth(ctx context.Context, record bool) error {
	want := strconv.Itoa(g.opts.MaxControlNumberLength)
	got, ok, err := g.store.Meta(ctx, metaYearSlotWidth)
	if err != nil {
		return err
	}
	switch {
	case !ok && record:
		return g.store.SetMeta(ctx, metaYearSlotWidth, want)
	case ok && got != want:
		return failures.Wrap(failures.ErrPersistence, "guesser", string(Years),
			fmt.Sprintf("index slots hold %s characters but max_control_number_length is %s; rebuild with --clear", got, want), nil)
	}
	return nil
}

func (g *Guesser) lookup(ctx context.Context, index Index, key string) ([]string, error) {
	if key == "" {
		return nil, nil
	}
	if index == Years {
		if err := g.checkSlotWidth(ctx, false); err != nil {
			return nil, err
		}
	}
	value, ok, err := g.store.Get(ctx, string(index), key)
	if err != nil || !ok {
		return nil, err
	}
	return g.decode(index, key, value)
}

// LookupTitle returns the ids indexed under the normalized title.
func (g *Guesser) LookupTitle(ctx context.Context, title string) ([]string, error) {
	return g.lookup(ctx, Titles, textutil.NormalizeTitle(title))
}

// LookupAuthor returns the ids indexed under the normalized author name.
func (g *Guesser) LookupAuthor(ctx context.Context, author string) ([]string, error) {
	return g.lookup(ctx, Authors, textutil.NormalizeAuthor(author))
}

// LookupYear returns the ids indexed under year.
func (g *Guesser) LookupYear(ctx context.Context, year string) ([]string, error) {
	return g.lookup(ctx, Years, year)
}

// Guess returns the sorted ids that share the title and at least one of the
// authors, and also year when it is not empty.
func (g *Guesser) Guess(ctx context.Context, title string, authors []string, year string) ([]string, error) {
	titleIDs, err := g.LookupTitle(ctx, title)
	if err != nil || len(titleIDs) == 0 {
		return nil, err
	}

	authorIDs := make(map[string]struct{})
	for _, author := range authors {
		ids, err := g.LookupAuthor(ctx, author)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			authorIDs[id] = struct{}{}
		}
	}
	if len(authorIDs) == 0 {
		return nil, nil
	}

	common := intersect(titleIDs, authorIDs)
	if year == "" || len(common) == 0 {
		return common, nil
	}

	yearIDs, err := g.LookupYear(ctx, year)
	if err != nil {
		return nil, err
	}
	return intersect(common, toSet(yearIDs)), nil
}

// Each walks index in key order. fn must not call back into the store.
func (g *Guesser) Each(ctx context.Context, index Index, fn func(key string, ids []string) error) error {
	if index == Years {
		if err := g.checkSlotWidth(ctx, false); err != nil {
			return err
		}
	}
	cur, err := g.store.Cursor(ctx, string(index))
	if err != nil {
		return err
	}
	defer cur.Close()
	for cur.Next() {
		ids, err := g.decode(index, cur.Key(), cur.Value())
		if err != nil {
			return err
		}
		if err := fn(cur.Key(), ids); err != nil {
			return err
		}
	}
	if err := cur.Err(); err != nil {
		return err
	}
	return cur.Close()
}

// Clear empties all three indices and forgets the partner partitions.
func (g *Guesser) Clear(ctx context.Context) error {
	for _, idx := range Indices {
		n, err := g.store.Clear(ctx, string(idx))
		if err != nil {
			return err
		}
		g.logger.Info("cleared index", logging.String("index", string(idx)), logging.Int64("keys", n))
	}
	g.partners = nil
	g.yearPartners = nil
	return g.store.SetMeta(ctx, metaYearSlotWidth, strconv.Itoa(g.opts.MaxControlNumberLength))
}

// Counts returns the number of keys in each index.
func (g *Guesser) Counts(ctx context.Context) (map[Index]int64, error) {
	out := make(map[Index]int64, len(Indices))
	for _, idx := range Indices {
		n, err := g.store.Count(ctx, string(idx))
		if err != nil {
			return nil, err
		}
		out[idx] = n
	}
	return out, nil
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// intersect returns the sorted members of ids that are in set.
func intersect(ids []string, set map[string]struct{}) []string {
	out := make(map[string]struct{})
	for _, id := range ids {
		if _, ok := set[id]; ok {
			out[id] = struct{}{}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return slices.Sorted(maps.Keys(out))
}
