package guesser

import (
	"cmp"
	"context"
	"maps"
	"slices"

	"marclink/internal/logging"
)

// ControlNumberPartners returns the duplicate cluster id belongs to, id
// included, or nil. With useYears the cluster is narrowed to the ids sharing
// id's publication year. The partitions are built from the whole index on
// the first call.
func (g *Guesser) ControlNumberPartners(ctx context.Context, id string, useYears bool) ([]string, error) {
	if g.partners == nil {
		partners, err := g.buildPartners(ctx)
		if err != nil {
			return nil, err
		}
		g.partners = partners
	}
	if useYears && g.yearPartners == nil {
		years, err := g.buildYearPartners(ctx)
		if err != nil {
			return nil, err
		}
		g.yearPartners = years
	}

	cluster, ok := g.partners[id]
	if !ok {
		return nil, nil
	}
	if !useYears {
		return slices.Clone(cluster), nil
	}
	sameYear, ok := g.yearPartners[id]
	if !ok {
		return nil, nil
	}
	return intersect(cluster, toSet(sameYear)), nil
}

type titleBucket struct {
	title string
	ids   []string
}

type authorBucket struct {
	author string
	ids    []string
}

// buildPartners clusters ids that share a title and at least one author.
// Within a title, larger author groups are taken first and a group that
// overlaps an already taken one is skipped. An id keeps the cluster of the
// first title, in key order, that placed it.
func (g *Guesser) buildPartners(ctx context.Context) (map[string][]string, error) {
	var buckets []titleBucket
	candidates := make(map[string]struct{})
	err := g.Each(ctx, Titles, func(title string, ids []string) error {
		if len(ids) < 2 {
			return nil
		}
		buckets = append(buckets, titleBucket{title: title, ids: ids})
		for _, id := range ids {
			candidates[id] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	authorsOf := make(map[string][]string)
	err = g.Each(ctx, Authors, func(author string, ids []string) error {
		for _, id := range ids {
			if _, ok := candidates[id]; ok {
				authorsOf[id] = append(authorsOf[id], author)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	partners := make(map[string][]string)
	clusters := 0
	for _, tb := range buckets {
		byAuthor := make(map[string][]string)
		for _, id := range tb.ids {
			for _, author := range authorsOf[id] {
				byAuthor[author] = append(byAuthor[author], id)
			}
		}
		groups := make([]authorBucket, 0, len(byAuthor))
		for author, ids := range byAuthor {
			if len(ids) >= 2 {
				groups = append(groups, authorBucket{author: author, ids: ids})
			}
		}
		slices.SortFunc(groups, func(a, b authorBucket) int {
			if c := cmp.Compare(len(b.ids), len(a.ids)); c != 0 {
				return c
			}
			return cmp.Compare(a.author, b.author)
		})

		claimed := make(map[string]struct{})
		for _, group := range groups {
			if slices.ContainsFunc(group.ids, func(id string) bool { _, ok := claimed[id]; return ok }) {
				continue
			}
			cluster := slices.Sorted(maps.Keys(toSet(group.ids)))
			clusters++
			for _, id := range cluster {
				claimed[id] = struct{}{}
				if _, taken := partners[id]; !taken {
					partners[id] = cluster
				}
			}
		}
	}
	g.logger.Info("built duplicate partitions",
		logging.Int("title_buckets", len(buckets)),
		logging.Int("clusters", clusters),
		logging.Int("ids", len(partners)),
	)
	return partners, nil
}

// buildYearPartners maps every id to the ids indexed under the same year.
func (g *Guesser) buildYearPartners(ctx context.Context) (map[string][]string, error) {
	years := make(map[string][]string)
	conflicts := make(map[string]string)
	err := g.Each(ctx, Years, func(year string, ids []string) error {
		for _, id := range ids {
			if _, seen := years[id]; seen {
				conflicts[id] = year
				continue
			}
			years[id] = ids
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, id := range slices.Sorted(maps.Keys(conflicts)) {
		logging.WarnWithContext(g.logger, "control number indexed under two years", "guesser_year_conflict",
			logging.ControlNumber(id),
			logging.String("ignored_year", conflicts[id]),
			logging.String(logging.FieldErrorHint, "rebuild the index with --clear"),
			logging.String(logging.FieldImpact, "year filtering uses the earlier year"),
		)
	}
	return years, nil
}
