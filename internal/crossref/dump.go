package crossref

import (
	"bufio"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// DumpMaps writes the resolver state as three text files in dir, named
// id_to_canonical<suffix>.map, canonical_to_ids<suffix>.map and
// id_to_offset<suffix>.map, one "key -> value" line each.
func (r *Resolver) DumpMaps(dir, suffix string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create map dump directory: %w", err)
	}

	canonical := make(map[string]string, len(r.canonical))
	maps.Copy(canonical, r.canonical)
	members := make(map[string]string, len(r.members))
	for c, ids := range r.members {
		members[c] = strings.Join(ids, ",")
	}
	offsets := make(map[string]string, len(r.offsets))
	for id, off := range r.offsets {
		offsets[id] = strconv.FormatInt(off, 10)
	}

	dumps := []struct {
		name string
		data map[string]string
	}{
		{"id_to_canonical" + suffix + ".map", canonical},
		{"canonical_to_ids" + suffix + ".map", members},
		{"id_to_offset" + suffix + ".map", offsets},
	}
	paths := make([]string, 0, len(dumps))
	for _, d := range dumps {
		path := filepath.Join(dir, d.name)
		if err := writeMap(path, d.data); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeMap(path string, data map[string]string) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()

	w := bufio.NewWriter(file)
	for _, key := range slices.Sorted(maps.Keys(data)) {
		if _, err := fmt.Fprintf(w, "%s -> %s\n", key, data[key]); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// WriteMissingPartners writes one line per missing id:
// "<missing id> <canonical id> <comma separated group ids>".
func WriteMissingPartners(w io.Writer, dropped []MissingPartner) error {
	bw := bufio.NewWriter(w)
	for _, mp := range dropped {
		ids := strings.Join(mp.Group.IDs(), ",")
		for _, missing := range mp.Missing {
			if _, err := fmt.Fprintf(bw, "%s %s %s\n", missing, mp.Group.Canonical, ids); err != nil {
				return fmt.Errorf("write missing partners: %w", err)
			}
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write missing partners: %w", err)
	}
	return nil
}
