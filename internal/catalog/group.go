package catalog

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
)

// DateKey identifies a date group.
type DateKey struct {
	Year  int
	Month int
	Day   int
}

// Label renders the key as "Y-M-D" without zero padding, e.g. "2024-1-15".
func (k DateKey) Label() string {
	return fmt.Sprintf("%d-%d-%d", k.Year, k.Month, k.Day)
}

// Compare orders keys chronologically.
func (k DateKey) Compare(o DateKey) int {
	if k.Year != o.Year {
		return k.Year - o.Year
	}
	if k.Month != o.Month {
		return k.Month - o.Month
	}
	return k.Day - o.Day
}

// ParseDateKey reads the date at the start of a group label such as "2024-1-15 [3]".
func ParseDateKey(label string) (DateKey, error) {
	head, _, _ := strings.Cut(strings.TrimSpace(label), " ")
	parts := strings.Split(head, "-")
	if len(parts) != 3 {
		return DateKey{}, fmt.Errorf("invalid date label %q", label)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return DateKey{}, fmt.Errorf("invalid date label %q: %w", label, err)
		}
		nums[i] = n
	}
	return DateKey{Year: nums[0], Month: nums[1], Day: nums[2]}, nil
}

// Groups maps a calendar date to the datasets recorded on it.
type Groups map[DateKey]map[string]Entry

// Group indexes a raw listing by the calendar date of each path's timestamp.
// The first path without a resolvable timestamp aborts grouping.
func Group(listing Listing) (Groups, error) {
	groups := make(Groups)
	for _, path := range sortedPaths(listing) {
		ts, err := TimestampFromPath(path)
		if err != nil {
			return nil, err
		}
		groups.add(keyOf(ts.Year(), int(ts.Month()), ts.Day()), path, listing[path])
	}
	return groups, nil
}

// GroupLenient groups what it can and logs each path it had to skip.
func GroupLenient(listing Listing, logger *slog.Logger) (Groups, []error) {
	if logger == nil {
		logger = slog.Default()
	}
	groups := make(Groups)
	var skipped []error
	for _, path := range sortedPaths(listing) {
		ts, err := TimestampFromPath(path)
		if err != nil {
			logger.Warn("skipping dataset", "path", path, "error", err)
			skipped = append(skipped, err)
			continue
		}
		groups.add(keyOf(ts.Year(), int(ts.Month()), ts.Day()), path, listing[path])
	}
	return groups, skipped
}

func keyOf(y, m, d int) DateKey {
	return DateKey{Year: y, Month: m, Day: d}
}

func (g Groups) add(key DateKey, path string, e Entry) {
	sets, ok := g[key]
	if !ok {
		sets = make(map[string]Entry)
		g[key] = sets
	}
	sets[path] = e
}

// Keys returns the group keys, most recent date first.
func (g Groups) Keys() []DateKey {
	keys := make([]DateKey, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b DateKey) int { return b.Compare(a) })
	return keys
}

// Sorted returns the dataset paths of a group sorted descending.
func (g Groups) Sorted(key DateKey) []string {
	paths := make([]string, 0, len(g[key]))
	for p := range g[key] {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	slices.Reverse(paths)
	return paths
}

// Len returns the number of datasets across all groups.
func (g Groups) Len() int {
	n := 0
	for _, sets := range g {
		n += len(sets)
	}
	return n
}

// Lookup finds the entry for path in any group.
func (g Groups) Lookup(path string) (Entry, bool) {
	for _, sets := range g {
		if e, ok := sets[path]; ok {
			return e, true
		}
	}
	return Entry{}, false
}

// Option is a selectable date group.
type Option struct {
	Label string
	Key   DateKey
}

// Options returns one option per group, labeled "Y-M-D [n]", newest first.
func Options(g Groups) []Option {
	keys := g.Keys()
	opts := make([]Option, 0, len(keys))
	for _, k := range keys {
		opts = append(opts, Option{
			Label: fmt.Sprintf("%s [%d]", k.Label(), len(g[k])),
			Key:   k,
		})
	}
	return opts
}

func sortedPaths(listing Listing) []string {
	paths := make([]string, 0, len(listing))
	for p := range listing {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}
