package datatable

import (
	"slices"
	"strings"
)

// Direction of an active sort.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// Sort is the active sort of a Table. The zero value means no sort.
type Sort struct {
	Key       string    `json:"key"`
	Direction Direction `json:"direction"`
}

func (s Sort) IsZero() bool { return s.Key == "" }

// IsAscending reports whether the sort is ascending.
func (s Sort) IsAscending() bool { return s.Direction != Descending }

// String formats the sort the way the `ordering` query param does: "name" or "-name".
func (s Sort) String() string {
	if s.IsZero() {
		return ""
	}
	if s.Direction == Descending {
		return "-" + s.Key
	}
	return s.Key
}

// ParseSort parses an ordering param ("name", "-name"). An empty string yields the zero Sort.
func ParseSort(ordering string) Sort {
	ordering = strings.TrimSpace(ordering)
	if ordering == "" {
		return Sort{}
	}
	if strings.HasPrefix(ordering, "-") {
		return Sort{Key: ordering[1:], Direction: Descending}
	}
	return Sort{Key: ordering, Direction: Ascending}
}

// next returns the sort that follows a header click on key.
// Clicking the active column flips its direction; any other column starts ascending.
// There is no third "unsorted" state.
func (s Sort) next(key string) Sort {
	if s.Key == key && s.Direction == Ascending {
		return Sort{Key: key, Direction: Descending}
	}
	return Sort{Key: key, Direction: Ascending}
}

// sortRecords returns a stably sorted copy of data.
// Null values come last whatever the direction: only the comparison of non-null values is flipped.
func sortRecords[T any](data []T, col Column[T], dir Direction) []T {
	type entry struct {
		rec  T
		val  any
		null bool
	}
	entries := make([]entry, len(data))
	for i, rec := range data {
		v, ok := normalize(col.value(rec))
		entries[i] = entry{rec: rec, val: v, null: !ok}
	}

	slices.SortStableFunc(entries, func(a, b entry) int {
		switch {
		case a.null && b.null:
			return 0
		case a.null:
			return 1
		case b.null:
			return -1
		}
		c := compareValues(a.val, b.val)
		if dir == Descending {
			return -c
		}
		return c
	})

	sorted := make([]T, len(entries))
	for i, e := range entries {
		sorted[i] = e.rec
	}
	return sorted
}
