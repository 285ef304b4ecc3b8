package grouping

import (
	"sort"
)

// Entry is one key/value pair of a sorted mapping.
type Entry struct {
	Key   string
	Value float64
}

// BucketIntoOther moves every entry strictly below threshold into otherKey.
// An existing otherKey entry is kept and added to. The otherKey entry is
// omitted when the accumulated value is exactly zero. The input is not
// modified.
func BucketIntoOther(values map[string]float64, threshold float64, otherKey string) map[string]float64 {
	out := make(map[string]float64, len(values))
	other := values[otherKey]
	for k, v := range values {
		if k == otherKey {
			continue
		}
		if v < threshold {
			other += v
			continue
		}
		out[k] = v
	}
	if other != 0 {
		out[otherKey] = other
	}
	return out
}

// SortByValue orders values by value, ties broken by key. The pinnedKey
// entry, if present, is forced to the low end: first when ascending, last
// when descending, whatever its value.
func SortByValue(values map[string]float64, descending bool, pinnedKey string) []Entry {
	entries := make([]Entry, 0, len(values))
	var pinned *Entry
	for k, v := range values {
		if pinnedKey != "" && k == pinnedKey {
			pinned = &Entry{Key: k, Value: v}
			continue
		}
		entries = append(entries, Entry{Key: k, Value: v})
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Value != b.Value {
			if descending {
				return a.Value > b.Value
			}
			return a.Value < b.Value
		}
		return a.Key < b.Key
	})

	if pinned == nil {
		return entries
	}
	if descending {
		return append(entries, *pinned)
	}
	return append([]Entry{*pinned}, entries...)
}

// Keys returns the keys of entries in order
func Keys(entries []Entry) []string {
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	return keys
}

// Sum adds up every value in values.
func Sum(values map[string]float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

// Palette is a repeating list of colors plus the fixed color for Other.
type Palette struct {
	Colors     []string
	OtherColor string
}

// Color returns the color for the rank-th contributor, wrapping around
// once the list is exhausted.
func (p Palette) Color(rank int) string {
	if len(p.Colors) == 0 {
		return p.OtherColor
	}
	if rank < 0 {
		rank = -rank
	}
	return p.Colors[rank%len(p.Colors)]
}
